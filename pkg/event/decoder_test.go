package event

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
)

func makeEnvelope(t *testing.T, data string) []byte {
	t.Helper()
	raw, err := json.Marshal(PushEnvelope{
		Message: PushMessage{
			Data:        data,
			MessageID:   "msg-1",
			PublishTime: "2024-01-15T10:30:00Z",
		},
		Subscription: "projects/test/subscriptions/video-processing",
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func TestDecodeRoundTrip(t *testing.T) {
	data := EncodePayload(1234, EventTypeVideoProcessing, "2024-01-15T10:30:00.000000")

	decoded, err := Decode(makeEnvelope(t, data))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	if decoded.VisitClientID != 1234 {
		t.Fatalf("expected visit client id 1234, got %d", decoded.VisitClientID)
	}
	if decoded.EventType != EventTypeVideoProcessing {
		t.Fatalf("expected event type %q, got %q", EventTypeVideoProcessing, decoded.EventType)
	}
	if decoded.OccurredAt != "2024-01-15T10:30:00.000000" {
		t.Fatalf("unexpected timestamp %q", decoded.OccurredAt)
	}
	if decoded.MessageID != "msg-1" {
		t.Fatalf("unexpected message id %q", decoded.MessageID)
	}

	// Re-encoding the decoded fields must produce the same payload.
	again, err := Decode(makeEnvelope(t, EncodePayload(decoded.VisitClientID, decoded.EventType, decoded.OccurredAt)))
	if err != nil {
		t.Fatalf("Decode() after re-encode error: %v", err)
	}
	if again.VisitClientID != decoded.VisitClientID || again.EventType != decoded.EventType {
		t.Fatalf("round trip changed event: %+v vs %+v", again, decoded)
	}
}

func TestDecodeAcceptsStringID(t *testing.T) {
	body, _ := json.Marshal(map[string]interface{}{
		"scheduled_visit_client_id": "42",
		"event_type":                EventTypeVideoProcessing,
		"timestamp":                 "2024-01-15T10:30:00.000000",
	})
	data := base64.StdEncoding.EncodeToString(body)

	decoded, err := Decode(makeEnvelope(t, data))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if decoded.VisitClientID != 42 {
		t.Fatalf("expected visit client id 42, got %d", decoded.VisitClientID)
	}
}

func TestDecodeMalformed(t *testing.T) {
	valid := func(fields map[string]interface{}) string {
		body, _ := json.Marshal(fields)
		return base64.StdEncoding.EncodeToString(body)
	}

	cases := []struct {
		name string
		raw  []byte
	}{
		{"not json", []byte("not-json")},
		{"missing data", []byte(`{"message": {"messageId": "m"}, "subscription": "s"}`)},
		{"truncated base64", makeEnvelope(t, "!!!not-base64!!!")},
		{"payload not json", makeEnvelope(t, base64.StdEncoding.EncodeToString([]byte("garbage")))},
		{"missing visit id", makeEnvelope(t, valid(map[string]interface{}{
			"event_type": EventTypeVideoProcessing,
		}))},
		{"non numeric visit id", makeEnvelope(t, valid(map[string]interface{}{
			"scheduled_visit_client_id": "abc",
			"event_type":                EventTypeVideoProcessing,
		}))},
		{"zero visit id", makeEnvelope(t, valid(map[string]interface{}{
			"scheduled_visit_client_id": 0,
			"event_type":                EventTypeVideoProcessing,
		}))},
		{"unknown event type", makeEnvelope(t, valid(map[string]interface{}{
			"scheduled_visit_client_id": 1234,
			"event_type":                "image_processing",
		}))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.raw)
			if err == nil {
				t.Fatalf("expected decode error")
			}
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("expected ErrDecode, got %v", err)
			}
		})
	}
}
