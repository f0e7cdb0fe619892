package event

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const EventTypeVideoProcessing = "video_processing"

// ErrDecode marks an envelope that can never become valid; redelivering
// it would fail the same way.
var ErrDecode = errors.New("invalid processing event")

// PushEnvelope mirrors the Pub/Sub push delivery wrapper. Message
// metadata is carried through for logging and dedup but has no
// processing semantics.
type PushEnvelope struct {
	Message      PushMessage `json:"message"`
	Subscription string      `json:"subscription"`
}

type PushMessage struct {
	Data        string `json:"data"`
	MessageID   string `json:"messageId"`
	PublishTime string `json:"publishTime"`
}

type payload struct {
	ScheduledVisitClientID json.RawMessage `json:"scheduled_visit_client_id"`
	EventType              string          `json:"event_type"`
	Timestamp              string          `json:"timestamp"`
}

// ProcessingEvent is the decoded request to process one visit video.
type ProcessingEvent struct {
	VisitClientID int
	EventType     string
	OccurredAt    string
	MessageID     string
	Subscription  string
}

// Decode parses a raw push envelope into a ProcessingEvent. It has no
// side effects: the caller decides whether a failure is acknowledged or
// redelivered.
func Decode(raw []byte) (*ProcessingEvent, error) {
	var envelope PushEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", ErrDecode, err)
	}

	if envelope.Message.Data == "" {
		return nil, fmt.Errorf("%w: envelope has no message data", ErrDecode)
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: message data is not valid base64: %v", ErrDecode, err)
	}

	var body payload
	if err := json.Unmarshal(decoded, &body); err != nil {
		return nil, fmt.Errorf("%w: malformed event payload: %v", ErrDecode, err)
	}

	visitClientID, err := coerceVisitClientID(body.ScheduledVisitClientID)
	if err != nil {
		return nil, err
	}

	if body.EventType != EventTypeVideoProcessing {
		return nil, fmt.Errorf("%w: unrecognized event_type %q", ErrDecode, body.EventType)
	}

	return &ProcessingEvent{
		VisitClientID: visitClientID,
		EventType:     body.EventType,
		OccurredAt:    body.Timestamp,
		MessageID:     envelope.Message.MessageID,
		Subscription:  envelope.Subscription,
	}, nil
}

// The producer has historically sent the id both as a JSON number and
// as a numeric string, so both are accepted.
func coerceVisitClientID(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: event has no scheduled_visit_client_id", ErrDecode)
	}

	text := strings.Trim(string(raw), `"`)
	id, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: scheduled_visit_client_id must be an integer, got %s", ErrDecode, raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: scheduled_visit_client_id must be positive, got %d", ErrDecode, id)
	}
	return id, nil
}

// EncodePayload builds the base64 message data for a processing event.
// The inverse of Decode for the payload portion; used by producers and
// tests.
func EncodePayload(visitClientID int, eventType, timestamp string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"scheduled_visit_client_id": visitClientID,
		"event_type":                eventType,
		"timestamp":                 timestamp,
	})
	return base64.StdEncoding.EncodeToString(body)
}
