package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/medisupply/video-processor/pkg/config"
	"github.com/medisupply/video-processor/pkg/pipeline"
)

type stubProcessor struct {
	outcome pipeline.Outcome
	raw     []byte
}

func (s *stubProcessor) Process(_ context.Context, raw []byte) pipeline.Outcome {
	s.raw = raw
	return s.outcome
}

type pushResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func postVideo(t *testing.T, server *Server, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/files-procesor/video", bytes.NewReader(body))
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	return recorder
}

func TestHealthEndpoint(t *testing.T) {
	server := NewServer(&stubProcessor{}, &config.Config{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	if recorder.Body.String() != "pong" {
		t.Fatalf("expected pong, got %q", recorder.Body.String())
	}
}

func TestProcessSuccessAcknowledges(t *testing.T) {
	processor := &stubProcessor{outcome: pipeline.Outcome{
		Reason:            pipeline.ReasonRecorded,
		VisitClientID:     1234,
		ProcessedFilename: "visit_1234_processed.mp4",
		ProcessedURL:      "https://signed.example/visit_1234_processed.mp4",
	}}
	server := NewServer(processor, &config.Config{}, zap.NewNop())

	recorder := postVideo(t, server, []byte(`{"message":{}}`), nil)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var response pushResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Success {
		t.Fatalf("expected success response, got %+v", response)
	}
	if processor.raw == nil {
		t.Fatalf("raw envelope not passed to processor")
	}
}

func TestProcessDuplicateAcknowledgesWithoutResult(t *testing.T) {
	processor := &stubProcessor{outcome: pipeline.Outcome{
		Reason:        pipeline.ReasonDuplicate,
		VisitClientID: 1234,
	}}
	server := NewServer(processor, &config.Config{}, zap.NewNop())

	recorder := postVideo(t, server, []byte(`{"message":{}}`), nil)

	if recorder.Code != http.StatusOK {
		t.Fatalf("duplicate delivery must be acknowledged with 200, got %d", recorder.Code)
	}

	var response struct {
		Success bool                   `json:"success"`
		Message string                 `json:"message"`
		Data    map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Success {
		t.Fatalf("duplicate delivery must acknowledge as success")
	}
	if response.Message != "duplicate delivery" {
		t.Fatalf("unexpected message %q", response.Message)
	}
	// A duplicate has no fresh result: it must not claim a processed
	// status or carry empty filename/url fields.
	for _, field := range []string{"status", "processed_filename", "processed_url"} {
		if _, ok := response.Data[field]; ok {
			t.Fatalf("duplicate response must not carry %q", field)
		}
	}
	if response.Data["visit_client_id"] != float64(1234) {
		t.Fatalf("expected visit client id in data, got %v", response.Data)
	}
}

func TestProcessPermanentFailureAcknowledges(t *testing.T) {
	for _, reason := range []pipeline.Reason{
		pipeline.ReasonBadRequest,
		pipeline.ReasonMissingSource,
		pipeline.ReasonTransform,
		pipeline.ReasonConflict,
	} {
		processor := &stubProcessor{outcome: pipeline.Outcome{Reason: reason}}
		server := NewServer(processor, &config.Config{}, zap.NewNop())

		recorder := postVideo(t, server, []byte(`{}`), nil)

		if recorder.Code != http.StatusOK {
			t.Fatalf("reason %s: permanent failures must be acknowledged with 200, got %d", reason, recorder.Code)
		}

		var response pushResponse
		if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
			t.Fatalf("reason %s: failed to decode response: %v", reason, err)
		}
		if response.Success {
			t.Fatalf("reason %s: expected success=false", reason)
		}
	}
}

func TestProcessTransientFailureRequestsRedelivery(t *testing.T) {
	processor := &stubProcessor{outcome: pipeline.Outcome{Reason: pipeline.ReasonTransient, Redeliver: true}}
	server := NewServer(processor, &config.Config{}, zap.NewNop())

	recorder := postVideo(t, server, []byte(`{}`), nil)

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, recorder.Code)
	}
}

func TestPushAuth(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.PushSecret = "push-secret"
	processor := &stubProcessor{outcome: pipeline.Outcome{Reason: pipeline.ReasonRecorded}}
	server := NewServer(processor, cfg, zap.NewNop())

	recorder := postVideo(t, server, []byte(`{}`), nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d without token, got %d", http.StatusUnauthorized, recorder.Code)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		Issuer:    "test",
	})
	signed, err := token.SignedString([]byte("push-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	recorder = postVideo(t, server, []byte(`{}`), map[string]string{"Authorization": "Bearer " + signed})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d with valid token, got %d", http.StatusOK, recorder.Code)
	}

	badToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{})
	badSigned, _ := badToken.SignedString([]byte("other-secret"))

	recorder = postVideo(t, server, []byte(`{}`), map[string]string{"Authorization": "Bearer " + badSigned})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d with bad token, got %d", http.StatusUnauthorized, recorder.Code)
	}
}
