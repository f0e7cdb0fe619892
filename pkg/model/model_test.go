package model

import (
	"encoding/json"
	"testing"
)

func TestJSONBValueAndScan(t *testing.T) {
	original := JSONB{"visit_client_id": 1234, "file_status": "Procesado"}

	value, err := original.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}

	data, ok := value.([]byte)
	if !ok {
		t.Fatalf("expected []byte value, got %T", value)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal value error: %v", err)
	}

	if decoded["file_status"] != "Procesado" {
		t.Fatalf("expected file_status Procesado, got %v", decoded["file_status"])
	}

	var scanned JSONB
	if err := scanned.Scan(data); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if scanned["file_status"] != "Procesado" {
		t.Fatalf("expected scanned file_status Procesado, got %v", scanned["file_status"])
	}
}

func TestJSONBGormDataType(t *testing.T) {
	value := JSONB{"ok": true}
	if value.GormDataType() != "jsonb" {
		t.Fatalf("expected jsonb data type, got %q", value.GormDataType())
	}
}

func TestHasSourceVideo(t *testing.T) {
	client := &ScheduledVisitClient{
		Filename:    "visit_1234.mp4",
		FilenameURL: "https://storage.example/visit_1234.mp4",
	}
	if !client.HasSourceVideo() {
		t.Fatalf("expected row with filename and url to have a source video")
	}

	client.FilenameURL = ""
	if client.HasSourceVideo() {
		t.Fatalf("row without filename_url must not report a source video")
	}

	client = &ScheduledVisitClient{FilenameURL: "https://storage.example/x.mp4"}
	if client.HasSourceVideo() {
		t.Fatalf("row without filename must not report a source video")
	}
}

func TestTableNames(t *testing.T) {
	if (ScheduledVisit{}).TableName() != "scheduled_visits" {
		t.Fatalf("unexpected scheduled visit table name")
	}
	if (ScheduledVisitClient{}).TableName() != "scheduled_visit_clients" {
		t.Fatalf("unexpected visit client table name")
	}
	if (VideoEvent{}).TableName() != "video_events" {
		t.Fatalf("unexpected outbox table name")
	}
}
