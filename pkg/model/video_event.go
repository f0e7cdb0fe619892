package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	OutboxStatusPending   = "pending"
	OutboxStatusPublished = "published"
	OutboxStatusFailed    = "failed"
)

const EventTypeVideoProcessed = "video.processed"

// VideoEvent is a transactional outbox row. It is inserted in the same
// transaction as the ledger update so downstream consumers observe an
// outcome if and only if the ledger recorded it.
type VideoEvent struct {
	EventID     uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	EventType   string    `gorm:"not null"`
	Payload     JSONB     `gorm:"type:jsonb;not null"`
	Status      string    `gorm:"not null;default:'pending'"`
	CreatedAt   time.Time `gorm:"autoCreateTime;not null"`
	PublishedAt *time.Time
}

func (VideoEvent) TableName() string {
	return "video_events"
}
