package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/medisupply/video-processor/pkg/model"
)

// ErrVisitNotFound means no ledger row exists for the visit client id.
var ErrVisitNotFound = errors.New("visit client not found")

// ErrConflict means the ledger row is no longer in a state that can
// transition to Procesado. Retrying will not change the outcome.
var ErrConflict = errors.New("visit client state conflict")

type VisitRepository struct {
	db *gorm.DB
}

func NewVisitRepository(db *gorm.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

func (r *VisitRepository) GetClient(ctx context.Context, id int) (*model.ScheduledVisitClient, error) {
	var client model.ScheduledVisitClient
	err := r.db.WithContext(ctx).First(&client, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrVisitNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// MarkProcessed records a successful run: the three processed fields
// change together or not at all, and the outcome event lands in the
// outbox within the same transaction. Re-marking an already processed
// row is an overwrite, not an error, so a redelivered duplicate
// converges on the same terminal state with a fresh signed URL.
func (r *VisitRepository) MarkProcessed(ctx context.Context, id int, filenameProcessed, signedURL string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ScheduledVisitClient{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"file_status":            model.FileStatusProcessed,
				"filename_processed":     filenameProcessed,
				"filename_url_processed": signedURL,
				"updated_at":             time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: id %d", ErrConflict, id)
		}

		outboxEvent := &model.VideoEvent{
			EventType: model.EventTypeVideoProcessed,
			Payload: model.JSONB{
				"visit_client_id":    id,
				"filename_processed": filenameProcessed,
				"file_status":        string(model.FileStatusProcessed),
			},
			Status: model.OutboxStatusPending,
		}
		return tx.Create(outboxEvent).Error
	})
}
