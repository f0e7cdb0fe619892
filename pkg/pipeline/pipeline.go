package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/medisupply/video-processor/pkg/event"
	"github.com/medisupply/video-processor/pkg/metrics"
	"github.com/medisupply/video-processor/pkg/model"
	"github.com/medisupply/video-processor/pkg/storage"
	"github.com/medisupply/video-processor/pkg/store/postgres"
)

// ObjectGateway is the slice of the artifact store the pipeline needs.
type ObjectGateway interface {
	Fetch(ctx context.Context, key, destPath string) error
	Store(ctx context.Context, key, srcPath, contentType string) error
	SignedURL(key string, ttl time.Duration) (string, error)
}

// VisitLedger is the slice of the relational store the pipeline needs.
type VisitLedger interface {
	GetClient(ctx context.Context, id int) (*model.ScheduledVisitClient, error)
	MarkProcessed(ctx context.Context, id int, filenameProcessed, signedURL string) error
}

// Overlayer applies the corporate mark to a video file.
type Overlayer interface {
	Apply(ctx context.Context, srcPath, destPath string) error
}

// Deduper short-circuits duplicate deliveries. May be nil.
type Deduper interface {
	Seen(ctx context.Context, messageID string) (bool, error)
	Record(ctx context.Context, messageID string) error
}

type Config struct {
	VideosFolder  string
	SignedURLTTL  time.Duration
	DBTimeout     time.Duration
	MaxConcurrent int
}

// Pipeline drives one idempotent unit of work per delivered event:
// decode, ledger lookup, fetch, transform, store, record. Every step is
// safe to repeat, so at-least-once delivery converges on the state of a
// single successful run.
type Pipeline struct {
	gateway   ObjectGateway
	ledger    VisitLedger
	overlayer Overlayer
	dedup     Deduper
	logger    *zap.Logger

	videosFolder string
	signedURLTTL time.Duration
	dbTimeout    time.Duration
	slots        chan struct{}
}

func New(gateway ObjectGateway, ledger VisitLedger, overlayer Overlayer, dedup Deduper, logger *zap.Logger, cfg Config) *Pipeline {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	ttl := cfg.SignedURLTTL
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}
	dbTimeout := cfg.DBTimeout
	if dbTimeout <= 0 {
		dbTimeout = 10 * time.Second
	}

	return &Pipeline{
		gateway:      gateway,
		ledger:       ledger,
		overlayer:    overlayer,
		dedup:        dedup,
		logger:       logger,
		videosFolder: cfg.VideosFolder,
		signedURLTTL: ttl,
		dbTimeout:    dbTimeout,
		slots:        make(chan struct{}, maxConcurrent),
	}
}

// Process handles one raw push envelope and returns the terminal
// outcome. Redeliver reports whether the delivery system should retry;
// it is set only for transient faults.
func (p *Pipeline) Process(ctx context.Context, raw []byte) Outcome {
	started := time.Now()
	outcome := p.run(ctx, raw)
	metrics.RunsTotal.WithLabelValues(string(outcome.Reason)).Inc()
	metrics.RunDuration.Observe(time.Since(started).Seconds())

	if outcome.Success() {
		p.logger.Info("pipeline run finished",
			zap.Int("visit_client_id", outcome.VisitClientID),
			zap.String("outcome", string(outcome.Reason)),
			zap.String("processed_filename", outcome.ProcessedFilename),
		)
	} else {
		p.logger.Error("pipeline run failed",
			zap.Int("visit_client_id", outcome.VisitClientID),
			zap.String("outcome", string(outcome.Reason)),
			zap.Bool("redeliver", outcome.Redeliver),
			zap.Error(outcome.Err),
		)
	}
	return outcome
}

func (p *Pipeline) run(ctx context.Context, raw []byte) Outcome {
	evt, err := event.Decode(raw)
	if err != nil {
		return Outcome{Reason: ReasonBadRequest, Err: err}
	}

	if seen := p.alreadyProcessed(ctx, evt); seen {
		metrics.DedupHits.Inc()
		return Outcome{Reason: ReasonDuplicate, VisitClientID: evt.VisitClientID}
	}

	dbCtx, cancel := context.WithTimeout(ctx, p.dbTimeout)
	client, err := p.ledger.GetClient(dbCtx, evt.VisitClientID)
	cancel()
	if err != nil {
		if errors.Is(err, postgres.ErrVisitNotFound) {
			return Outcome{Reason: ReasonMissingSource, VisitClientID: evt.VisitClientID, Err: err}
		}
		return Outcome{Reason: ReasonTransient, Redeliver: true, VisitClientID: evt.VisitClientID, Err: err}
	}

	if !client.HasSourceVideo() {
		return Outcome{
			Reason:        ReasonMissingSource,
			VisitClientID: evt.VisitClientID,
			Err:           errors.New("visit client has no source video attached"),
		}
	}

	if err := p.acquireSlot(ctx); err != nil {
		return Outcome{Reason: ReasonTransient, Redeliver: true, VisitClientID: evt.VisitClientID, Err: err}
	}
	defer p.releaseSlot()

	workDir, err := os.MkdirTemp("", "videoproc-*")
	if err != nil {
		return Outcome{Reason: ReasonTransient, Redeliver: true, VisitClientID: evt.VisitClientID, Err: err}
	}
	defer os.RemoveAll(workDir)

	sourceKey := storage.ObjectPath(p.videosFolder, client.Filename)
	sourcePath := filepath.Join(workDir, "source"+filepath.Ext(client.Filename))

	if err := p.gateway.Fetch(ctx, sourceKey, sourcePath); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Outcome{Reason: ReasonMissingSource, VisitClientID: evt.VisitClientID, Err: err}
		}
		return Outcome{Reason: ReasonTransient, Redeliver: true, VisitClientID: evt.VisitClientID, Err: err}
	}

	processedFilename := storage.ProcessedFilename(client.Filename)
	processedPath := filepath.Join(workDir, processedFilename)

	if err := p.overlayer.Apply(ctx, sourcePath, processedPath); err != nil {
		return Outcome{Reason: ReasonTransform, VisitClientID: evt.VisitClientID, Err: err}
	}

	resultKey := storage.ObjectPath(p.videosFolder, processedFilename)
	if err := p.gateway.Store(ctx, resultKey, processedPath, "video/mp4"); err != nil {
		return Outcome{Reason: ReasonTransient, Redeliver: true, VisitClientID: evt.VisitClientID, Err: err}
	}

	signedURL, err := p.gateway.SignedURL(resultKey, p.signedURLTTL)
	if err != nil {
		return Outcome{Reason: ReasonTransient, Redeliver: true, VisitClientID: evt.VisitClientID, Err: err}
	}

	dbCtx, cancel = context.WithTimeout(ctx, p.dbTimeout)
	err = p.ledger.MarkProcessed(dbCtx, evt.VisitClientID, processedFilename, signedURL)
	cancel()
	if err != nil {
		if errors.Is(err, postgres.ErrConflict) {
			return Outcome{Reason: ReasonConflict, VisitClientID: evt.VisitClientID, Err: err}
		}
		return Outcome{Reason: ReasonTransient, Redeliver: true, VisitClientID: evt.VisitClientID, Err: err}
	}

	p.recordProcessed(ctx, evt)

	return Outcome{
		Reason:            ReasonRecorded,
		VisitClientID:     evt.VisitClientID,
		ProcessedFilename: processedFilename,
		ProcessedURL:      signedURL,
	}
}

func (p *Pipeline) alreadyProcessed(ctx context.Context, evt *event.ProcessingEvent) bool {
	if p.dedup == nil {
		return false
	}
	seen, err := p.dedup.Seen(ctx, evt.MessageID)
	if err != nil {
		p.logger.Warn("dedup lookup failed", zap.String("message_id", evt.MessageID), zap.Error(err))
		return false
	}
	return seen
}

func (p *Pipeline) recordProcessed(ctx context.Context, evt *event.ProcessingEvent) {
	if p.dedup == nil {
		return
	}
	if err := p.dedup.Record(ctx, evt.MessageID); err != nil {
		p.logger.Warn("dedup record failed", zap.String("message_id", evt.MessageID), zap.Error(err))
	}
}

// The slot cap bounds concurrent transforms; decoded frames are memory
// heavy and burst delivery must not exhaust the process.
func (p *Pipeline) acquireSlot(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		metrics.TransformsInFlight.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) releaseSlot() {
	metrics.TransformsInFlight.Dec()
	<-p.slots
}
