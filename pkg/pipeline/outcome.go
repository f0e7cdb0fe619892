package pipeline

// Reason is the terminal state of one pipeline run.
type Reason string

const (
	// ReasonRecorded is the terminal success state: artifact stored and
	// ledger updated.
	ReasonRecorded Reason = "recorded"
	// ReasonDuplicate acknowledges a delivery whose message id was
	// already processed.
	ReasonDuplicate Reason = "duplicate"

	ReasonBadRequest    Reason = "bad-request"
	ReasonMissingSource Reason = "missing-source"
	ReasonTransform     Reason = "transform"
	ReasonConflict      Reason = "conflict"
	ReasonTransient     Reason = "transient"
)

type Outcome struct {
	Reason            Reason
	Redeliver         bool
	VisitClientID     int
	ProcessedFilename string
	ProcessedURL      string
	Err               error
}

func (o Outcome) Success() bool {
	return o.Reason == ReasonRecorded || o.Reason == ReasonDuplicate
}
