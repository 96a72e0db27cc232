package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CheckpointKey is the sync_state key of the last history sync.
const CheckpointKey = "history.last_sync"

// Checkpoints persists sync checkpoints. *store.DB implements it.
type Checkpoints interface {
	SetCheckpoint(key, value string) error
	Checkpoint(key string) (string, time.Time, error)
}

// Reconciler manages history sync checkpoints.
type Reconciler struct {
	db     Checkpoints
	logger *zap.Logger
}

// NewReconciler creates a new reconciler.
func NewReconciler(db Checkpoints, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{db: db, logger: logger}
}

// Record stores the outcome of a sync pass.
func (r *Reconciler) Record(res *Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	return r.db.SetCheckpoint(CheckpointKey, string(data))
}

// Last returns the most recent sync, or nil if none happened yet.
func (r *Reconciler) Last() (*Result, error) {
	value, _, err := r.db.Checkpoint(CheckpointKey)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	var res Result
	if err := json.Unmarshal([]byte(value), &res); err != nil {
		r.logger.Warn("unreadable sync checkpoint", zap.Error(err))
		return nil, nil
	}
	return &res, nil
}
