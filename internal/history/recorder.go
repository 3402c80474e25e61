package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"playground/internal/domain"
	"playground/internal/infra"
)

// Recorder stamps playground results with an id and timestamp and pushes them
// onto the log. A failed push is logged and never fails the operation that
// produced the result.
type Recorder struct {
	log    Log[domain.HistoryItem]
	logger *infra.Logger
	now    func() time.Time
	newID  func() string
}

func NewRecorder(log Log[domain.HistoryItem], logger *infra.Logger) *Recorder {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Recorder{log: log, logger: logger, now: time.Now, newID: uuid.NewString}
}

// Stamp fills in id and timestamp when they are missing.
func (r *Recorder) Stamp(item domain.HistoryItem) domain.HistoryItem {
	if item.ID == "" {
		item.ID = r.newID()
	}
	if item.Timestamp == 0 {
		item.Timestamp = r.now().UnixMilli()
	}
	return item
}

// Save stamps and stores one entry and returns it. A nil Recorder is a no-op.
func (r *Recorder) Save(ctx context.Context, typ domain.HistoryType, in domain.HistoryInput, out domain.HistoryOutput) domain.HistoryItem {
	item := domain.HistoryItem{Type: typ, Input: in, Output: out}
	if r == nil || r.log == nil {
		return item
	}
	item = r.Stamp(item)
	if err := r.log.Push(ctx, item); err != nil {
		r.logger.Warn().Err(err).Str("id", item.ID).Str("type", string(typ)).Msg("history: save failed")
	}
	return item
}

// Log exposes the underlying log for the history routes.
func (r *Recorder) Log() Log[domain.HistoryItem] {
	if r == nil {
		return nil
	}
	return r.log
}
