package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/logger"
	"github.com/osse101/cosmos-agent/internal/metrics"
)

// Entry is one submission as stored in the journal
type Entry struct {
	ID          uuid.UUID     `json:"id"`
	Kind        string        `json:"kind"`
	LandID      domain.LandID `json:"land_id"`
	Signer      string        `json:"signer"`
	Steps       []string      `json:"steps"`
	TxHash      string        `json:"tx_hash,omitempty"`
	Status      string        `json:"status"`
	ErrorKind   string        `json:"error_kind,omitempty"`
	ErrorDetail string        `json:"error_detail,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Repository persists journal entries
type Repository interface {
	Insert(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Recorder is the write side used by the session
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Service is an append-only audit log of submissions
type Service interface {
	Recorder
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a journal service on top of repo
func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

// Record assigns an id and timestamp when missing and stores the entry
func (s *service) Record(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if entry.Steps == nil {
		entry.Steps = []string{}
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		logger.FromContext(ctx).Warn(LogMsgRecordFailed, "id", entry.ID, "error", err)
		return fmt.Errorf("%s: %w", ErrMsgRecordFailed, err)
	}
	logger.FromContext(ctx).Debug(LogMsgRecorded, "id", entry.ID, "kind", entry.Kind, "status", entry.Status)
	return nil
}

// Recent returns the newest entries first
func (s *service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	entries, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgListFailed, err)
	}
	return entries, nil
}

// Classify returns the status and error kind for a submission outcome
func Classify(err error, confirmed bool) (status, kind string) {
	if err == nil {
		if confirmed {
			return StatusConfirmed, ""
		}
		return StatusSubmitted, ""
	}
	return StatusFailed, metrics.Outcome(err)
}

// Nop discards entries
type Nop struct{}

// Record does nothing
func (Nop) Record(context.Context, Entry) error { return nil }

// Recent returns nothing
func (Nop) Recent(context.Context, int) ([]Entry, error) { return []Entry{}, nil }
