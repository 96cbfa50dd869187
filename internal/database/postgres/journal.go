package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/journal"
)

type journalRepository struct {
	db *pgxpool.Pool
}

// NewJournalRepository creates a new PostgreSQL submission journal repository
func NewJournalRepository(db *pgxpool.Pool) journal.Repository {
	return &journalRepository{db: db}
}

// Insert stores one submission
func (r *journalRepository) Insert(ctx context.Context, e journal.Entry) error {
	query := `
		INSERT INTO submissions (id, kind, land_id, signer, steps, tx_hash, status, error_kind, error_detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	steps, err := json.Marshal(e.Steps)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToMarshalSteps, err)
	}

	_, err = r.db.Exec(ctx, query,
		e.ID, e.Kind, int64(e.LandID), e.Signer, steps,
		nullable(e.TxHash), e.Status, nullable(e.ErrorKind), nullable(e.ErrorDetail), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToInsertSubmission, err)
	}
	return nil
}

// Recent returns the newest submissions first
func (r *journalRepository) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	query := `
		SELECT id, kind, land_id, signer, steps, tx_hash, status, error_kind, error_detail, created_at
		FROM submissions
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToQuerySubmissions, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]journal.Entry, error) {
	entries := []journal.Entry{}

	for rows.Next() {
		var (
			e                          journal.Entry
			landID                     int64
			steps                      []byte
			txHash, errKind, errDetail *string
		)
		err := rows.Scan(
			&e.ID,
			&e.Kind,
			&landID,
			&e.Signer,
			&steps,
			&txHash,
			&e.Status,
			&errKind,
			&errDetail,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		e.LandID = domain.LandID(landID)
		if err := json.Unmarshal(steps, &e.Steps); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedToMarshalSteps, err)
		}
		e.TxHash = deref(txHash)
		e.ErrorKind = deref(errKind)
		e.ErrorDetail = deref(errDetail)

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
