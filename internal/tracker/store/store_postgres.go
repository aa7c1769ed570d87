package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"filer/internal/tracker/models"
	id "filer/pkg/domain"
	"filer/pkg/platform/sentinel"
	"filer/pkg/platform/tx"
)

const requestColumns = `id, business_id, service_name, request_type, filing_id, retry_number,
	is_processed, request_object, response_object, created_at, last_modified`

// PostgresStore persists tracked requests in PostgreSQL. Every call runs in
// its own transaction: tracker rows must survive a rolled-back filing.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgres constructs a PostgreSQL-backed tracker store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, timeout: 5 * time.Second}
}

// Claim inserts the row for key or, when it exists, locks it and advances the
// retry number while budget remains.
func (s *PostgresStore) Claim(ctx context.Context, key models.Key, maxRetry int) (*models.Request, models.ClaimResult, error) {
	var (
		req    *models.Request
		result models.ClaimResult
	)
	err := tx.Run(context.WithoutCancel(ctx), s.db, s.timeout, func(ctx context.Context, t *sql.Tx) error {
		row, err := scanRequest(t.QueryRowContext(ctx, `
			INSERT INTO request_trackers (business_id, service_name, request_type, filing_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (business_id, service_name, request_type, filing_id) DO NOTHING
			RETURNING `+requestColumns,
			int64(key.BusinessID), string(key.Service), string(key.RequestType), int64(key.FilingID)))
		if err == nil {
			req, result = row, models.ClaimCreated
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("insert request tracker: %w", err)
		}

		row, err = scanRequest(t.QueryRowContext(ctx, `
			SELECT `+requestColumns+`
			FROM request_trackers
			WHERE business_id = $1 AND service_name = $2 AND request_type = $3 AND filing_id = $4
			FOR UPDATE`,
			int64(key.BusinessID), string(key.Service), string(key.RequestType), int64(key.FilingID)))
		if err != nil {
			return fmt.Errorf("lock request tracker: %w", err)
		}
		switch {
		case row.IsProcessed:
			req, result = row, models.ClaimAlreadyProcessed
			return nil
		case row.RetryNumber >= maxRetry:
			req, result = row, models.ClaimExhausted
			return nil
		}

		row, err = scanRequest(t.QueryRowContext(ctx, `
			UPDATE request_trackers
			SET retry_number = retry_number + 1, last_modified = NOW()
			WHERE id = $1
			RETURNING `+requestColumns, row.ID))
		if err != nil {
			return fmt.Errorf("increment request tracker: %w", err)
		}
		req, result = row, models.ClaimIncremented
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return req, result, nil
}

// Record writes the request and response documents and the processed flag.
// Processed rows are never rewritten.
func (s *PostgresStore) Record(ctx context.Context, req *models.Request) error {
	res, err := s.db.ExecContext(context.WithoutCancel(ctx), `
		UPDATE request_trackers
		SET request_object = $2, response_object = $3, is_processed = $4, last_modified = NOW()
		WHERE id = $1 AND is_processed = FALSE`,
		req.ID, req.RequestObject, req.ResponseObject, req.IsProcessed)
	if err != nil {
		return fmt.Errorf("record request tracker: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record request tracker rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("tracked request %d: %w", req.ID, sentinel.ErrInvalidState)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, key models.Key) (*models.Request, error) {
	row, err := scanRequest(s.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM request_trackers
		WHERE business_id = $1 AND service_name = $2 AND request_type = $3 AND filing_id = $4`,
		int64(key.BusinessID), string(key.Service), string(key.RequestType), int64(key.FilingID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find request tracker: %w", err)
	}
	return row, nil
}

// ListByFiling returns the tracked requests of a filing.
func (s *PostgresStore) ListByFiling(ctx context.Context, filingID id.FilingID) ([]*models.Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM request_trackers
		WHERE filing_id = $1
		ORDER BY id`, int64(filingID))
	if err != nil {
		return nil, fmt.Errorf("list request trackers: %w", err)
	}
	defer rows.Close()

	var out []*models.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request tracker: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*models.Request, error) {
	var (
		r                    models.Request
		businessID, filingID int64
		service, requestType string
	)
	err := row.Scan(&r.ID, &businessID, &service, &requestType, &filingID, &r.RetryNumber,
		&r.IsProcessed, &r.RequestObject, &r.ResponseObject, &r.CreatedAt, &r.LastModified)
	if err != nil {
		return nil, err
	}
	r.Key = models.Key{
		BusinessID:  id.BusinessID(businessID),
		Service:     models.ServiceName(service),
		RequestType: models.RequestType(requestType),
		FilingID:    id.FilingID(filingID),
	}
	return &r, nil
}
