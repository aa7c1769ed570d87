package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bizmodels "filer/internal/business/models"
	"filer/internal/filing/models"
	"filer/internal/platform/postgres"
	"filer/pkg/document"
	id "filer/pkg/domain"
	"filer/pkg/platform/sentinel"
	"filer/pkg/platform/tx"
)

const filingColumns = `id, business_id, temp_identifier, filing_type, sub_type, status, payload,
	effective_date, submitted_date, completion_date, parent_filing_id, withdrawn_filing_id, meta, comment`

const businessColumns = `id, identifier, legal_name, legal_type, state, state_filing_id, tax_id,
	founding_date, dissolution_date, restoration_expiry_date, last_ar_date, last_ar_year,
	last_agm_date, last_coa_date, last_cod_date, admin_freeze, naics_code, naics_description,
	jurisdiction, offices, party_roles, share_classes, aliases, resolutions, consent_outs`

// PostgresStore persists filings and businesses in PostgreSQL.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgres constructs a PostgreSQL-backed filing store.
func NewPostgres(db *sql.DB, timeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, timeout: timeout}
}

func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return tx.Run(ctx, s.db, s.timeout, func(ctx context.Context, t *sql.Tx) error {
		return fn(ctx, &postgresTx{tx: t})
	})
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) LockFiling(ctx context.Context, filingID id.FilingID) (*models.Filing, error) {
	return t.queryFiling(ctx, `SELECT `+filingColumns+` FROM filings WHERE id = $1 FOR UPDATE`, int64(filingID))
}

func (t *postgresTx) LoadFiling(ctx context.Context, filingID id.FilingID) (*models.Filing, error) {
	return t.queryFiling(ctx, `SELECT `+filingColumns+` FROM filings WHERE id = $1`, int64(filingID))
}

func (t *postgresTx) FindPendingWithdrawal(ctx context.Context, target id.FilingID) (*models.Filing, error) {
	f, err := t.queryFiling(ctx, `
		SELECT `+filingColumns+`
		FROM filings
		WHERE withdrawn_filing_id = $1 AND filing_type = $2 AND status = $3
		ORDER BY id
		LIMIT 1`,
		int64(target), string(models.TypeNoticeOfWithdrawal), string(models.StatusPaid))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	return f, err
}

func (t *postgresTx) DueFilings(ctx context.Context, now time.Time, limit int) ([]id.FilingID, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id
		FROM filings
		WHERE status = $1 AND effective_date <= $2
		ORDER BY effective_date, id
		LIMIT $3`,
		string(models.StatusPaid), now, nullableLimit(limit))
	if err != nil {
		return nil, classify("list due filings", err)
	}
	defer rows.Close()

	var ids []id.FilingID
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, classify("scan due filing", err)
		}
		ids = append(ids, id.FilingID(v))
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list due filings", err)
	}
	return ids, nil
}

func (t *postgresTx) queryFiling(ctx context.Context, query string, args ...any) (*models.Filing, error) {
	f, err := scanFiling(t.tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("filing: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, classify("load filing", err)
	}
	return f, nil
}

func (t *postgresTx) LockBusiness(ctx context.Context, businessID id.BusinessID) (*bizmodels.Business, error) {
	return t.queryBusiness(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = $1 FOR UPDATE`, int64(businessID))
}

func (t *postgresTx) LockBusinessByIdentifier(ctx context.Context, identifier string) (*bizmodels.Business, error) {
	return t.queryBusiness(ctx, `SELECT `+businessColumns+` FROM businesses WHERE identifier = $1 FOR UPDATE`, identifier)
}

func (t *postgresTx) LoadBusinessByIdentifier(ctx context.Context, identifier string) (*bizmodels.Business, error) {
	return t.queryBusiness(ctx, `SELECT `+businessColumns+` FROM businesses WHERE identifier = $1`, identifier)
}

func (t *postgresTx) queryBusiness(ctx context.Context, query string, args ...any) (*bizmodels.Business, error) {
	b, err := scanBusiness(t.tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("business: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, classify("load business", err)
	}
	return b, nil
}

func (t *postgresTx) NextIdentifier(ctx context.Context, legalType bizmodels.LegalType) (string, error) {
	prefix := legalType.IdentifierPrefix()
	var n int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO identifier_sequences (prefix, last_value)
		VALUES ($1, 1)
		ON CONFLICT (prefix) DO UPDATE SET last_value = identifier_sequences.last_value + 1
		RETURNING last_value`, prefix).Scan(&n)
	if err != nil {
		return "", classify("next identifier", err)
	}
	return formatIdentifier(prefix, n), nil
}

func (t *postgresTx) SaveBusiness(ctx context.Context, b *bizmodels.Business) (id.BusinessID, error) {
	collections, err := marshalCollections(b)
	if err != nil {
		return 0, err
	}
	args := []any{
		b.Identifier, b.LegalName, string(b.LegalType), string(b.State), nullableFilingID(b.StateFilingID), b.TaxID,
		nullableTime(&b.FoundingDate), b.DissolutionDate, b.RestorationExpiryDate, b.LastARDate, b.LastARYear,
		b.LastAGMDate, b.LastCOADate, b.LastCODDate, b.AdminFreeze, b.NAICSCode, b.NAICSDescription,
	}
	args = append(args, collections...)

	if b.ID.IsNil() {
		var newID int64
		err := t.tx.QueryRowContext(ctx, `
			INSERT INTO businesses (identifier, legal_name, legal_type, state, state_filing_id, tax_id,
				founding_date, dissolution_date, restoration_expiry_date, last_ar_date, last_ar_year,
				last_agm_date, last_coa_date, last_cod_date, admin_freeze, naics_code, naics_description,
				jurisdiction, offices, party_roles, share_classes, aliases, resolutions, consent_outs)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
				$18, $19, $20, $21, $22, $23, $24)
			RETURNING id`, args...).Scan(&newID)
		if postgres.IsUniqueViolation(err) {
			return 0, fmt.Errorf("business %s: %w", b.Identifier, sentinel.ErrConflict)
		}
		if err != nil {
			return 0, classify("insert business", err)
		}
		b.ID = id.BusinessID(newID)
		return b.ID, nil
	}

	args = append(args, int64(b.ID))
	res, err := t.tx.ExecContext(ctx, `
		UPDATE businesses SET
			identifier = $1, legal_name = $2, legal_type = $3, state = $4, state_filing_id = $5, tax_id = $6,
			founding_date = $7, dissolution_date = $8, restoration_expiry_date = $9, last_ar_date = $10,
			last_ar_year = $11, last_agm_date = $12, last_coa_date = $13, last_cod_date = $14,
			admin_freeze = $15, naics_code = $16, naics_description = $17,
			jurisdiction = $18, offices = $19, party_roles = $20, share_classes = $21, aliases = $22,
			resolutions = $23, consent_outs = $24, last_modified = NOW()
		WHERE id = $25`, args...)
	if err != nil {
		return 0, classify("update business", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("business %s: %w", b.ID, sentinel.ErrNotFound)
	}
	return b.ID, nil
}

func (t *postgresTx) CreateFiling(ctx context.Context, f *models.Filing) (id.FilingID, error) {
	payload, meta, err := marshalFilingDocs(f)
	if err != nil {
		return 0, err
	}
	var newID int64
	err = t.tx.QueryRowContext(ctx, `
		INSERT INTO filings (business_id, temp_identifier, filing_type, sub_type, status, payload,
			effective_date, submitted_date, completion_date, parent_filing_id, withdrawn_filing_id, meta, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		nullableBusinessID(f.BusinessID), f.TempIdentifier, string(f.Type), f.SubType, string(f.Status), payload,
		f.EffectiveDate, f.SubmittedDate, f.CompletionDate, nullableFilingID(f.ParentFilingID),
		nullableFilingID(f.WithdrawnFilingID), meta, f.Comment,
	).Scan(&newID)
	if err != nil {
		return 0, classify("insert filing", err)
	}
	f.ID = id.FilingID(newID)
	return f.ID, nil
}

func (t *postgresTx) SaveFiling(ctx context.Context, f *models.Filing) error {
	payload, meta, err := marshalFilingDocs(f)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE filings SET
			business_id = $2, temp_identifier = $3, filing_type = $4, sub_type = $5, status = $6, payload = $7,
			effective_date = $8, completion_date = $9, parent_filing_id = $10, withdrawn_filing_id = $11,
			meta = $12, comment = $13
		WHERE id = $1`,
		int64(f.ID), nullableBusinessID(f.BusinessID), f.TempIdentifier, string(f.Type), f.SubType, string(f.Status),
		payload, f.EffectiveDate, f.CompletionDate, nullableFilingID(f.ParentFilingID),
		nullableFilingID(f.WithdrawnFilingID), meta, f.Comment)
	if err != nil {
		return classify("update filing", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("filing %s: %w", f.ID, sentinel.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFiling(row scanner) (*models.Filing, error) {
	var (
		f                                 models.Filing
		filingID                          int64
		businessID, parentID, withdrawnID sql.NullInt64
		filingType, status                string
		payload                           []byte
		meta                              []byte
	)
	err := row.Scan(&filingID, &businessID, &f.TempIdentifier, &filingType, &f.SubType, &status, &payload,
		&f.EffectiveDate, &f.SubmittedDate, &f.CompletionDate, &parentID, &withdrawnID, &meta, &f.Comment)
	if err != nil {
		return nil, err
	}
	f.ID = id.FilingID(filingID)
	f.Type = models.FilingType(filingType)
	f.Status = models.Status(status)
	if businessID.Valid {
		b := id.BusinessID(businessID.Int64)
		f.BusinessID = &b
	}
	f.ParentFilingID = filingIDPtr(parentID)
	f.WithdrawnFilingID = filingIDPtr(withdrawnID)

	f.Payload, err = document.Parse(payload)
	if err != nil {
		return nil, fmt.Errorf("filing %d payload: %w", filingID, err)
	}
	f.Meta = models.NewMeta()
	if len(meta) > 0 && string(meta) != "null" {
		if err := json.Unmarshal(meta, f.Meta); err != nil {
			return nil, fmt.Errorf("filing %d meta: %w", filingID, err)
		}
	}
	return &f, nil
}

func scanBusiness(row scanner) (*bizmodels.Business, error) {
	var (
		b                              bizmodels.Business
		businessID                     int64
		legalType, state               string
		stateFilingID                  sql.NullInt64
		foundingDate                   sql.NullTime
		jurisdiction                   []byte
		offices, roles, shares         []byte
		aliases, resolutions, consents []byte
	)
	err := row.Scan(&businessID, &b.Identifier, &b.LegalName, &legalType, &state, &stateFilingID, &b.TaxID,
		&foundingDate, &b.DissolutionDate, &b.RestorationExpiryDate, &b.LastARDate, &b.LastARYear,
		&b.LastAGMDate, &b.LastCOADate, &b.LastCODDate, &b.AdminFreeze, &b.NAICSCode, &b.NAICSDescription,
		&jurisdiction, &offices, &roles, &shares, &aliases, &resolutions, &consents)
	if err != nil {
		return nil, err
	}
	b.ID = id.BusinessID(businessID)
	b.LegalType = bizmodels.LegalType(legalType)
	b.State = bizmodels.State(state)
	b.StateFilingID = filingIDPtr(stateFilingID)
	if foundingDate.Valid {
		b.FoundingDate = foundingDate.Time
	}

	decode := []struct {
		name string
		raw  []byte
		into any
	}{
		{"offices", offices, &b.Offices},
		{"party_roles", roles, &b.PartyRoles},
		{"share_classes", shares, &b.ShareClasses},
		{"aliases", aliases, &b.Aliases},
		{"resolutions", resolutions, &b.Resolutions},
		{"consent_outs", consents, &b.ConsentOuts},
	}
	for _, d := range decode {
		if err := json.Unmarshal(d.raw, d.into); err != nil {
			return nil, fmt.Errorf("business %d %s: %w", businessID, d.name, err)
		}
	}
	if len(jurisdiction) > 0 && string(jurisdiction) != "null" {
		var j bizmodels.Jurisdiction
		if err := json.Unmarshal(jurisdiction, &j); err != nil {
			return nil, fmt.Errorf("business %d jurisdiction: %w", businessID, err)
		}
		b.Jurisdiction = &j
	}
	return &b, nil
}

func marshalCollections(b *bizmodels.Business) ([]any, error) {
	var jurisdiction any
	if b.Jurisdiction != nil {
		raw, err := json.Marshal(b.Jurisdiction)
		if err != nil {
			return nil, fmt.Errorf("marshal jurisdiction: %w", err)
		}
		jurisdiction = string(raw)
	}
	out := []any{jurisdiction}
	for _, v := range []any{b.Offices, b.PartyRoles, b.ShareClasses, b.Aliases, b.Resolutions, b.ConsentOuts} {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal business collections: %w", err)
		}
		if string(raw) == "null" {
			raw = []byte("[]")
		}
		out = append(out, string(raw))
	}
	return out, nil
}

// marshalFilingDocs renders payload and meta as strings; lib/pq would send
// []byte as bytea.
func marshalFilingDocs(f *models.Filing) (payload string, meta any, err error) {
	raw, err := json.Marshal(f.Payload)
	if err != nil {
		return "", nil, fmt.Errorf("marshal filing payload: %w", err)
	}
	if f.Meta != nil {
		m, err := json.Marshal(f.Meta)
		if err != nil {
			return "", nil, fmt.Errorf("marshal filing meta: %w", err)
		}
		meta = string(m)
	}
	return string(raw), meta, nil
}

// classify marks transient PostgreSQL failures as unavailable so the caller
// can tell them from programming errors.
func classify(op string, err error) error {
	if postgres.IsTransient(err) {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func filingIDPtr(v sql.NullInt64) *id.FilingID {
	if !v.Valid {
		return nil
	}
	fid := id.FilingID(v.Int64)
	return &fid
}

func nullableFilingID(v *id.FilingID) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullableBusinessID(v *id.BusinessID) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

// nullableLimit maps a non-positive limit to LIMIT NULL, which is no limit.
func nullableLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func nullableTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}
