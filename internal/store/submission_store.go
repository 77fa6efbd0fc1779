package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vbonduro/mahrfyi/internal/domain"
)

const submissionColumns = `id, asset_type, cash_amount, cash_currency, asset_description,
	estimated_value, estimated_value_currency, raw_location, location, country_code, region,
	cultural_background, profession, marriage_year, story, family_pressure_level, negotiated, created_at`

// SubmissionStore is append-only: rows are inserted and read, never changed.
type SubmissionStore struct {
	db *sql.DB
}

func NewSubmissionStore(db *sql.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	// Location matches the stored canonical location exactly.
	Location string
	Since    time.Time
	Limit    int
}

func (s *SubmissionStore) Create(ctx context.Context, sub *domain.Submission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (`+submissionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sub.ID.String(),
		string(sub.AssetType),
		nullDecimal(sub.CashAmount),
		nullString(sub.CashCurrency),
		nullString(sub.AssetDescription),
		nullDecimal(sub.EstimatedValue),
		nullString(sub.EstimatedValueCurrency),
		sub.RawLocation,
		sub.Location,
		nullString(sub.CountryCode),
		nullString(sub.Region),
		nullString(sub.CulturalBackground),
		nullString(sub.Profession),
		sub.MarriageYear,
		nullString(sub.Story),
		sub.PressureLevel,
		sub.Negotiated,
		sub.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (s *SubmissionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+submissionColumns+` FROM submissions WHERE id = ?
	`, id.String())

	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

// List returns matching submissions, newest first.
func (s *SubmissionStore) List(ctx context.Context, filter ListFilter) ([]*domain.Submission, error) {
	var (
		where []string
		args  []any
	)
	if filter.Location != "" {
		where = append(where, "location = ?")
		args = append(args, filter.Location)
	}
	if !filter.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var subs []*domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}

	return subs, nil
}

func (s *SubmissionStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return n, nil
}

// DateRange returns the oldest and newest created_at. Both are zero when the
// table is empty.
func (s *SubmissionStore) DateRange(ctx context.Context) (oldest, newest time.Time, err error) {
	var first, last sql.NullString
	err = s.db.QueryRowContext(ctx, `SELECT MIN(created_at), MAX(created_at) FROM submissions`).Scan(&first, &last)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to get date range: %w", err)
	}
	if !first.Valid || !last.Valid {
		return time.Time{}, time.Time{}, nil
	}
	if oldest, err = parseTime(first.String); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if newest, err = parseTime(last.String); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return oldest, newest, nil
}

func (s *SubmissionStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(sc scanner) (*domain.Submission, error) {
	var (
		sub                            domain.Submission
		id, assetType                  string
		cashCurrency, assetDescription sql.NullString
		estimatedCurrency, countryCode sql.NullString
		region, culture, profession    sql.NullString
		story                          sql.NullString
		marriageYear, pressure         sql.NullInt64
		cashAmount, estimatedValue     decimal.NullDecimal
	)

	err := sc.Scan(
		&id, &assetType, &cashAmount, &cashCurrency, &assetDescription,
		&estimatedValue, &estimatedCurrency, &sub.RawLocation, &sub.Location, &countryCode, &region,
		&culture, &profession, &marriageYear, &story, &pressure, &sub.Negotiated, &sub.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sub.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid submission id %q: %w", id, err)
	}
	sub.AssetType = domain.AssetType(assetType)
	sub.CashAmount = cashAmount
	sub.CashCurrency = cashCurrency.String
	sub.AssetDescription = assetDescription.String
	sub.EstimatedValue = estimatedValue
	sub.EstimatedValueCurrency = estimatedCurrency.String
	sub.CountryCode = countryCode.String
	sub.Region = region.String
	sub.CulturalBackground = culture.String
	sub.Profession = profession.String
	sub.Story = story.String
	sub.MarriageYear = nullInt(marriageYear)
	sub.PressureLevel = nullInt(pressure)

	return &sub, nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDecimal(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
