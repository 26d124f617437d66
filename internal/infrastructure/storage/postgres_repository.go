package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/ports"
)

const uniqueViolation = pq.ErrorCode("23505")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository persists competitors, events and signals into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var (
	_ ports.CompetitorSource = (*PostgresRepository)(nil)
	_ ports.EventWriter      = (*PostgresRepository)(nil)
	_ ports.SignalRepository = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string, maxOpen int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// ListCompetitors returns every tracked company ordered by name.
func (r *PostgresRepository) ListCompetitors(ctx context.Context) ([]domain.Competitor, error) {
	query, args, err := psql.
		Select("id", "name", "COALESCE(ticker, '')").
		From("competitors").
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build competitors query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query competitors: %w", err)
	}
	defer rows.Close()

	var result []domain.Competitor
	for rows.Next() {
		var c domain.Competitor
		if err := rows.Scan(&c.ID, &c.Name, &c.Ticker); err != nil {
			return nil, fmt.Errorf("scan competitor: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// WriteEvent inserts the event. A unique violation on url reports
// Inserted=false without an error.
func (r *PostgresRepository) WriteEvent(ctx context.Context, event domain.Event) (domain.WriteResult, error) {
	query, args, err := psql.
		Insert("competitor_events").
		Columns("competitor_id", "headline", "summary", "url", "published_at", "is_important").
		Values(event.CompetitorID, event.Headline, nullString(event.Summary), event.URL, nullTime(event), event.IsImportant).
		ToSql()
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("build event insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if IsUniqueViolation(err) {
			return domain.WriteResult{Inserted: false}, nil
		}
		return domain.WriteResult{}, fmt.Errorf("insert event %s: %w", event.URL, err)
	}
	return domain.WriteResult{Inserted: true}, nil
}

// InsertSignal stores a signal and returns the generated id. A signal for an
// already stored source URL is reported as a duplicate.
func (r *PostgresRepository) InsertSignal(ctx context.Context, s domain.Signal) (domain.WriteResult, error) {
	query, args, err := psql.
		Insert("signals").
		Columns("company_name", "signal_type", "title", "impact", "confidence", "action",
			"person", "amount", "source_url", "detected_at", "is_important").
		Values(s.CompanyName, string(s.Type), s.Title, string(s.Impact), nullString(string(s.Confidence)), s.Action,
			nullString(s.Person), nullString(s.Amount), nullString(s.SourceURL), s.DetectedAt, s.IsImportant).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("build signal insert: %w", err)
	}

	var id string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if IsUniqueViolation(err) {
			return domain.WriteResult{Inserted: false}, nil
		}
		return domain.WriteResult{}, fmt.Errorf("insert signal: %w", err)
	}
	return domain.WriteResult{Inserted: true, ID: id}, nil
}

// RecentSignals lists signals newest first.
func (r *PostgresRepository) RecentSignals(ctx context.Context, filter ports.SignalFilter) ([]domain.Signal, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	builder := psql.
		Select(signalColumns...).
		From("signals").
		OrderBy("detected_at DESC").
		Limit(uint64(limit))
	if filter.Company != "" {
		builder = builder.Where(sq.Eq{"company_name": filter.Company})
	}
	if filter.Impact != "" {
		builder = builder.Where(sq.Eq{"impact": string(filter.Impact)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build signals query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var result []domain.Signal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// SignalByID loads one stored signal. The live listener uses it to resolve
// the id-only trigger payload.
func (r *PostgresRepository) SignalByID(ctx context.Context, id string) (domain.Signal, error) {
	query, args, err := psql.
		Select(signalColumns...).
		From("signals").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Signal{}, fmt.Errorf("build signal lookup: %w", err)
	}

	s, err := scanSignal(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return domain.Signal{}, fmt.Errorf("signal %s: %w", id, err)
	}
	return s, nil
}

var signalColumns = []string{
	"id", "company_name", "signal_type", "title", "impact",
	"COALESCE(confidence, '')", "action", "COALESCE(person, '')", "COALESCE(amount, '')",
	"COALESCE(source_url, '')", "detected_at", "is_important",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(row rowScanner) (domain.Signal, error) {
	var (
		s                           domain.Signal
		sigType, impact, confidence string
	)
	if err := row.Scan(&s.ID, &s.CompanyName, &sigType, &s.Title, &impact, &confidence,
		&s.Action, &s.Person, &s.Amount, &s.SourceURL, &s.DetectedAt, &s.IsImportant); err != nil {
		return domain.Signal{}, fmt.Errorf("scan signal: %w", err)
	}
	s.Type = domain.SignalType(sigType)
	s.Impact = domain.Level(impact)
	s.Confidence = domain.Level(confidence)
	return s, nil
}

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(e domain.Event) any {
	if e.PublishedAt.IsZero() {
		return nil
	}
	return e.PublishedAt.UTC()
}
