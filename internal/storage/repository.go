package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/tripsim/internal/geo"
	"github.com/neexbeast/tripsim/internal/simulation"
)

const defaultListLimit = 50

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides database access for simulation records.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

// ListFilter narrows ListSimulations. Zero values do not filter.
type ListFilter struct {
	Destination  string
	WithinBudget *bool
	Limit        int
}

// SaveSimulation inserts rec, replacing any earlier record with the same ID.
// The origin and destination columns hold the folded place names.
func (r *Repository) SaveSimulation(ctx context.Context, rec *simulation.Record) error {
	if rec == nil || rec.Result == nil {
		return errors.New("saving simulation: record has no result")
	}

	reqJSON, err := json.Marshal(rec.Request)
	if err != nil {
		return fmt.Errorf("marshaling request for simulation %s: %w", rec.ID, err)
	}
	resJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshaling result for simulation %s: %w", rec.ID, err)
	}

	const q = `
		INSERT INTO simulations (id, origin, destination, request, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET request    = EXCLUDED.request,
		    result     = EXCLUDED.result,
		    created_at = EXCLUDED.created_at
	`

	if _, err := r.q.Exec(ctx, q,
		rec.ID,
		geo.Fold(rec.Request.Origin),
		geo.Fold(rec.Request.Destination),
		reqJSON,
		resJSON,
		rec.CreatedAt,
	); err != nil {
		return fmt.Errorf("upserting simulation %s: %w", rec.ID, err)
	}

	return nil
}

// GetSimulation retrieves a record by ID.
// Returns nil, nil when no record exists.
func (r *Repository) GetSimulation(ctx context.Context, id string) (*simulation.Record, error) {
	const q = `
		SELECT id, request, result, created_at
		FROM simulations
		WHERE id = $1
	`

	rec, err := scanRecord(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying simulation %s: %w", id, err)
	}

	return rec, nil
}

// ListSimulations returns stored records, newest first. WithinBudget is
// matched with the JSONB @> containment operator on the result column.
func (r *Repository) ListSimulations(ctx context.Context, f ListFilter) ([]*simulation.Record, error) {
	contains := map[string]any{}
	if f.WithinBudget != nil {
		contains["within_budget"] = *f.WithinBudget
	}
	filter, err := json.Marshal(contains)
	if err != nil {
		return nil, fmt.Errorf("marshaling JSONB filter: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	const q = `
		SELECT id, request, result, created_at
		FROM simulations
		WHERE ($1 = '' OR destination = $1)
		AND result @> $2::jsonb
		ORDER BY created_at DESC, id
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, q, geo.Fold(f.Destination), string(filter), limit)
	if err != nil {
		return nil, fmt.Errorf("querying simulations: %w", err)
	}
	defer rows.Close()

	results := []*simulation.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating simulation rows: %w", err)
	}

	return results, nil
}

func scanRecord(row pgx.Row) (*simulation.Record, error) {
	var rec simulation.Record
	var reqJSON, resJSON []byte

	if err := row.Scan(&rec.ID, &reqJSON, &resJSON, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning simulation row: %w", err)
	}

	if err := json.Unmarshal(reqJSON, &rec.Request); err != nil {
		return nil, fmt.Errorf("unmarshaling request for simulation %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(resJSON, &rec.Result); err != nil {
		return nil, fmt.Errorf("unmarshaling result for simulation %s: %w", rec.ID, err)
	}

	return &rec, nil
}
