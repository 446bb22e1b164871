package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/cityplan/internal/plan"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository archives generated plans for the recent-generations listing.
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

// Generation is one archived plan generation.
type Generation struct {
	ID        string       `json:"id"`
	Signature string       `json:"signature"`
	Request   plan.Request `json:"request"`
	Plans     []plan.Plan  `json:"plans"`
	CreatedAt time.Time    `json:"createdAt"`
}

// SavePlans archives one generation and returns its identifier. The
// signature is the lowercased stop names of every plan joined in order, so
// near-identical generations can be grouped later.
func (r *Repository) SavePlans(ctx context.Context, req plan.Request, plans []plan.Plan) (string, error) {
	id := uuid.NewString()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}
	plansJSON, err := json.Marshal(plans)
	if err != nil {
		return "", fmt.Errorf("marshaling plans: %w", err)
	}

	const q = `
		INSERT INTO plan_history (id, signature, request, plans)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.q.Exec(ctx, q, id, signature(plans), reqJSON, plansJSON); err != nil {
		return "", fmt.Errorf("inserting plan history: %w", err)
	}

	return id, nil
}

// RecentGenerations returns the newest archived generations, up to limit.
func (r *Repository) RecentGenerations(ctx context.Context, limit int) ([]Generation, error) {
	const q = `
		SELECT id, signature, request, plans, created_at
		FROM plan_history
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("querying plan history: %w", err)
	}
	defer rows.Close()

	var results []Generation
	for rows.Next() {
		var g Generation
		var reqJSON, plansJSON []byte

		if err := rows.Scan(&g.ID, &g.Signature, &reqJSON, &plansJSON, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning plan history row: %w", err)
		}

		if err := json.Unmarshal(reqJSON, &g.Request); err != nil {
			return nil, fmt.Errorf("unmarshaling archived request: %w", err)
		}
		if err := json.Unmarshal(plansJSON, &g.Plans); err != nil {
			return nil, fmt.Errorf("unmarshaling archived plans: %w", err)
		}

		results = append(results, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plan history rows: %w", err)
	}

	return results, nil
}

// signature flattens every stop name across the plans into one lowercase
// pipe-joined key.
func signature(plans []plan.Plan) string {
	var names []string
	for _, p := range plans {
		for _, s := range p.Stops {
			names = append(names, strings.ToLower(s.Name))
		}
	}
	return strings.Join(names, "|")
}
