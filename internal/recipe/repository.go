package recipe

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Repository is a database-backed cache of imported recipes. It also acts as
// a corpus Source so generation can run without the original file.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save inserts or replaces a recipe, keyed by name.
func (r *Repository) Save(ctx context.Context, rec Recipe) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe to JSON: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO recipes (name, category, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET category = excluded.category, data = excluded.data, updated_at = excluded.updated_at`,
		rec.Name, rec.Category, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save recipe %q: %w", rec.Name, err)
	}
	return nil
}

// SaveAll stores recipes in a single transaction.
func (r *Repository) SaveAll(ctx context.Context, recipes []Recipe) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO recipes (name, category, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET category = excluded.category, data = excluded.data, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range recipes {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal recipe %q: %w", rec.Name, err)
		}
		if _, err := stmt.ExecContext(ctx, rec.Name, rec.Category, string(data), now); err != nil {
			return fmt.Errorf("failed to save recipe %q: %w", rec.Name, err)
		}
	}
	return tx.Commit()
}

// Get retrieves a recipe by name. It returns nil when the recipe is unknown.
func (r *Repository) Get(ctx context.Context, name string) (*Recipe, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM recipes WHERE name = ?`, name).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipe by name: %w", err)
	}

	var rec Recipe
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe JSON: %w", err)
	}
	return &rec, nil
}

// List retrieves all recipes in insertion order. Corrupted rows are skipped.
func (r *Repository) List(ctx context.Context) ([]Recipe, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, data FROM recipes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return nil, fmt.Errorf("failed to scan recipe row: %w", err)
		}
		var rec Recipe
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}
		recipes = append(recipes, rec)
	}
	return recipes, rows.Err()
}

// Count returns the number of recipes in the database.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return n, nil
}

// Open serializes the stored recipes as a corpus record array.
func (r *Repository) Open(ctx context.Context) (io.ReadCloser, error) {
	recipes, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]Record, len(recipes))
	for i, rec := range recipes {
		records[i] = rec.ToRecord()
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recipes: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (r *Repository) String() string { return "sqlite recipe cache" }
