package shopping

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository handles persistence of shopping lists.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new shopping list repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d, now: time.Now}
}

// Save stores the list for (UserID, PlanID), replacing an earlier export of the same plan.
func (r *Repository) Save(ctx context.Context, list *ShoppingList) (int64, error) {
	itemsJSON, err := json.Marshal(list.Items)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal shopping list items: %w", err)
	}
	createdAt := r.now().UTC()

	var id int64
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO shopping_lists (user_id, plan_id, items, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, plan_id) DO UPDATE SET items = excluded.items, created_at = excluded.created_at
		 RETURNING id`,
		list.UserID, list.PlanID, string(itemsJSON), createdAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert shopping list: %w", err)
	}

	list.ID = id
	list.CreatedAt = createdAt
	return id, nil
}

// GetByPlanID retrieves the list a user exported for a plan, or nil if none.
func (r *Repository) GetByPlanID(ctx context.Context, userID, planID string) (*ShoppingList, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, plan_id, items, created_at FROM shopping_lists WHERE user_id = ? AND plan_id = ?`,
		userID, planID)
	list, err := scanList(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get shopping list by plan ID: %w", err)
	}
	return list, nil
}

// ListByUserID returns a user's lists, newest first.
func (r *Repository) ListByUserID(ctx context.Context, userID string, limit int) ([]*ShoppingList, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, plan_id, items, created_at FROM shopping_lists
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping lists for user %s: %w", userID, err)
	}
	defer rows.Close()

	var lists []*ShoppingList
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shopping list: %w", err)
		}
		lists = append(lists, list)
	}
	return lists, rows.Err()
}

// DeleteByPlanID deletes the list a user exported for a plan.
func (r *Repository) DeleteByPlanID(ctx context.Context, userID, planID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM shopping_lists WHERE user_id = ? AND plan_id = ?`, userID, planID)
	if err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanList(s rowScanner) (*ShoppingList, error) {
	var (
		list  ShoppingList
		items string
	)
	if err := s.Scan(&list.ID, &list.UserID, &list.PlanID, &items, &list.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &list.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list items: %w", err)
	}
	return &list, nil
}
