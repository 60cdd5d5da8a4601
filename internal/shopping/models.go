package shopping

import "time"

// ShoppingList is a stored aggregation of one saved plan.
type ShoppingList struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	PlanID    string    `json:"plan_id"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

// Text renders the stored list the same way a fresh export would.
func (l *ShoppingList) Text() string {
	return Format(l.Items)
}
