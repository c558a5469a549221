// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// CustomerRecord is a row of the Customer table as delivered by the data-access layer.
// Monetary and count fields stay raw text so the pipeline owns their parsing.
type CustomerRecord struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	TotalSpent  string    `json:"total_spent"`  // decimal text, empty when missing
	OrdersCount string    `json:"orders_count"` // integer text, empty when missing
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"` // zero when missing
	IsDeleted   bool      `json:"is_deleted"`
}

// Name returns the display name used by the reporting tables.
func (c CustomerRecord) Name() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Order is a row of the Orders table.
type Order struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Items      []byte    `json:"items"` // JSON array of line items
	CreatedAt  time.Time `json:"created_at"`
}
