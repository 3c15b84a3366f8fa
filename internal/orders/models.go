package orders

import "time"

// Owner is the requester identity snapshot frozen onto an order at
// placement; it is never re-derived from the account afterwards.
type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LineInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// OrderLine is immutable once part of a committed order. PriceCents is the
// unit price captured at reservation time.
type OrderLine struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

type Order struct {
	ID         string      `json:"id"`
	ExternalID string      `json:"external_id,omitempty"`
	Owner      Owner       `json:"owner"`
	Lines      []OrderLine `json:"lines"`
	Status     Status      `json:"status"`
	TotalCents int         `json:"total_cents"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
