package sale

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the durable lifecycle state of an intent.
// Transitions are monotonic: pending -> synced -> (removed).
type Status string

const (
	// StatusPending means the remote endpoint has not confirmed the sale.
	StatusPending Status = "pending"

	// StatusSynced means the remote endpoint confirmed the sale and the
	// confirmation was recorded durably. The record is waiting for removal.
	StatusSynced Status = "synced"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusSynced
}

// Item is one line of a sale.
type Item struct {
	ProductID string          `json:"product_id" yaml:"product_id"`
	Quantity  decimal.Decimal `json:"quantity" yaml:"quantity"`
	Price     decimal.Decimal `json:"price" yaml:"price"`
	CostPrice decimal.Decimal `json:"cost_price" yaml:"cost_price"`
}

// Subtotal returns Price * Quantity.
func (it Item) Subtotal() decimal.Decimal {
	return it.Price.Mul(it.Quantity)
}

// SaleData is a finalized, user-confirmed sale as handed over by the UI
// layer. It becomes an Intent once it has been written to the store.
type SaleData struct {
	CompanyID       string          `json:"company_id" yaml:"company_id"`
	StoreLocationID string          `json:"store_location_id,omitempty" yaml:"store_location_id"`
	PaymentMethod   string          `json:"payment_method" yaml:"payment_method"`
	CustomerID      string          `json:"customer_id,omitempty" yaml:"customer_id"`
	Comment         string          `json:"comment,omitempty" yaml:"comment"`
	TotalAmount     decimal.Decimal `json:"total_amount" yaml:"total_amount"`
	Items           []Item          `json:"items" yaml:"items"`

	// OperationAt is the business time of the sale. Zero means "let the
	// server decide".
	OperationAt time.Time `json:"operation_at,omitzero" yaml:"operation_at"`
}

// Intent is a durable record of "this sale should be posted remotely".
type Intent struct {
	LocalID         string          `json:"local_id"`
	CompanyID       string          `json:"company_id"`
	StoreLocationID string          `json:"store_location_id,omitempty"`
	PaymentMethod   string          `json:"payment_method"`
	CustomerID      string          `json:"customer_id,omitempty"`
	Comment         string          `json:"comment,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Items           []Item          `json:"items"`
	OperationAt     time.Time       `json:"operation_at,omitzero"`
	CreatedAt       time.Time       `json:"created_at"`
	Status          Status          `json:"status"`
	RemoteID        string          `json:"remote_id,omitempty"`

	// Seq is the store-assigned insertion sequence. It is informative only
	// and is reset when the database file is recreated.
	Seq int64 `json:"seq"`

	// Fingerprint is the content hash of the sale payload (see Fingerprint).
	Fingerprint string `json:"fingerprint"`
}

// NewIntent builds a pending intent from sale data.
func NewIntent(localID string, data SaleData, createdAt time.Time) Intent {
	items := make([]Item, len(data.Items))
	copy(items, data.Items)

	return Intent{
		LocalID:         localID,
		CompanyID:       data.CompanyID,
		StoreLocationID: data.StoreLocationID,
		PaymentMethod:   data.PaymentMethod,
		CustomerID:      data.CustomerID,
		Comment:         data.Comment,
		TotalAmount:     data.TotalAmount,
		Items:           items,
		OperationAt:     data.OperationAt,
		CreatedAt:       createdAt,
		Status:          StatusPending,
	}
}

// Recovered reports whether the intent was confirmed by an earlier run
// that did not get as far as removing it.
func (in Intent) Recovered() bool {
	return in.Status == StatusSynced && in.RemoteID != ""
}

// ConfirmRequest is the payload of the remote confirmation call.
type ConfirmRequest struct {
	CompanyID       string
	StoreLocationID string
	PaymentMethod   string
	TotalAmount     decimal.Decimal
	CustomerID      string
	Comment         string
	Items           []Item
	WarehouseID     string
	OperationAt     time.Time
}

// ConfirmRequest builds the remote payload for the intent.
// The warehouse is never chosen by the client for a sale; the server
// resolves it from the store location.
func (in Intent) ConfirmRequest() ConfirmRequest {
	return ConfirmRequest{
		CompanyID:       in.CompanyID,
		StoreLocationID: in.StoreLocationID,
		PaymentMethod:   in.PaymentMethod,
		TotalAmount:     in.TotalAmount,
		CustomerID:      in.CustomerID,
		Comment:         in.Comment,
		Items:           in.Items,
		OperationAt:     in.OperationAt,
	}
}

// Confirmation is the result of the remote confirmation call.
type Confirmation struct {
	Success  bool   `json:"success"`
	RemoteID string `json:"sale_id"`
	Message  string `json:"message"`
}
