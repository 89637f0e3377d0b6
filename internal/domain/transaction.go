package domain

import (
	"time"
)

// Logical column names used throughout configuration. Physical source
// column headers are mapped onto these via ColumnsConfig.
const (
	ColCustomerID = "customer_id"
	ColDate       = "date"
	ColInvoice    = "invoice"
	ColPrice      = "price"
	ColQuantity   = "quantity"
)

// Transaction is a single purchase line item from the source data.
// UnitPrice and Quantity are NaN when the source value was missing or
// unparsable; CustomerID and InvoiceID are empty when missing.
type Transaction struct {
	CustomerID string    `json:"customerId"`
	InvoiceID  string    `json:"invoiceId"`
	Quantity   float64   `json:"quantity"`
	UnitPrice  float64   `json:"unitPrice"`
	Timestamp  time.Time `json:"timestamp"`
}

// Amount is the monetary value of the line item.
func (t *Transaction) Amount() float64 {
	return t.UnitPrice * t.Quantity
}
