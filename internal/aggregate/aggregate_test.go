package aggregate

import (
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAggregate(t *testing.T) {
	end := day(2024, 12, 10)
	txs := []domain.Transaction{
		{CustomerID: "a", InvoiceID: "i1", Quantity: 2, UnitPrice: 10, Timestamp: day(2024, 10, 1)},
		{CustomerID: "a", InvoiceID: "i1", Quantity: 1, UnitPrice: 5, Timestamp: day(2024, 10, 1)},
		{CustomerID: "a", InvoiceID: "i2", Quantity: 3, UnitPrice: 4, Timestamp: day(2024, 11, 30)},
		{CustomerID: "b", InvoiceID: "i3", Quantity: 1, UnitPrice: 100, Timestamp: day(2024, 12, 1)},
	}

	table := Aggregate(txs, end)
	if table.Len() != 2 {
		t.Fatalf("expected 2 customers, got %d", table.Len())
	}

	a := table.Rows[0]
	if a.CustomerID != "a" {
		t.Fatalf("rows not sorted by customer ID: %+v", table.Rows)
	}
	// Two distinct invoices across two months, 2*10+1*5+3*4 = 37 spend.
	if a.Frequency != 2 {
		t.Errorf("frequency = %v, want 2", a.Frequency)
	}
	if a.Monetary != 37 {
		t.Errorf("monetary = %v, want 37", a.Monetary)
	}
	if a.MonthsWithPurchases != 2 {
		t.Errorf("months = %d, want 2", a.MonthsWithPurchases)
	}
	// Last purchase 2024-11-30, end 2024-12-10.
	if a.Recency != 10 {
		t.Errorf("recency = %v, want 10", a.Recency)
	}
	if !a.LastPurchaseDate.Equal(day(2024, 11, 30)) {
		t.Errorf("last purchase = %v, want 2024-11-30", a.LastPurchaseDate)
	}

	b := table.Rows[1]
	if b.Frequency != 1 || b.Monetary != 100 || b.MonthsWithPurchases != 1 {
		t.Errorf("customer b metrics = %+v", b)
	}
}

func TestAggregateSkipsMissingCustomer(t *testing.T) {
	txs := []domain.Transaction{
		{CustomerID: "", InvoiceID: "i1", Quantity: 1, UnitPrice: 10, Timestamp: day(2024, 10, 1)},
		{CustomerID: "a", InvoiceID: "i2", Quantity: 1, UnitPrice: 10, Timestamp: day(2024, 10, 1)},
	}

	table := Aggregate(txs, day(2024, 12, 10))
	if table.Len() != 1 {
		t.Fatalf("expected 1 customer, got %d", table.Len())
	}
}

func TestAggregateInvoiceFallback(t *testing.T) {
	// Sources without invoice identifiers count distinct timestamps.
	txs := []domain.Transaction{
		{CustomerID: "a", Quantity: 1, UnitPrice: 10, Timestamp: day(2024, 10, 1)},
		{CustomerID: "a", Quantity: 1, UnitPrice: 10, Timestamp: day(2024, 10, 1)},
		{CustomerID: "a", Quantity: 1, UnitPrice: 10, Timestamp: day(2024, 10, 2)},
	}

	table := Aggregate(txs, day(2024, 12, 10))
	if got := table.Rows[0].Frequency; got != 2 {
		t.Errorf("frequency = %v, want 2 distinct purchase timestamps", got)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	table := Aggregate(nil, day(2024, 12, 10))
	if table.Len() != 0 {
		t.Errorf("expected empty table, got %d rows", table.Len())
	}
}
