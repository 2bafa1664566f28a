package invoice

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/course-checkout/internal/domain/order"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sampleOrder() *order.Order {
	orderID := uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000001")
	return &order.Order{
		ID:         orderID,
		CustomerID: uuid.MustParse("feedface-0000-0000-0000-000000000002"),
		Status:     order.StatusCheckout,
		Lines: []order.Line{
			{OrderID: orderID, CourseID: uuid.New(), Price: decimal.RequireFromString("199.99"), Quantity: 1},
			{OrderID: orderID, CourseID: uuid.New(), Price: decimal.RequireFromString("45.00"), Quantity: 2, Discount: 10},
		},
	}
}

func TestGenerate(t *testing.T) {
	created := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	g := NewWithClock(fixedClock(created))
	o := sampleOrder()
	total := o.Total()

	doc := g.Generate(o, total, created.AddDate(0, 0, 30))
	text := string(doc)

	assert.True(t, strings.HasPrefix(text, "%PDF-1.4\n"))
	assert.True(t, strings.HasSuffix(text, "%%EOF\n"))

	assert.Contains(t, text, "(INVOICE) Tj")
	assert.Contains(t, text, "Invoice Number: INV-A1B2C3D4")
	assert.Contains(t, text, "Customer ID: feedface-0000-0000-0000-000000000002")
	assert.Contains(t, text, "Order ID: a1b2c3d4-0000-0000-0000-000000000001")
	assert.Contains(t, text, "Creation Date: 2024-03-15 10:30:00 UTC")
	assert.Contains(t, text, "Validity Date: 2024-04-14 10:30:00 UTC")

	// One row per line, with the discounted subtotal.
	assert.Contains(t, text, "Qty: 1 x $199.99 = $199.99")
	assert.Contains(t, text, "Qty: 2 x $45.00 = $81.00")
	// 199.99 + 81.00
	assert.Contains(t, text, "TOTAL: $280.99")
	assert.Contains(t, text, "IBAN UA123456789012345678901234567")
}

func TestGenerate_Deterministic(t *testing.T) {
	created := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	validity := created.AddDate(0, 0, 30)
	o := sampleOrder()
	total := o.Total()

	a := NewWithClock(fixedClock(created)).Generate(o, total, validity)
	b := NewWithClock(fixedClock(created)).Generate(o, total, validity)

	require.Equal(t, a, b, "fixed inputs and clock produce identical bytes")
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "INV-A1B2C3D4", Number("a1b2c3d4-0000-0000-0000-000000000001"))
	assert.Equal(t, "INV-AB", Number("ab"))
}
