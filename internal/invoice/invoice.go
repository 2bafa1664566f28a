// Package invoice builds the offline-payment document for bank-transfer
// checkouts. The document is a minimal self-contained PDF assembled by hand;
// no external renderer is involved.
package invoice

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/course-checkout/internal/domain/order"
)

const timeLayout = "2006-01-02 15:04:05"

// Generator produces invoice PDFs. The embedded creation timestamp comes from
// the generator's clock, so output is byte-identical for fixed inputs and a
// fixed clock.
type Generator struct {
	now func() time.Time
}

// New creates a Generator using the wall clock.
func New() *Generator {
	return &Generator{now: time.Now}
}

// NewWithClock creates a Generator with a custom clock. Intended for tests.
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// Generate renders the invoice for an order. The document lists an invoice
// number derived from the order id, both ids, creation and validity
// timestamps, one row per line, and the grand total.
func (g *Generator) Generate(o *order.Order, total decimal.Decimal, validity time.Time) []byte {
	created := g.now().UTC()

	var content strings.Builder
	content.WriteString("BT\n")
	content.WriteString("/F1 24 Tf\n")
	content.WriteString("50 750 Td\n")
	content.WriteString("(INVOICE) Tj\n")
	content.WriteString("/F1 12 Tf\n")
	content.WriteString("0 -30 Td\n")
	fmt.Fprintf(&content, "(Invoice Number: %s) Tj\n", Number(o.ID.String()))
	content.WriteString("0 -20 Td\n")
	fmt.Fprintf(&content, "(Customer ID: %s) Tj\n", o.CustomerID)
	content.WriteString("0 -20 Td\n")
	fmt.Fprintf(&content, "(Order ID: %s) Tj\n", o.ID)
	content.WriteString("0 -20 Td\n")
	fmt.Fprintf(&content, "(Creation Date: %s UTC) Tj\n", created.Format(timeLayout))
	content.WriteString("0 -20 Td\n")
	fmt.Fprintf(&content, "(Validity Date: %s UTC) Tj\n", validity.UTC().Format(timeLayout))
	content.WriteString("0 -40 Td\n")
	content.WriteString("/F1 14 Tf\n")
	content.WriteString("(ORDER DETAILS) Tj\n")
	content.WriteString("/F1 12 Tf\n")
	content.WriteString("0 -25 Td\n")

	for _, l := range o.Lines {
		fmt.Fprintf(&content, "(Course: %s - Qty: %d x $%s = $%s) Tj\n",
			l.CourseID, l.Quantity, l.Price.StringFixed(2), l.Subtotal().Round(2).StringFixed(2))
		content.WriteString("0 -15 Td\n")
	}

	content.WriteString("0 -20 Td\n")
	content.WriteString("/F1 16 Tf\n")
	fmt.Fprintf(&content, "(TOTAL: $%s) Tj\n", total.StringFixed(2))
	content.WriteString("0 -40 Td\n")
	content.WriteString("/F1 10 Tf\n")
	content.WriteString("(Please pay within the validity period.) Tj\n")
	content.WriteString("0 -15 Td\n")
	content.WriteString("(Bank Account: IBAN UA123456789012345678901234567) Tj\n")
	content.WriteString("ET\n")

	var doc bytes.Buffer
	doc.WriteString("%PDF-1.4\n")
	doc.WriteString("1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n")
	doc.WriteString("2 0 obj << /Type /Pages /Kids [3 0 R] /Count 1 >> endobj\n")
	doc.WriteString("3 0 obj << /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >> endobj\n")
	doc.WriteString("5 0 obj << /Type /Font /Subtype /Type1 /BaseFont /Helvetica >> endobj\n")
	fmt.Fprintf(&doc, "4 0 obj << /Length %d >> stream\n", content.Len())
	doc.WriteString(content.String())
	doc.WriteString("endstream endobj\n")
	doc.WriteString("xref\n")
	doc.WriteString("0 6\n")
	doc.WriteString("0000000000 65535 f \n")
	doc.WriteString("0000000009 00000 n \n")
	doc.WriteString("0000000058 00000 n \n")
	doc.WriteString("0000000115 00000 n \n")
	doc.WriteString("0000000270 00000 n \n")
	doc.WriteString("0000000380 00000 n \n")
	doc.WriteString("trailer << /Size 6 /Root 1 0 R >>\n")
	doc.WriteString("startxref\n")
	doc.WriteString("459\n")
	doc.WriteString("%%EOF\n")

	return doc.Bytes()
}

// Number derives the human-facing invoice number from an order id: "INV-"
// plus the first 8 characters of the id, uppercased.
func Number(orderID string) string {
	short := orderID
	if len(short) > 8 {
		short = short[:8]
	}
	return "INV-" + strings.ToUpper(short)
}
