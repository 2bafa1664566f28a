package payment

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/course-checkout/internal/domain/order"
	"github.com/xenking/course-checkout/internal/gateway"
)

// --- Mock implementations ---

// mockOrders serves a single open order and records status commits.
type mockOrders struct {
	open      *order.Order
	statusLog []order.Status
	updateErr map[order.Status]error
}

func (m *mockOrders) FindOpenByCustomer(_ context.Context, customerID uuid.UUID) (*order.Order, error) {
	if m.open == nil || m.open.CustomerID != customerID {
		return nil, order.ErrCartNotFound
	}
	return m.open, nil
}

func (m *mockOrders) FindByID(_ context.Context, _ uuid.UUID) (*order.Order, error) {
	return nil, order.ErrNotFound
}

func (m *mockOrders) ListCompletedByCustomer(_ context.Context, _ uuid.UUID) ([]order.Order, error) {
	return nil, nil
}

func (m *mockOrders) Create(_ context.Context, _ *order.Order) error { return nil }

func (m *mockOrders) UpdateStatus(_ context.Context, o *order.Order) error {
	if err := m.updateErr[o.Status]; err != nil {
		return err
	}
	m.statusLog = append(m.statusLog, o.Status)
	o.Version++
	return nil
}

func (m *mockOrders) AddLine(_ context.Context, _ order.Line) error { return nil }

func (m *mockOrders) UpdateLineQuantity(_ context.Context, _, _ uuid.UUID, _ int) error { return nil }

func (m *mockOrders) DeleteLine(_ context.Context, _, _ uuid.UUID) error { return nil }

type mockGateway struct {
	err     error
	calls   int
	lastReq gateway.ChargeRequest
}

func (m *mockGateway) Charge(_ context.Context, req gateway.ChargeRequest) error {
	m.calls++
	m.lastReq = req
	return m.err
}

type mockInvoicer struct {
	doc          []byte
	lastTotal    decimal.Decimal
	lastValidity time.Time
}

func (m *mockInvoicer) Generate(_ *order.Order, total decimal.Decimal, validity time.Time) []byte {
	m.lastTotal = total
	m.lastValidity = validity
	return m.doc
}

// --- Helpers ---

func newCart(customerID uuid.UUID, lines ...order.Line) *order.Order {
	o := &order.Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     order.StatusOpen,
		Date:       time.Now().UTC(),
	}
	for i := range lines {
		lines[i].OrderID = o.ID
	}
	o.Lines = lines
	return o
}

func line(price string, qty, discount int) order.Line {
	return order.Line{
		CourseID: uuid.New(),
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
		Discount: discount,
	}
}

// --- Tests ---

func TestProcess_VisaSuccess(t *testing.T) {
	customerID := uuid.New()
	cart := newCart(customerID, line("100.00", 2, 0), line("50.00", 1, 10))
	orders := &mockOrders{open: cart}
	gw := &mockGateway{}
	d := NewDispatcher(orders, gw, &mockInvoicer{}, 30)

	outcome, err := d.Process(context.Background(), customerID, Request{
		Method: MethodVisa,
		Card:   &Card{Holder: "J SMITH", CardNumber: "4111111111111111", MonthExpire: 12, YearExpire: 2029, CVV2: 123},
	})

	require.NoError(t, err)
	assert.Equal(t, []order.Status{order.StatusCheckout, order.StatusPaid}, orders.statusLog)
	assert.Equal(t, 1, gw.calls, "gateway called exactly once")

	require.NotNil(t, outcome.Receipt)
	assert.Nil(t, outcome.Invoice)
	assert.Equal(t, customerID, outcome.Receipt.UserID)
	assert.Equal(t, cart.ID, outcome.Receipt.OrderID)
	// 200 + 50*0.9 = 245.00
	assert.True(t, decimal.RequireFromString("245.00").Equal(outcome.Receipt.Sum))

	assert.Equal(t, "visa-1111", gw.lastReq.Token)
	assert.Equal(t, gateway.MethodCodeCreditCard, gw.lastReq.MethodCode)
	assert.Equal(t, "1111", gw.lastReq.AdditionalData["card_last_four"])
	assert.Equal(t, cart.Lines[0].CourseID, gw.lastReq.CourseID)
}

func TestProcess_IBoxSuccess(t *testing.T) {
	customerID := uuid.New()
	orders := &mockOrders{open: newCart(customerID, line("80.00", 1, 0))}
	gw := &mockGateway{}
	d := NewDispatcher(orders, gw, &mockInvoicer{}, 30)

	outcome, err := d.Process(context.Background(), customerID, Request{Method: MethodIBox})

	require.NoError(t, err)
	assert.Equal(t, []order.Status{order.StatusCheckout, order.StatusPaid}, orders.statusLog)
	assert.Equal(t, "ibox-terminal-token", gw.lastReq.Token)
	assert.Equal(t, gateway.MethodCodeCash, gw.lastReq.MethodCode)
	assert.Equal(t, "IBOX-001", gw.lastReq.AdditionalData["terminal_id"])
	require.NotNil(t, outcome.Receipt)
}

func TestProcess_BankGeneratesInvoice(t *testing.T) {
	customerID := uuid.New()
	orders := &mockOrders{open: newCart(customerID, line("100.00", 1, 0))}
	gw := &mockGateway{}
	inv := &mockInvoicer{doc: []byte("%PDF-1.4 fake")}
	d := NewDispatcher(orders, gw, inv, 30)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	outcome, err := d.Process(context.Background(), customerID, Request{Method: MethodBank})

	require.NoError(t, err)
	assert.Equal(t, []order.Status{order.StatusCheckout, order.StatusPaid}, orders.statusLog)
	assert.Zero(t, gw.calls, "bank payments never reach the gateway")
	assert.Equal(t, []byte("%PDF-1.4 fake"), outcome.Invoice)
	assert.Nil(t, outcome.Receipt)
	assert.Equal(t, now.AddDate(0, 0, 30), inv.lastValidity)
	assert.True(t, decimal.RequireFromString("100.00").Equal(inv.lastTotal))
}

func TestProcess_GatewayFailureCancelsOrder(t *testing.T) {
	customerID := uuid.New()
	cart := newCart(customerID, line("100.00", 1, 0))
	orders := &mockOrders{open: cart}
	gw := &mockGateway{err: gateway.ErrUnavailable}
	d := NewDispatcher(orders, gw, &mockInvoicer{}, 30)

	_, err := d.Process(context.Background(), customerID, Request{Method: MethodIBox})

	require.ErrorIs(t, err, gateway.ErrUnavailable)
	assert.Equal(t, []order.Status{order.StatusCheckout, order.StatusCancelled}, orders.statusLog)
	assert.Equal(t, order.StatusCancelled, cart.Status)
}

func TestProcess_EmptyCart(t *testing.T) {
	customerID := uuid.New()
	orders := &mockOrders{open: newCart(customerID)}
	d := NewDispatcher(orders, &mockGateway{}, &mockInvoicer{}, 30)

	_, err := d.Process(context.Background(), customerID, Request{Method: MethodVisa})

	require.ErrorIs(t, err, order.ErrEmptyCart)
	assert.Empty(t, orders.statusLog, "no status transition is persisted")
}

func TestProcess_NoCart(t *testing.T) {
	orders := &mockOrders{}
	d := NewDispatcher(orders, &mockGateway{}, &mockInvoicer{}, 30)

	_, err := d.Process(context.Background(), uuid.New(), Request{Method: MethodVisa})

	require.ErrorIs(t, err, order.ErrCartNotFound)
	assert.Empty(t, orders.statusLog)
}

func TestProcess_UnknownMethodLeavesCheckout(t *testing.T) {
	customerID := uuid.New()
	cart := newCart(customerID, line("100.00", 1, 0))
	orders := &mockOrders{open: cart}
	gw := &mockGateway{}
	d := NewDispatcher(orders, gw, &mockInvoicer{}, 30)

	_, err := d.Process(context.Background(), customerID, Request{Method: "Bitcoin"})

	var unknown *UnknownMethodError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Bitcoin", unknown.Method)
	assert.Zero(t, gw.calls)
	assert.Equal(t, []order.Status{order.StatusCheckout}, orders.statusLog,
		"the order stays in checkout, it is not cancelled")
}

func TestProcess_VisaWithoutCard(t *testing.T) {
	customerID := uuid.New()
	orders := &mockOrders{open: newCart(customerID, line("100.00", 1, 0))}
	gw := &mockGateway{}
	d := NewDispatcher(orders, gw, &mockInvoicer{}, 30)

	_, err := d.Process(context.Background(), customerID, Request{Method: MethodVisa})

	require.ErrorIs(t, err, ErrCardRequired)
	assert.Zero(t, gw.calls)
	assert.Equal(t, []order.Status{order.StatusCheckout}, orders.statusLog)
}

func TestProcess_CheckoutCommitConflict(t *testing.T) {
	customerID := uuid.New()
	orders := &mockOrders{
		open:      newCart(customerID, line("100.00", 1, 0)),
		updateErr: map[order.Status]error{order.StatusCheckout: order.ErrVersionConflict},
	}
	gw := &mockGateway{}
	d := NewDispatcher(orders, gw, &mockInvoicer{}, 30)

	_, err := d.Process(context.Background(), customerID, Request{Method: MethodIBox})

	require.ErrorIs(t, err, order.ErrVersionConflict)
	assert.Zero(t, gw.calls, "a lost checkout race never reaches the gateway")
	assert.Empty(t, orders.statusLog)
}

func TestProcess_PaidCommitFailurePropagates(t *testing.T) {
	customerID := uuid.New()
	orders := &mockOrders{
		open:      newCart(customerID, line("100.00", 1, 0)),
		updateErr: map[order.Status]error{order.StatusPaid: errors.New("db down")},
	}
	gw := &mockGateway{}
	d := NewDispatcher(orders, gw, &mockInvoicer{}, 30)

	_, err := d.Process(context.Background(), customerID, Request{Method: MethodIBox})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit paid")
	// The gateway already charged; the order is not cancelled.
	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, []order.Status{order.StatusCheckout}, orders.statusLog)
}
