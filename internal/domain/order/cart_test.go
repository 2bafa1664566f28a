package order

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/course-checkout/internal/domain/course"
)

// --- Mock implementations ---

type mockCourseRepo struct {
	byID map[uuid.UUID]*course.Course
}

func (m *mockCourseRepo) GetByID(_ context.Context, id uuid.UUID) (*course.Course, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, course.ErrNotFound
	}
	return c, nil
}

// memOrderRepo is an in-memory order.Repository for cart tests.
type memOrderRepo struct {
	orders map[uuid.UUID]*Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[uuid.UUID]*Order)}
}

func (m *memOrderRepo) FindOpenByCustomer(_ context.Context, customerID uuid.UUID) (*Order, error) {
	for _, o := range m.orders {
		if o.CustomerID == customerID && o.Status == StatusOpen {
			cp := *o
			cp.Lines = append([]Line(nil), o.Lines...)
			return &cp, nil
		}
	}
	return nil, ErrCartNotFound
}

func (m *memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	cp.Lines = append([]Line(nil), o.Lines...)
	return &cp, nil
}

func (m *memOrderRepo) ListCompletedByCustomer(_ context.Context, customerID uuid.UUID) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.CustomerID == customerID && (o.Status == StatusPaid || o.Status == StatusCancelled) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrderRepo) Create(_ context.Context, o *Order) error {
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrderRepo) UpdateStatus(_ context.Context, o *Order) error {
	stored, ok := m.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != o.Version {
		return ErrVersionConflict
	}
	stored.Status = o.Status
	stored.Date = o.Date
	stored.Version++
	o.Version++
	return nil
}

func (m *memOrderRepo) AddLine(_ context.Context, l Line) error {
	o := m.orders[l.OrderID]
	o.Lines = append(o.Lines, l)
	return nil
}

func (m *memOrderRepo) UpdateLineQuantity(_ context.Context, orderID, courseID uuid.UUID, quantity int) error {
	o := m.orders[orderID]
	for i := range o.Lines {
		if o.Lines[i].CourseID == courseID {
			o.Lines[i].Quantity = quantity
		}
	}
	return nil
}

func (m *memOrderRepo) DeleteLine(_ context.Context, orderID, courseID uuid.UUID) error {
	o := m.orders[orderID]
	for i := range o.Lines {
		if o.Lines[i].CourseID == courseID {
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memOrderRepo) openOrders(customerID uuid.UUID) int {
	n := 0
	for _, o := range m.orders {
		if o.CustomerID == customerID && o.Status == StatusOpen {
			n++
		}
	}
	return n
}

// --- Helpers ---

func newCourseRepo(courses ...course.Course) *mockCourseRepo {
	byID := make(map[uuid.UUID]*course.Course, len(courses))
	for i := range courses {
		byID[courses[i].ID] = &courses[i]
	}
	return &mockCourseRepo{byID: byID}
}

func newTestCourse(price string) course.Course {
	return course.Course{
		ID:    uuid.New(),
		Title: "English B2",
		Price: decimal.RequireFromString(price),
	}
}

// --- Tests ---

func TestAddToCart_CreatesCartLazily(t *testing.T) {
	c := newTestCourse("100.00")
	repo := newMemOrderRepo()
	svc := NewCartService(newCourseRepo(c), repo)
	customerID := uuid.New()

	require.NoError(t, svc.AddToCart(context.Background(), customerID, c.ID))

	cart, err := repo.FindOpenByCustomer(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, cart.Status)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 1, cart.Lines[0].Quantity)
	assert.Equal(t, 0, cart.Lines[0].Discount)
	assert.True(t, decimal.RequireFromString("100.00").Equal(cart.Lines[0].Price))
}

func TestAddToCart_TwiceIncrementsQuantity(t *testing.T) {
	c := newTestCourse("100.00")
	repo := newMemOrderRepo()
	svc := NewCartService(newCourseRepo(c), repo)
	customerID := uuid.New()

	require.NoError(t, svc.AddToCart(context.Background(), customerID, c.ID))
	require.NoError(t, svc.AddToCart(context.Background(), customerID, c.ID))

	cart, err := repo.FindOpenByCustomer(context.Background(), customerID)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1, "adding the same course twice must not create a second line")
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.Equal(t, 1, repo.openOrders(customerID), "at most one open order per customer")
}

func TestAddToCart_PriceSnapshotSurvivesCatalogChange(t *testing.T) {
	c := newTestCourse("100.00")
	courses := newCourseRepo(c)
	repo := newMemOrderRepo()
	svc := NewCartService(courses, repo)
	customerID := uuid.New()

	require.NoError(t, svc.AddToCart(context.Background(), customerID, c.ID))

	// Catalog price changes after the first add.
	courses.byID[c.ID].Price = decimal.RequireFromString("250.00")
	require.NoError(t, svc.AddToCart(context.Background(), customerID, c.ID))

	cart, err := repo.FindOpenByCustomer(context.Background(), customerID)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.True(t, decimal.RequireFromString("100.00").Equal(cart.Lines[0].Price),
		"line keeps the price captured at add-to-cart time")
}

func TestAddToCart_UnknownCourse(t *testing.T) {
	repo := newMemOrderRepo()
	svc := NewCartService(newCourseRepo(), repo)
	customerID := uuid.New()

	err := svc.AddToCart(context.Background(), customerID, uuid.New())
	require.ErrorIs(t, err, course.ErrNotFound)
	assert.Empty(t, repo.orders, "no order is created for an unknown course")
}

func TestRemoveFromCart(t *testing.T) {
	c1 := newTestCourse("100.00")
	c2 := newTestCourse("50.00")
	repo := newMemOrderRepo()
	svc := NewCartService(newCourseRepo(c1, c2), repo)
	customerID := uuid.New()

	require.NoError(t, svc.AddToCart(context.Background(), customerID, c1.ID))
	require.NoError(t, svc.AddToCart(context.Background(), customerID, c2.ID))

	require.NoError(t, svc.RemoveFromCart(context.Background(), customerID, c1.ID))

	cart, err := repo.FindOpenByCustomer(context.Background(), customerID)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, c2.ID, cart.Lines[0].CourseID)
}

func TestRemoveFromCart_AbsentLineIsNoop(t *testing.T) {
	c := newTestCourse("100.00")
	repo := newMemOrderRepo()
	svc := NewCartService(newCourseRepo(c), repo)
	customerID := uuid.New()

	require.NoError(t, svc.AddToCart(context.Background(), customerID, c.ID))
	require.NoError(t, svc.RemoveFromCart(context.Background(), customerID, uuid.New()))
}

func TestRemoveFromCart_NoCart(t *testing.T) {
	svc := NewCartService(newCourseRepo(), newMemOrderRepo())

	err := svc.RemoveFromCart(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, ErrCartNotFound)
}

func TestGetCart_NoCartIsEmpty(t *testing.T) {
	svc := NewCartService(newCourseRepo(), newMemOrderRepo())

	lines, err := svc.GetCart(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestAddToCart_SetsCreationDate(t *testing.T) {
	c := newTestCourse("100.00")
	repo := newMemOrderRepo()
	svc := NewCartService(newCourseRepo(c), repo)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	customerID := uuid.New()

	require.NoError(t, svc.AddToCart(context.Background(), customerID, c.ID))

	cart, err := repo.FindOpenByCustomer(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, now, cart.Date)
}
