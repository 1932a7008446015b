package tickets_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"ms-ticketshop/internal/apperrors"
	"ms-ticketshop/internal/logger"
	"ms-ticketshop/internal/models"
	ticket_db "ms-ticketshop/internal/tickets/db"
	tickets "ms-ticketshop/internal/tickets/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

// MockTicketDBLayer is a mock implementation of the TicketDBLayer interface
type MockTicketDBLayer struct {
	mock.Mock
}

func (m *MockTicketDBLayer) InsertTicketIfAbsent(ctx context.Context, ticket *models.Ticket) (bool, error) {
	args := m.Called(ctx, ticket)
	return args.Bool(0), args.Error(1)
}

func (m *MockTicketDBLayer) InsertTicketsTx(ctx context.Context, tickets []models.Ticket) (int, error) {
	args := m.Called(ctx, tickets)
	return args.Int(0), args.Error(1)
}

func (m *MockTicketDBLayer) GetTicketsByOrder(ctx context.Context, extOrderID string) ([]models.Ticket, error) {
	args := m.Called(ctx, extOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Ticket), args.Error(1)
}

func (m *MockTicketDBLayer) GetTicketByToken(ctx context.Context, token string) (*models.TicketLookup, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TicketLookup), args.Error(1)
}

func (m *MockTicketDBLayer) RecordScan(ctx context.Context, scan *models.ScanEvent) ([]models.ScanCount, error) {
	args := m.Called(ctx, scan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ScanCount), args.Error(1)
}

type MockOrderReader struct {
	mock.Mock
}

func (m *MockOrderReader) GetOrderByID(ctx context.Context, extOrderID string) (*models.Order, error) {
	args := m.Called(ctx, extOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishTicketsIssued(ctx context.Context, event models.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func completedOrder(id string, qty int) *models.Order {
	return &models.Order{
		ExtOrderID: id,
		Status:     models.StatusCompleted,
		FullName:   "Anna Nowak",
		Email:      "anna@example.com",
		TicketType: "VIP",
		Quantity:   qty,
	}
}

func strPtr(s string) *string { return &s }

// sqliteStores wires the real ticket store against in-memory SQLite.
func sqliteStores(t *testing.T, order *models.Order) (*ticket_db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	ctx := context.Background()
	for _, model := range []interface{}{(*models.Order)(nil), (*models.Ticket)(nil), (*models.ScanEvent)(nil)} {
		_, err := bunDB.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}
	if order != nil {
		order.CreatedAt = time.Now().UTC()
		order.UpdatedAt = order.CreatedAt
		_, err = bunDB.NewInsert().Model(order).Exec(ctx)
		require.NoError(t, err)
	}
	return &ticket_db.DB{Bun: bunDB}, bunDB
}

func TestTicketNumber(t *testing.T) {
	assert.Equal(t, "abc-1", tickets.TicketNumber("abc", 1))
	assert.Equal(t, "abc-20", tickets.TicketNumber("abc", 20))
}

func TestIssueTickets_RepeatedCallsAreIdempotent(t *testing.T) {
	order := completedOrder("order-1", 3)
	store, _ := sqliteStores(t, order)

	orders := new(MockOrderReader)
	orders.On("GetOrderByID", mock.Anything, "order-1").Return(order, nil)

	svc := tickets.NewTicketService(store, orders, nil, logger.NewDiscard())
	ctx := context.Background()

	issued, err := svc.IssueTickets(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, 3, issued)

	first, err := svc.GetTicketsByOrder(ctx, "order-1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		issued, err = svc.IssueTickets(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, 0, issued)
	}

	after, err := svc.GetTicketsByOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, first, after)
	require.Len(t, after, 3)
	assert.Equal(t, "order-1-1", after[0].TicketNo)
	assert.Equal(t, "order-1-3", after[2].TicketNo)
	assert.NotEqual(t, after[0].Token, after[1].Token)
	assert.Len(t, after[0].Token, 64)
}

func TestIssueTickets_Concurrent(t *testing.T) {
	order := completedOrder("order-c", 5)
	store, _ := sqliteStores(t, order)

	orders := new(MockOrderReader)
	orders.On("GetOrderByID", mock.Anything, "order-c").Return(order, nil)
	svc := tickets.NewTicketService(store, orders, nil, logger.NewDiscard())

	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := svc.IssueTickets(context.Background(), "order-c")
			assert.NoError(t, err)
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, total)
	list, err := svc.GetTicketsByOrder(context.Background(), "order-c")
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

func TestIssueTickets_RefusesUnpaidOrder(t *testing.T) {
	orders := new(MockOrderReader)
	pending := completedOrder("order-p", 1)
	pending.Status = models.StatusPending
	orders.On("GetOrderByID", mock.Anything, "order-p").Return(pending, nil)

	mockDB := new(MockTicketDBLayer)
	svc := tickets.NewTicketService(mockDB, orders, nil, logger.NewDiscard())

	_, err := svc.IssueTickets(context.Background(), "order-p")
	assert.True(t, errors.Is(err, apperrors.ErrOrderNotCompleted))
	mockDB.AssertNotCalled(t, "InsertTicketIfAbsent", mock.Anything, mock.Anything)
}

func TestIssueTickets_ContinuesPastFailedInsert(t *testing.T) {
	orders := new(MockOrderReader)
	orders.On("GetOrderByID", mock.Anything, "order-f").Return(completedOrder("order-f", 3), nil)

	mockDB := new(MockTicketDBLayer)
	boom := errors.New("disk full")
	mockDB.On("InsertTicketIfAbsent", mock.Anything, mock.MatchedBy(func(t *models.Ticket) bool {
		return t.TicketNo == "order-f-2"
	})).Return(false, boom)
	mockDB.On("InsertTicketIfAbsent", mock.Anything, mock.Anything).Return(true, nil)

	publisher := new(MockPublisher)
	publisher.On("PublishTicketsIssued", mock.Anything, mock.MatchedBy(func(e models.OrderEvent) bool {
		return e.Type == models.EventTicketsIssued && e.TicketsIssued == 2
	})).Return(nil)

	svc := tickets.NewTicketService(mockDB, orders, publisher, logger.NewDiscard())

	issued, err := svc.IssueTickets(context.Background(), "order-f")
	assert.Equal(t, 2, issued)
	assert.True(t, errors.Is(err, boom))
	mockDB.AssertNumberOfCalls(t, "InsertTicketIfAbsent", 3)
	publisher.AssertExpectations(t)
}

func TestIssueTicketsTx_IssuesWholeBatchOnce(t *testing.T) {
	order := completedOrder("order-tx", 3)
	store, _ := sqliteStores(t, order)

	orders := new(MockOrderReader)
	orders.On("GetOrderByID", mock.Anything, "order-tx").Return(order, nil)

	publisher := new(MockPublisher)
	publisher.On("PublishTicketsIssued", mock.Anything, mock.MatchedBy(func(e models.OrderEvent) bool {
		return e.TicketsIssued == 3
	})).Return(nil).Once()

	svc := tickets.NewTicketService(store, orders, publisher, logger.NewDiscard())
	ctx := context.Background()

	issued, err := svc.IssueTicketsTx(ctx, "order-tx")
	require.NoError(t, err)
	assert.Equal(t, 3, issued)

	issued, err = svc.IssueTicketsTx(ctx, "order-tx")
	require.NoError(t, err)
	assert.Equal(t, 0, issued)

	list, err := svc.GetTicketsByOrder(ctx, "order-tx")
	require.NoError(t, err)
	assert.Len(t, list, 3)
	publisher.AssertExpectations(t)
}

func TestIssueTicketsTx_FailedInsertRollsBackBatch(t *testing.T) {
	order := completedOrder("order-rb", 3)
	store, _ := sqliteStores(t, order)

	orders := new(MockOrderReader)
	orders.On("GetOrderByID", mock.Anything, "order-rb").Return(order, nil)

	publisher := new(MockPublisher)
	svc := tickets.NewTicketService(store, orders, publisher, logger.NewDiscard())
	// Every ticket gets the same token, so the second insert breaks the
	// unique token constraint after the first one went through.
	svc.NewToken = func() (string, error) { return "same-token", nil }

	issued, err := svc.IssueTicketsTx(context.Background(), "order-rb")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStorage))
	assert.Equal(t, 0, issued)

	list, err := svc.GetTicketsByOrder(context.Background(), "order-rb")
	require.NoError(t, err)
	assert.Empty(t, list)
	publisher.AssertNotCalled(t, "PublishTicketsIssued", mock.Anything, mock.Anything)
}

func TestIssueTicketsTx_TokenFailureWritesNothing(t *testing.T) {
	orders := new(MockOrderReader)
	orders.On("GetOrderByID", mock.Anything, "order-t").Return(completedOrder("order-t", 2), nil)

	mockDB := new(MockTicketDBLayer)
	svc := tickets.NewTicketService(mockDB, orders, nil, logger.NewDiscard())
	boom := errors.New("entropy exhausted")
	svc.NewToken = func() (string, error) { return "", boom }

	_, err := svc.IssueTicketsTx(context.Background(), "order-t")
	assert.True(t, errors.Is(err, boom))
	mockDB.AssertNotCalled(t, "InsertTicketsTx", mock.Anything, mock.Anything)
}

func TestIssueTickets_AtomicUsesBatch(t *testing.T) {
	orders := new(MockOrderReader)
	orders.On("GetOrderByID", mock.Anything, "order-a").Return(completedOrder("order-a", 2), nil)

	mockDB := new(MockTicketDBLayer)
	mockDB.On("InsertTicketsTx", mock.Anything, mock.MatchedBy(func(batch []models.Ticket) bool {
		return len(batch) == 2 && batch[0].TicketNo == "order-a-1" && batch[1].TicketNo == "order-a-2"
	})).Return(2, nil)

	svc := tickets.NewTicketService(mockDB, orders, nil, logger.NewDiscard())
	svc.Atomic = true

	issued, err := svc.IssueTickets(context.Background(), "order-a")
	require.NoError(t, err)
	assert.Equal(t, 2, issued)
	mockDB.AssertNotCalled(t, "InsertTicketIfAbsent", mock.Anything, mock.Anything)
}

func TestVerify_ValidTicketAppendsScan(t *testing.T) {
	mockDB := new(MockTicketDBLayer)
	mockDB.On("GetTicketByToken", mock.Anything, "tok").Return(&models.TicketLookup{
		TicketNo:    "order-1-1",
		TicketToken: "tok",
		ExtOrderID:  "order-1",
		FullName:    "Anna Nowak",
		TicketType:  "VIP",
		OrderStatus: strPtr("completed"),
	}, nil)
	mockDB.On("RecordScan", mock.Anything, mock.MatchedBy(func(s *models.ScanEvent) bool {
		return s.ScannedFor == "unknown" && s.ScannedBy == nil && s.IP == "10.0.0.1"
	})).Return([]models.ScanCount{{ScannedFor: "unknown", Count: 1}}, nil)

	svc := tickets.NewTicketService(mockDB, nil, nil, logger.NewDiscard())

	result, err := svc.Verify(context.Background(), models.VerifyRequest{Token: "tok", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "order-1-1", result.TicketNo)
	assert.Equal(t, "order-1", result.OrderID)
	assert.Equal(t, &models.Access{Day1: true, Day2: true, Banquet: true}, result.Access)
	assert.Equal(t, []models.ScanCount{{ScannedFor: "unknown", Count: 1}}, result.ScanCounts)
}

func TestVerify_PendingOrderLeavesNoScan(t *testing.T) {
	mockDB := new(MockTicketDBLayer)
	mockDB.On("GetTicketByToken", mock.Anything, "tok").Return(&models.TicketLookup{
		TicketNo:    "order-1-1",
		OrderStatus: strPtr(models.StatusPending),
	}, nil)

	svc := tickets.NewTicketService(mockDB, nil, nil, logger.NewDiscard())

	result, err := svc.Verify(context.Background(), models.VerifyRequest{Token: "tok", ScannedFor: "day1"})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, models.ReasonOrderNotCompleted, result.Reason)
	assert.Equal(t, models.StatusPending, *result.OrderStatus)
	mockDB.AssertNotCalled(t, "RecordScan", mock.Anything, mock.Anything)
}

func TestVerify_UnknownToken(t *testing.T) {
	mockDB := new(MockTicketDBLayer)
	mockDB.On("GetTicketByToken", mock.Anything, "nope").Return(nil, apperrors.ErrNotFound)

	svc := tickets.NewTicketService(mockDB, nil, nil, logger.NewDiscard())

	result, err := svc.Verify(context.Background(), models.VerifyRequest{Token: "nope"})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, models.ReasonNotFound, result.Reason)
}

func TestVerify_MissingToken(t *testing.T) {
	svc := tickets.NewTicketService(new(MockTicketDBLayer), nil, nil, logger.NewDiscard())

	_, err := svc.Verify(context.Background(), models.VerifyRequest{Token: "  "})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestVerify_RescansAreCounted(t *testing.T) {
	order := completedOrder("order-s", 2)
	store, _ := sqliteStores(t, order)

	orders := new(MockOrderReader)
	orders.On("GetOrderByID", mock.Anything, "order-s").Return(order, nil)
	svc := tickets.NewTicketService(store, orders, nil, logger.NewDiscard())
	ctx := context.Background()

	_, err := svc.IssueTickets(ctx, "order-s")
	require.NoError(t, err)
	list, err := svc.GetTicketsByOrder(ctx, "order-s")
	require.NoError(t, err)

	for _, ticket := range list {
		var last *models.VerificationResult
		for i := 0; i < 2; i++ {
			last, err = svc.Verify(ctx, models.VerifyRequest{Token: ticket.Token, ScannedFor: "day1", ScannedBy: "gate-a"})
			require.NoError(t, err)
			assert.True(t, last.Valid)
		}
		assert.Equal(t, []models.ScanCount{{ScannedFor: "day1", Count: 2}}, last.ScanCounts)
	}
}

func TestAccessFor(t *testing.T) {
	tests := []struct {
		ticketType string
		want       models.Access
	}{
		{"VIP", models.Access{Day1: true, Day2: true, Banquet: true}},
		{"Premium", models.Access{}},
		{"1dzien", models.Access{Day1: true}},
		{"2dni", models.Access{Day1: true, Day2: true}},
		{"Bankiet", models.Access{Banquet: true}},
	}

	for _, tt := range tests {
		t.Run(tt.ticketType, func(t *testing.T) {
			assert.Equal(t, tt.want, tickets.AccessFor(tt.ticketType))
		})
	}
}
