package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ticketfair/escrow-service/internal/domain"
	"github.com/ticketfair/escrow-service/internal/events"
	"github.com/ticketfair/escrow-service/internal/observability"
	"github.com/ticketfair/escrow-service/internal/provider"
	"github.com/ticketfair/escrow-service/internal/repository"
)

// memStore is an in-memory stand-in for the database. Transactions are
// serialized by a mutex and rolled back from a snapshot on error, which
// mirrors the all-or-nothing guarantee of the pgx runner.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	tickets  map[string]*domain.Ticket
	orders   map[string]*domain.Order
	payments map[string]*domain.Payment
	escrows  map[string]*domain.Escrow
	refunds  map[string]*domain.Refund
	events   []*domain.OrderEvent
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]*domain.Account{},
		tickets:  map[string]*domain.Ticket{},
		orders:   map[string]*domain.Order{},
		payments: map[string]*domain.Payment{},
		escrows:  map[string]*domain.Escrow{},
		refunds:  map[string]*domain.Refund{},
	}
}

func (s *memStore) snapshot() *memStore {
	snap := newMemStore()
	for k, v := range s.accounts {
		c := *v
		snap.accounts[k] = &c
	}
	for k, v := range s.tickets {
		c := *v
		snap.tickets[k] = &c
	}
	for k, v := range s.orders {
		c := *v
		snap.orders[k] = &c
	}
	for k, v := range s.payments {
		c := *v
		snap.payments[k] = &c
	}
	for k, v := range s.escrows {
		c := *v
		snap.escrows[k] = &c
	}
	for k, v := range s.refunds {
		c := *v
		snap.refunds[k] = &c
	}
	snap.events = append(snap.events, s.events...)
	return snap
}

func (s *memStore) restore(snap *memStore) {
	s.accounts = snap.accounts
	s.tickets = snap.tickets
	s.orders = snap.orders
	s.payments = snap.payments
	s.escrows = snap.escrows
	s.refunds = snap.refunds
	s.events = snap.events
}

func (s *memStore) repos() *repository.Repositories {
	return &repository.Repositories{
		Accounts:    &memAccounts{s},
		Tickets:     &memTickets{s},
		Orders:      &memOrders{s},
		Payments:    &memPayments{s},
		Escrows:     &memEscrows{s},
		Refunds:     &memRefunds{s},
		OrderEvents: &memOrderEvents{s},
	}
}

// memRunner implements repository.TxRunner over the memStore.
type memRunner struct {
	store *memStore
}

func (r *memRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, repos *repository.Repositories) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	snap := r.store.snapshot()
	if err := fn(ctx, r.store.repos()); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

type memAccounts struct{ s *memStore }

func (m *memAccounts) Create(ctx context.Context, account *domain.Account) error {
	account.ID = uuid.NewString()
	c := *account
	m.s.accounts[account.ID] = &c
	return nil
}

func (m *memAccounts) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	account, ok := m.s.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := *account
	return &c, nil
}

func (m *memAccounts) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	for _, account := range m.s.accounts {
		if account.Email == email {
			c := *account
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memTickets struct{ s *memStore }

func (m *memTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	ticket.ID = uuid.NewString()
	c := *ticket
	m.s.tickets[ticket.ID] = &c
	return nil
}

func (m *memTickets) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := m.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := *ticket
	return &c, nil
}

func (m *memTickets) ListByOrganizer(ctx context.Context, organizerID string, limit, offset int) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range m.s.tickets {
		if ticket.OrganizerID == organizerID {
			result = append(result, *ticket)
		}
	}
	return result, nil
}

func (m *memTickets) UpdateStatusIf(ctx context.Context, id string, from, to domain.TicketStatus) error {
	ticket, ok := m.s.tickets[id]
	if !ok || ticket.Status != from {
		return repository.ErrStateConflict
	}
	ticket.Status = to
	return nil
}

type memOrders struct{ s *memStore }

func (m *memOrders) Create(ctx context.Context, order *domain.Order) error {
	order.ID = uuid.NewString()
	c := *order
	m.s.orders[order.ID] = &c
	return nil
}

func (m *memOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, ok := m.s.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := *order
	return &c, nil
}

func (m *memOrders) GetActiveByTicket(ctx context.Context, ticketID string) (*domain.Order, error) {
	for _, order := range m.s.orders {
		if order.TicketID == ticketID && !order.Status.Terminal() {
			c := *order
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memOrders) UpdateStatusIf(ctx context.Context, id string, from, to domain.OrderStatus) error {
	order, ok := m.s.orders[id]
	if !ok || order.Status != from {
		return repository.ErrStateConflict
	}
	order.Status = to
	return nil
}

type memPayments struct{ s *memStore }

func (m *memPayments) Create(ctx context.Context, payment *domain.Payment) error {
	payment.ID = uuid.NewString()
	c := *payment
	m.s.payments[payment.ID] = &c
	return nil
}

func (m *memPayments) GetByOrder(ctx context.Context, orderID string) (*domain.Payment, error) {
	for _, payment := range m.s.payments {
		if payment.OrderID == orderID {
			c := *payment
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memPayments) UpdateStatusIf(ctx context.Context, id string, from, to domain.PaymentStatus) error {
	payment, ok := m.s.payments[id]
	if !ok || payment.Status != from {
		return repository.ErrStateConflict
	}
	payment.Status = to
	return nil
}

type memEscrows struct{ s *memStore }

func (m *memEscrows) Create(ctx context.Context, escrow *domain.Escrow) error {
	escrow.ID = uuid.NewString()
	c := *escrow
	m.s.escrows[escrow.ID] = &c
	return nil
}

func (m *memEscrows) GetByOrder(ctx context.Context, orderID string) (*domain.Escrow, error) {
	for _, escrow := range m.s.escrows {
		if escrow.OrderID == orderID {
			c := *escrow
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memEscrows) UpdateStatusIf(ctx context.Context, id string, from, to domain.EscrowStatus) error {
	escrow, ok := m.s.escrows[id]
	if !ok || escrow.Status != from {
		return repository.ErrStateConflict
	}
	escrow.Status = to
	return nil
}

func (m *memEscrows) ListReleasableOrders(ctx context.Context, limit int) ([]string, error) {
	var result []string
	for _, escrow := range m.s.escrows {
		if escrow.Status != domain.EscrowStatusHolding {
			continue
		}
		order, ok := m.s.orders[escrow.OrderID]
		if !ok {
			continue
		}
		ticket, ok := m.s.tickets[order.TicketID]
		if !ok || ticket.Status != domain.TicketStatusValidated {
			continue
		}
		result = append(result, escrow.OrderID)
	}
	return result, nil
}

type memRefunds struct{ s *memStore }

func (m *memRefunds) Create(ctx context.Context, refund *domain.Refund) error {
	refund.ID = uuid.NewString()
	c := *refund
	m.s.refunds[refund.ID] = &c
	return nil
}

func (m *memRefunds) GetIssuedByOrder(ctx context.Context, orderID string) (*domain.Refund, error) {
	for _, refund := range m.s.refunds {
		if refund.OrderID == orderID && refund.Status == domain.RefundStatusIssued {
			c := *refund
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memOrderEvents struct{ s *memStore }

func (m *memOrderEvents) Create(ctx context.Context, event *domain.OrderEvent) error {
	event.ID = uuid.NewString()
	c := *event
	m.s.events = append(m.s.events, &c)
	return nil
}

func (m *memOrderEvents) ListByOrder(ctx context.Context, orderID string, limit, offset int) ([]domain.OrderEvent, error) {
	var result []domain.OrderEvent
	for _, event := range m.s.events {
		if event.OrderID == orderID {
			result = append(result, *event)
		}
	}
	return result, nil
}

// stubProvider records calls and can be told to fail.
type stubProvider struct {
	mu          sync.Mutex
	captureErr  error
	refundErr   error
	captures    int
	refunds     int
	lastRequest provider.Request
}

func (p *stubProvider) Capture(ctx context.Context, req provider.Request) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.captures++
	p.lastRequest = req
	return p.captureErr
}

func (p *stubProvider) Refund(ctx context.Context, req provider.Request) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refunds++
	p.lastRequest = req
	return p.refundErr
}

// fixture wires the services against the in-memory store.
type fixture struct {
	store       *memStore
	runner      *memRunner
	provider    *stubProvider
	dispatcher  events.Dispatcher
	orders      *OrderService
	settlements *SettlementService
	refunds     *RefundService
	tickets     *TicketService
}

func newFixture() *fixture {
	store := newMemStore()
	runner := &memRunner{store: store}
	stub := &stubProvider{}
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	return &fixture{
		store:      store,
		runner:     runner,
		provider:   stub,
		dispatcher: dispatcher,
		orders: NewOrderService(OrderDependencies{
			TxRunner:   runner,
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Logger:     logger,
		}),
		settlements: NewSettlementService(SettlementDependencies{
			TxRunner:   runner,
			Provider:   stub,
			Currency:   "USD",
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Logger:     logger,
		}),
		refunds: NewRefundService(RefundDependencies{
			TxRunner:   runner,
			Provider:   stub,
			Currency:   "USD",
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Logger:     logger,
		}),
		tickets: NewTicketService(TicketDependencies{
			Repos:      store.repos(),
			TxRunner:   runner,
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Logger:     logger,
		}),
	}
}

func (f *fixture) addAccount(role domain.AccountRole) *domain.Account {
	account := &domain.Account{
		ID:     uuid.NewString(),
		Name:   "account",
		Email:  uuid.NewString() + "@example.com",
		Role:   role,
		Status: domain.AccountStatusActive,
	}
	f.store.accounts[account.ID] = account
	return account
}

func (f *fixture) addTicket(organizerID string, price decimal.Decimal, status domain.TicketStatus) *domain.Ticket {
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		EventRef:    "event-1",
		OrganizerID: organizerID,
		Price:       price,
		Status:      status,
	}
	f.store.tickets[ticket.ID] = ticket
	return ticket
}
