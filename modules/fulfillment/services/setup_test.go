package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/auditlog"
	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/directory"
	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/order"
	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/request"
	"github.com/sampledesk/sampledesk/modules/notifications/domain/message"
	"github.com/sampledesk/sampledesk/pkg/authz"
	"github.com/sampledesk/sampledesk/pkg/composables"
	"github.com/sampledesk/sampledesk/pkg/serrors"
)

const (
	screenerEmail = "alice@sampledesk.test"
	screener2Email = "bob@sampledesk.test"
	packerEmail   = "pete@sampledesk.test"
	shipperEmail  = "sam@sampledesk.test"
	contactEmail  = "contact@acme.test"
)

var testAccounts = []*directory.Account{
	{Email: screenerEmail, Name: "Alice", Roles: []string{directory.RoleScreener}, Active: true},
	{Email: screener2Email, Name: "Bob", Roles: []string{directory.RoleScreener}, Active: true},
	{Email: packerEmail, Name: "Pete", Roles: []string{directory.RolePacker}, Active: true},
	{Email: shipperEmail, Name: "Sam", Roles: []string{directory.RoleShipper}, Active: true},
}

type staticRoles struct{}

func (staticRoles) RolesFor(_ context.Context, actor string) ([]string, bool, error) {
	for _, a := range testAccounts {
		if a.Email == actor {
			return a.Roles, a.Active, nil
		}
	}
	return nil, false, nil
}

type memDirectory struct{}

func (memDirectory) Lookup(_ context.Context, email string) (*directory.Account, error) {
	for _, a := range testAccounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, serrors.ErrNotFound
}

func (memDirectory) ListByRole(_ context.Context, role string) ([]*directory.Account, error) {
	var out []*directory.Account
	for _, a := range testAccounts {
		if a.HasRole(role) {
			out = append(out, a)
		}
	}
	return out, nil
}

type memRequestRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]request.Request
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{items: map[uuid.UUID]request.Request{}}
}

func (m *memRequestRepo) Create(_ context.Context, r *request.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[r.ID] = *r
	return nil
}

func (m *memRequestRepo) Update(_ context.Context, r *request.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[r.ID]; !ok {
		return serrors.ErrNotFound
	}
	m.items[r.ID] = *r
	return nil
}

func (m *memRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*request.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok || r.IsDeleted() {
		return nil, serrors.ErrNotFound
	}
	clone := r
	return &clone, nil
}

func (m *memRequestRepo) GetByDisplayID(_ context.Context, displayID string) (*request.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.DisplayID == displayID && !r.IsDeleted() {
			clone := r
			return &clone, nil
		}
	}
	return nil, serrors.ErrNotFound
}

func (m *memRequestRepo) ExistsDisplayID(_ context.Context, displayID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.DisplayID == displayID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRequestRepo) GetActiveByHash(_ context.Context, hash string) (*request.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.DuplicateHash == hash && !r.IsDeleted() {
			clone := r
			return &clone, nil
		}
	}
	return nil, serrors.ErrNotFound
}

func (m *memRequestRepo) List(_ context.Context, params *request.FindParams) ([]*request.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*request.Request
	for _, r := range m.items {
		if r.IsDeleted() {
			continue
		}
		if params.Status != "" && r.Status != params.Status {
			continue
		}
		if params.CompanyID != "" && r.CompanyID != params.CompanyID {
			continue
		}
		clone := r
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memRequestRepo) Count(ctx context.Context, params *request.FindParams) (int64, error) {
	items, err := m.List(ctx, params)
	return int64(len(items)), err
}

type memOrderRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]order.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{items: map[uuid.UUID]order.Order{}}
}

func (m *memOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[o.ID] = *o
	return nil
}

func (m *memOrderRepo) Update(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[o.ID]; !ok {
		return serrors.ErrNotFound
	}
	m.items[o.ID] = *o
	return nil
}

func (m *memOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return nil, serrors.ErrNotFound
	}
	clone := o
	return &clone, nil
}

func (m *memOrderRepo) GetByDisplayID(_ context.Context, displayID string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.items {
		if o.DisplayID == displayID {
			clone := o
			return &clone, nil
		}
	}
	return nil, serrors.ErrNotFound
}

func (m *memOrderRepo) GetByRequestID(_ context.Context, requestID uuid.UUID) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.items {
		if o.RequestID == requestID {
			clone := o
			return &clone, nil
		}
	}
	return nil, serrors.ErrNotFound
}

func (m *memOrderRepo) ExistsForRequest(ctx context.Context, requestID uuid.UUID) (bool, error) {
	_, err := m.GetByRequestID(ctx, requestID)
	if err == nil {
		return true, nil
	}
	return false, nil
}

func (m *memOrderRepo) List(_ context.Context, params order.FindParams) ([]*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*order.Order
	for _, o := range m.items {
		if params.Status != "" && o.Status != params.Status {
			continue
		}
		clone := o
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memOrderRepo) Count(ctx context.Context, params order.FindParams) (int64, error) {
	items, err := m.List(ctx, params)
	return int64(len(items)), err
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*auditlog.Entry
}

func (m *memAuditRepo) Create(_ context.Context, e *auditlog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memAuditRepo) List(_ context.Context, _ *auditlog.FindParams) ([]*auditlog.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*auditlog.Entry(nil), m.entries...), nil
}

func (m *memAuditRepo) Count(_ context.Context, _ *auditlog.FindParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.entries)), nil
}

func (m *memAuditRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

type memSequenceRepo struct {
	mu       sync.Mutex
	counters map[string]int64
}

func (m *memSequenceRepo) Next(_ context.Context, scope string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = map[string]int64{}
	}
	m.counters[scope]++
	return m.counters[scope], nil
}

type captureNotifier struct {
	mu     sync.Mutex
	err    error
	queued []*message.Message
}

func (c *captureNotifier) QueueEmail(_ context.Context, m *message.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.queued = append(c.queued, m)
	return nil
}

func (c *captureNotifier) byType(msgType string) []*message.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*message.Message
	for _, m := range c.queued {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	requests *memRequestRepo
	orders   *memOrderRepo
	audit    *memAuditRepo
	notifier *captureNotifier
	reqSvc   *RequestService
	ordSvc   *OrderService
}

func passthroughTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func newTestAuthz(t *testing.T) *authz.Service {
	t.Helper()
	logger := logrus.New()
	svc, err := authz.NewServiceWithPolicies(staticRoles{}, [][3]string{
		{directory.RoleScreener, "requests", "review"},
		{directory.RoleScreener, "requests", "edit_lines"},
		{directory.RolePacker, "orders", "pack"},
		{directory.RoleShipper, "orders", "ship"},
	}, logger)
	require.NoError(t, err)
	return svc
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		requests: newMemRequestRepo(),
		orders:   newMemOrderRepo(),
		audit:    &memAuditRepo{},
		notifier: &captureNotifier{},
	}
	az := newTestAuthz(t)
	seq := NewSequenceService(&memSequenceRepo{})

	f.reqSvc = NewRequestService(RequestServiceOptions{
		Requests:  f.requests,
		Orders:    f.orders,
		Audit:     f.audit,
		Sequences: seq,
		Authz:     az,
		Directory: memDirectory{},
		Notifier:  f.notifier,
	})
	f.reqSvc.runTx = passthroughTx

	f.ordSvc = NewOrderService(OrderServiceOptions{
		Orders:    f.orders,
		Requests:  f.requests,
		Audit:     f.audit,
		Authz:     az,
		Directory: memDirectory{},
		Notifier:  f.notifier,
	})
	f.ordSvc.runTx = passthroughTx
	return f
}

func asActor(email string) context.Context {
	return composables.WithActor(context.Background(), email)
}

func sampleInput() *CreateRequestInput {
	return &CreateRequestInput{
		CompanyID:    "acme",
		CompanyName:  "Acme Laboratories",
		ContactName:  "Carla Diaz",
		ContactEmail: contactEmail,
		Lines: []request.ProductLine{
			{ProductID: "prod-a", Quantity: 2},
			{ProductID: "prod-b", Quantity: 1},
		},
	}
}

func (f *fixture) mustCreate(t *testing.T, input *CreateRequestInput) *request.Request {
	t.Helper()
	r, err := f.reqSvc.Create(context.Background(), input)
	require.NoError(t, err)
	return r
}

func (f *fixture) mustClaim(t *testing.T, id uuid.UUID, actor string) *request.Request {
	t.Helper()
	r, err := f.reqSvc.Claim(asActor(actor), id)
	require.NoError(t, err)
	return r
}

func requireStatus(t *testing.T, want, got string) {
	t.Helper()
	require.Equal(t, strings.ToLower(want), strings.ToLower(got))
}
