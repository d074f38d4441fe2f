package costing

import (
	"context"
	"sort"
	"sync"

	"github.com/buildops/backoffice/internal/domain/costing"
	"github.com/buildops/backoffice/internal/domain/project"
	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// fakeStore serializes every Execute call, standing in for the row locks
// taken by the real repositories.
type fakeStore struct {
	txMu     sync.Mutex
	projects map[uuid.UUID]*project.Project
	costs    map[uuid.UUID]costing.MaterialCost
	invoices map[uuid.UUID]costing.SupplierInvoice
	lines    map[uuid.UUID]costing.InvoiceLine
	locks    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects: make(map[uuid.UUID]*project.Project),
		costs:    make(map[uuid.UUID]costing.MaterialCost),
		invoices: make(map[uuid.UUID]costing.SupplierInvoice),
		lines:    make(map[uuid.UUID]costing.InvoiceLine),
	}
}

func (s *fakeStore) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

func (s *fakeStore) ProjectRepo() project.ProjectRepository                 { return fakeProjectRepo{s: s} }
func (s *fakeStore) MaterialCostRepo() costing.MaterialCostRepository       { return fakeCostRepo{s} }
func (s *fakeStore) SupplierInvoiceRepo() costing.SupplierInvoiceRepository { return fakeInvoiceRepo{s} }
func (s *fakeStore) InvoiceLineRepo() costing.InvoiceLineRepository         { return fakeLineRepo{s} }

func (s *fakeStore) addProject(p *project.Project) {
	s.projects[p.ID] = p
}

type fakeProjectRepo struct {
	project.ProjectRepository
	s *fakeStore
}

func (r fakeProjectRepo) FindByID(_ context.Context, id uuid.UUID) (*project.Project, error) {
	p, ok := r.s.projects[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

type fakeCostRepo struct{ s *fakeStore }

func (r fakeCostRepo) FindByID(_ context.Context, id uuid.UUID) (*costing.MaterialCost, error) {
	mc, ok := r.s.costs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	mc.PullDomainEvents()
	return &mc, nil
}

func (r fakeCostRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*costing.MaterialCost, error) {
	r.s.locks = append(r.s.locks, "cost")
	return r.FindByID(ctx, id)
}

func (r fakeCostRepo) FindByProject(_ context.Context, projectID uuid.UUID) ([]costing.MaterialCost, error) {
	var out []costing.MaterialCost
	for _, mc := range r.s.costs {
		if mc.ProjectID == projectID {
			out = append(out, mc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r fakeCostRepo) FindByInvoice(_ context.Context, invoiceID uuid.UUID) ([]costing.MaterialCost, error) {
	var out []costing.MaterialCost
	for _, mc := range r.s.costs {
		if mc.IsLinkedTo(invoiceID) {
			out = append(out, mc)
		}
	}
	return out, nil
}

func (r fakeCostRepo) SumByInvoice(_ context.Context, invoiceID, excludeCostID uuid.UUID) (valueobject.Amount, error) {
	total := valueobject.ZeroAmount()
	for id, mc := range r.s.costs {
		if id != excludeCostID && mc.IsLinkedTo(invoiceID) {
			total = total.Add(mc.TotalCost)
		}
	}
	return total, nil
}

func (r fakeCostRepo) Save(_ context.Context, mc *costing.MaterialCost) error {
	cp := *mc
	cp.PullDomainEvents()
	r.s.costs[mc.ID] = cp
	return nil
}

func (r fakeCostRepo) UnlinkInvoice(_ context.Context, invoiceID uuid.UUID) (int64, error) {
	var n int64
	for id, mc := range r.s.costs {
		if mc.IsLinkedTo(invoiceID) {
			mc.SupplierInvoiceID = nil
			r.s.costs[id] = mc
			n++
		}
	}
	return n, nil
}

func (r fakeCostRepo) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	costs, _ := r.FindByProject(ctx, projectID)
	return int64(len(costs)), nil
}

func (r fakeCostRepo) DeleteByProject(_ context.Context, projectID uuid.UUID) error {
	for id, mc := range r.s.costs {
		if mc.ProjectID == projectID {
			delete(r.s.costs, id)
		}
	}
	return nil
}

type fakeInvoiceRepo struct{ s *fakeStore }

func (r fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*costing.SupplierInvoice, error) {
	si, ok := r.s.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &si, nil
}

func (r fakeInvoiceRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*costing.SupplierInvoice, error) {
	r.s.locks = append(r.s.locks, "invoice")
	return r.FindByID(ctx, id)
}

func (r fakeInvoiceRepo) ExistsByNumber(_ context.Context, number string) (bool, error) {
	for _, si := range r.s.invoices {
		if si.InvoiceNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeInvoiceRepo) Save(_ context.Context, si *costing.SupplierInvoice) error {
	r.s.invoices[si.ID] = *si
	return nil
}

func (r fakeInvoiceRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.invoices, id)
	return nil
}

type fakeLineRepo struct{ s *fakeStore }

func (r fakeLineRepo) FindByProject(_ context.Context, projectID uuid.UUID) ([]costing.InvoiceLine, error) {
	var out []costing.InvoiceLine
	for _, l := range r.s.lines {
		if l.ProjectID == projectID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r fakeLineRepo) Save(_ context.Context, line *costing.InvoiceLine) error {
	r.s.lines[line.ID] = *line
	return nil
}

func (r fakeLineRepo) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	lines, _ := r.FindByProject(ctx, projectID)
	return int64(len(lines)), nil
}

func (r fakeLineRepo) DeleteByProject(context.Context, uuid.UUID) error { return nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

func amountOf(f float64) valueobject.Amount {
	return valueobject.NewAmountFromFloat(f)
}
