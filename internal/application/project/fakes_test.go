package project

import (
	"context"
	"sync"

	"github.com/buildops/backoffice/internal/domain/costing"
	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/buildops/backoffice/internal/domain/project"
	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// fakeStore keeps aggregates in memory. Execute holds one mutex for the whole
// callback, which gives the same serialization a locked row gives in the
// database.
type fakeStore struct {
	txMu     sync.Mutex
	projects map[uuid.UUID]project.Project

	dependents map[uuid.UUID]int64
	deleted    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects:   make(map[uuid.UUID]project.Project),
		dependents: make(map[uuid.UUID]int64),
	}
}

func (s *fakeStore) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

func (s *fakeStore) ProjectRepo() project.ProjectRepository           { return fakeProjectRepo{s} }
func (s *fakeStore) MaterialCostRepo() costing.MaterialCostRepository { return fakeCostRepo{s: s} }
func (s *fakeStore) InvoiceLineRepo() costing.InvoiceLineRepository   { return fakeLineRepo{s: s} }
func (s *fakeStore) DocumentRepo() document.DocumentRepository        { return fakeDocumentRepo{s: s} }
func (s *fakeStore) GenerationRepo() document.GenerationRepository    { return fakeGenerationRepo{s: s} }

func cloneProject(p *project.Project) *project.Project {
	cp := *p
	cp.Stages = append([]project.ProjectStage(nil), p.Stages...)
	cp.PullDomainEvents()
	return &cp
}

type fakeProjectRepo struct{ s *fakeStore }

func (r fakeProjectRepo) FindByID(_ context.Context, id uuid.UUID) (*project.Project, error) {
	p, ok := r.s.projects[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneProject(&p), nil
}

func (r fakeProjectRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	return r.FindByID(ctx, id)
}

func (r fakeProjectRepo) ExistsByRef(_ context.Context, ref string) (bool, error) {
	for _, p := range r.s.projects {
		if p.ProjectRef == ref {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeProjectRepo) Save(_ context.Context, p *project.Project) error {
	r.s.projects[p.ID] = *cloneProject(p)
	return nil
}

func (r fakeProjectRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.projects, id)
	r.s.deleted = append(r.s.deleted, "project")
	return nil
}

// The dependent-record fakes only answer the deletion policy questions.

type fakeCostRepo struct {
	costing.MaterialCostRepository
	s *fakeStore
}

func (r fakeCostRepo) CountByProject(_ context.Context, id uuid.UUID) (int64, error) {
	return r.s.dependents[id], nil
}

func (r fakeCostRepo) DeleteByProject(_ context.Context, id uuid.UUID) error {
	r.s.deleted = append(r.s.deleted, "material_costs")
	return nil
}

type fakeLineRepo struct {
	costing.InvoiceLineRepository
	s *fakeStore
}

func (r fakeLineRepo) CountByProject(context.Context, uuid.UUID) (int64, error) { return 0, nil }

func (r fakeLineRepo) DeleteByProject(context.Context, uuid.UUID) error {
	r.s.deleted = append(r.s.deleted, "invoice_lines")
	return nil
}

type fakeDocumentRepo struct {
	document.DocumentRepository
	s *fakeStore
}

func (r fakeDocumentRepo) CountByProject(context.Context, uuid.UUID) (int64, error) { return 0, nil }

func (r fakeDocumentRepo) DeleteByProject(context.Context, uuid.UUID) error {
	r.s.deleted = append(r.s.deleted, "documents")
	return nil
}

type fakeGenerationRepo struct {
	document.GenerationRepository
	s *fakeStore
}

func (r fakeGenerationRepo) DeleteByProject(context.Context, uuid.UUID) error {
	r.s.deleted = append(r.s.deleted, "document_generations")
	return nil
}

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

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}
