package document

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/buildops/backoffice/internal/domain/project"
	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// fakeStore serializes transactions with one mutex, which is what the
// counter row lock gives concurrent generate calls in the database.
type fakeStore struct {
	txMu        sync.Mutex
	projects    map[uuid.UUID]*project.Project
	documents   map[uuid.UUID]document.Document
	generations map[uuid.UUID]document.DocumentGeneration
	counters    map[document.DocumentType]int64
	allocated   []document.DocumentNumber
	counterErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects:    make(map[uuid.UUID]*project.Project),
		documents:   make(map[uuid.UUID]document.Document),
		generations: make(map[uuid.UUID]document.DocumentGeneration),
		counters:    make(map[document.DocumentType]int64),
	}
}

func (s *fakeStore) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

func (s *fakeStore) ProjectRepo() project.ProjectRepository { return fakeProjectRepo{s: s} }
func (s *fakeStore) DocumentRepo() document.DocumentRepository { return fakeDocumentRepo{s} }
func (s *fakeStore) GenerationRepo() document.GenerationRepository { return fakeGenerationRepo{s} }
func (s *fakeStore) NumberCounterRepo() document.NumberCounterRepository {
	return fakeCounterRepo{s}
}

func (s *fakeStore) generation(id uuid.UUID) document.DocumentGeneration {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.generations[id]
}

func (s *fakeStore) allocatedNumbers() []document.DocumentNumber {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return append([]document.DocumentNumber(nil), s.allocated...)
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

type fakeDocumentRepo struct{ s *fakeStore }

func (r fakeDocumentRepo) FindByID(_ context.Context, id uuid.UUID) (*document.Document, error) {
	d, ok := r.s.documents[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &d, nil
}

func (r fakeDocumentRepo) FindByProject(_ context.Context, projectID uuid.UUID) ([]document.Document, error) {
	var out []document.Document
	for _, d := range r.s.documents {
		if d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r fakeDocumentRepo) Save(_ context.Context, d *document.Document) error {
	r.s.documents[d.ID] = *d
	return nil
}

func (r fakeDocumentRepo) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	docs, _ := r.FindByProject(ctx, projectID)
	return int64(len(docs)), nil
}

func (r fakeDocumentRepo) DeleteByProject(context.Context, uuid.UUID) error { return nil }

type fakeGenerationRepo struct{ s *fakeStore }

func (r fakeGenerationRepo) FindByID(_ context.Context, id uuid.UUID) (*document.DocumentGeneration, error) {
	g, ok := r.s.generations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	g.PullDomainEvents()
	return &g, nil
}

func (r fakeGenerationRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*document.DocumentGeneration, error) {
	return r.FindByID(ctx, id)
}

func (r fakeGenerationRepo) FindByDocument(_ context.Context, documentID uuid.UUID) ([]document.DocumentGeneration, error) {
	var out []document.DocumentGeneration
	for _, g := range r.s.generations {
		if g.DocumentID == documentID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number().Sequence > out[j].Number().Sequence })
	return out, nil
}

func (r fakeGenerationRepo) Save(_ context.Context, g *document.DocumentGeneration) error {
	if err := g.CheckInvariants(); err != nil {
		return err
	}
	cp := *g
	cp.PullDomainEvents()
	r.s.generations[g.ID] = cp
	return nil
}

func (r fakeGenerationRepo) DeleteByProject(context.Context, uuid.UUID) error { return nil }

type fakeCounterRepo struct{ s *fakeStore }

func (r fakeCounterRepo) Next(_ context.Context, docType document.DocumentType) (document.DocumentNumber, error) {
	if r.s.counterErr != nil {
		return document.DocumentNumber{}, r.s.counterErr
	}
	r.s.counters[docType]++
	n, err := document.NewDocumentNumber(docType, r.s.counters[docType])
	if err != nil {
		return document.DocumentNumber{}, err
	}
	r.s.allocated = append(r.s.allocated, n)
	return n, nil
}

type stubRenderer struct {
	mu    sync.Mutex
	fail  error
	calls int
}

func (r *stubRenderer) Render(_ context.Context, req RenderRequest) (*RenderedArtifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.fail != nil {
		return nil, r.fail
	}
	return &RenderedArtifact{
		FileURL:     fmt.Sprintf("https://files.example/%s/%s.pdf", req.ProjectRef, req.Number),
		SizeBytes:   2048,
		ContentType: "application/pdf",
	}, nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendDocument(ctx context.Context, msg DocumentMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

var errGuardDown = errors.New("redis: connection refused")

type fakeIdempotencyStore struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{claimed: make(map[string]bool)}
}

func (f *fakeIdempotencyStore) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

func (f *fakeIdempotencyStore) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claimed, key)
	return nil
}

func (f *fakeIdempotencyStore) IsClaimed(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.claimed[key], nil
}

func (f *fakeIdempotencyStore) Close() error { return nil }

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
