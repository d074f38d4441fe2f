package document

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/buildops/backoffice/internal/domain/project"
	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type generationFixture struct {
	svc         *GenerationService
	store       *fakeStore
	renderer    *stubRenderer
	notifier    *mockNotifier
	idempotency *fakeIdempotencyStore
	pub         *recordingPublisher
	documentID  uuid.UUID
}

func newGenerationFixture(t *testing.T) *generationFixture {
	t.Helper()
	store := newFakeStore()
	p, err := project.NewProject("PRJ-0042", project.PriorityNormal, []string{"Survey", "Build", "Handover"})
	require.NoError(t, err)
	store.projects[p.ID] = p

	f := &generationFixture{
		store:       store,
		renderer:    &stubRenderer{},
		notifier:    &mockNotifier{},
		idempotency: newFakeIdempotencyStore(),
		pub:         &recordingPublisher{},
	}
	f.svc = NewGenerationService(store, f.renderer, f.notifier, f.idempotency, f.pub, GenerationConfig{}, zap.NewNop())

	doc, err := f.svc.RegisterDocument(context.Background(), RegisterDocumentRequest{
		ProjectID: p.ID,
		Filename:  "harbour-cafe-invoice.pdf",
		FileType:  "PDF",
	})
	require.NoError(t, err)
	f.documentID = doc.ID
	return f
}

func invoiceJSON(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(document.InvoiceTemplateData{
		ClientName: "Harbour Cafe Ltd",
		IssueDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:    time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		TaxRate:    decimal.NewFromFloat(0.2),
		Lines: []document.TemplateLine{
			{Description: "Kitchen refit", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(4500)},
		},
	})
	require.NoError(t, err)
	return raw
}

func quoteJSON(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(document.QuoteTemplateData{
		ClientName: "Harbour Cafe Ltd",
		Scope:      "Kitchen refit and rewiring",
		ValidUntil: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return raw
}

func (f *generationFixture) generate(t *testing.T, docType string, raw json.RawMessage) *GenerateResult {
	t.Helper()
	result, err := f.svc.Generate(context.Background(), GenerateDocumentRequest{
		DocumentID:   f.documentID,
		DocumentType: docType,
		TemplateData: raw,
	})
	require.NoError(t, err)
	return result
}

func TestGenerationService_NumberingScenario(t *testing.T) {
	f := newGenerationFixture(t)

	first := f.generate(t, "INVOICE", invoiceJSON(t))
	second := f.generate(t, "INVOICE", invoiceJSON(t))
	quote := f.generate(t, "QUOTE", quoteJSON(t))

	assert.Equal(t, "INV-00001", first.Generation.DocumentNumber)
	assert.Equal(t, "INV-00002", second.Generation.DocumentNumber)
	assert.Equal(t, "QUO-00001", quote.Generation.DocumentNumber)

	assert.Equal(t, "generated", first.Generation.Status)
	require.NotNil(t, first.Generation.GeneratedAt)
	assert.Equal(t, "https://files.example/PRJ-0042/INV-00001.pdf", first.Generation.FileURL)
	assert.Nil(t, first.DispatchError)

	doc := f.store.documents[f.documentID]
	assert.Equal(t, "https://files.example/PRJ-0042/QUO-00001.pdf", doc.FileURL, "document points at the latest artifact")
	assert.Equal(t, int64(2048), doc.SizeBytes)

	assert.Equal(t, 3, f.pub.count(document.EventTypeDocumentGenerated))
}

func TestGenerationService_RendererFailureConsumesNumber(t *testing.T) {
	f := newGenerationFixture(t)
	ctx := context.Background()

	f.renderer.fail = errors.New("chrome: navigation timeout")
	_, err := f.svc.Generate(ctx, GenerateDocumentRequest{
		DocumentID:   f.documentID,
		DocumentType: "INVOICE",
		TemplateData: invoiceJSON(t),
	})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, CodeGenerationFailed, domainErr.Code)
	assert.Equal(t, 1, f.renderer.calls, "a failed attempt renders once")

	f.renderer.fail = nil
	retry := f.generate(t, "INVOICE", invoiceJSON(t))
	assert.Equal(t, "INV-00002", retry.Generation.DocumentNumber, "failed number is never reused")

	gens, err := f.svc.ListGenerations(ctx, f.documentID)
	require.NoError(t, err)
	require.Len(t, gens, 2)
	assert.Equal(t, "INV-00002", gens[0].DocumentNumber)
	assert.Equal(t, "generated", gens[0].Status)
	assert.Equal(t, "INV-00001", gens[1].DocumentNumber)
	assert.Equal(t, "failed", gens[1].Status)
	assert.Equal(t, "chrome: navigation timeout", gens[1].FailureReason)
	assert.Equal(t, 1, f.pub.count(document.EventTypeDocumentGenerationFailed))
}

func TestGenerationService_RejectsBeforeAllocating(t *testing.T) {
	f := newGenerationFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  GenerateDocumentRequest
	}{
		{"unknown type", GenerateDocumentRequest{DocumentID: f.documentID, DocumentType: "RECEIPT", TemplateData: invoiceJSON(t)}},
		{"malformed data", GenerateDocumentRequest{DocumentID: f.documentID, DocumentType: "INVOICE", TemplateData: json.RawMessage(`{"lines":"x"}`)}},
		{"invalid data", GenerateDocumentRequest{DocumentID: f.documentID, DocumentType: "INVOICE", TemplateData: json.RawMessage(`{}`)}},
		{"unknown document", GenerateDocumentRequest{DocumentID: uuid.New(), DocumentType: "INVOICE", TemplateData: invoiceJSON(t)}},
		{"bad recipient", GenerateDocumentRequest{DocumentID: f.documentID, DocumentType: "INVOICE", TemplateData: invoiceJSON(t), AutoSend: true, RecipientEmail: "nobody"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Generate(ctx, tt.req)
			assert.Error(t, err)
		})
	}

	assert.Empty(t, f.store.generations)
	assert.Zero(t, f.renderer.calls)
}

func TestGenerationService_AllocationConflictIsRetryable(t *testing.T) {
	f := newGenerationFixture(t)
	f.store.counterErr = shared.NewNumberAllocationConflictError("counter INVOICE is locked")

	_, err := f.svc.Generate(context.Background(), GenerateDocumentRequest{
		DocumentID:   f.documentID,
		DocumentType: "INVOICE",
		TemplateData: invoiceJSON(t),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNumberAllocationConflict))
	assert.True(t, shared.IsRetryable(err))
	assert.Empty(t, f.store.generations)
}

func TestGenerationService_ConcurrentGenerateYieldsDistinctNumbers(t *testing.T) {
	f := newGenerationFixture(t)
	raw := invoiceJSON(t)

	const workers = 50
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []string
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.svc.Generate(context.Background(), GenerateDocumentRequest{
				DocumentID:   f.documentID,
				DocumentType: "INVOICE",
				TemplateData: raw,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, result.Generation.DocumentNumber)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, numbers, workers)

	seen := make(map[string]bool, workers)
	for _, n := range numbers {
		assert.False(t, seen[n], "duplicate number %s", n)
		seen[n] = true
	}

	allocated := f.store.allocatedNumbers()
	require.Len(t, allocated, workers)
	for i, n := range allocated {
		assert.Equal(t, int64(i+1), n.Sequence, "allocation order is strictly increasing")
	}

	sort.Strings(numbers)
	assert.Equal(t, "INV-00001", numbers[0])
	assert.Equal(t, "INV-00050", numbers[workers-1])
}

func TestGenerationService_DispatchIsIdempotent(t *testing.T) {
	f := newGenerationFixture(t)
	ctx := context.Background()
	gen := f.generate(t, "INVOICE", invoiceJSON(t))

	f.notifier.On("SendDocument", mock.Anything, mock.MatchedBy(func(msg DocumentMessage) bool {
		return msg.To == "accounts@harbourcafe.example" && msg.DocumentNumber == "INV-00001" && msg.ProjectRef == "PRJ-0042"
	})).Return(nil).Once()

	sent, err := f.svc.Dispatch(ctx, gen.Generation.ID, "accounts@harbourcafe.example")
	require.NoError(t, err)
	assert.True(t, sent.EmailSent)
	require.NotNil(t, sent.EmailSentAt)
	assert.Equal(t, 1, sent.DispatchAttempts)

	again, err := f.svc.Dispatch(ctx, gen.Generation.ID, "accounts@harbourcafe.example")
	require.NoError(t, err)
	assert.True(t, again.EmailSent)
	assert.Equal(t, sent.EmailSentAt, again.EmailSentAt)

	f.notifier.AssertNumberOfCalls(t, "SendDocument", 1)
	f.notifier.AssertExpectations(t)
	assert.Equal(t, 1, f.pub.count(document.EventTypeDocumentDispatched))
}

func TestGenerationService_DispatchFailureIsRetryable(t *testing.T) {
	f := newGenerationFixture(t)
	ctx := context.Background()
	gen := f.generate(t, "INVOICE", invoiceJSON(t))

	f.notifier.On("SendDocument", mock.Anything, mock.Anything).Return(errors.New("smtp: 421 service not available")).Once()
	_, err := f.svc.Dispatch(ctx, gen.Generation.ID, "accounts@harbourcafe.example")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrDispatchFailure))
	assert.True(t, shared.IsRetryable(err))

	stored := f.store.generation(gen.Generation.ID)
	assert.False(t, stored.EmailSent)
	assert.Equal(t, 1, stored.DispatchAttempts)
	assert.Contains(t, stored.LastDispatchError, "421")
	claimed, _ := f.idempotency.IsClaimed(ctx, dispatchKey(gen.Generation.ID))
	assert.False(t, claimed, "a failed send releases its claim")
	assert.Equal(t, 1, f.pub.count(document.EventTypeDocumentDispatchFailed))

	f.notifier.On("SendDocument", mock.Anything, mock.Anything).Return(nil).Once()
	sent, err := f.svc.Dispatch(ctx, gen.Generation.ID, "")
	require.Error(t, err, "no recipient on the generation and none given")
	assert.Nil(t, sent)

	sent, err = f.svc.Dispatch(ctx, gen.Generation.ID, "accounts@harbourcafe.example")
	require.NoError(t, err)
	assert.True(t, sent.EmailSent)
	assert.Equal(t, 2, sent.DispatchAttempts)
	assert.Empty(t, sent.LastDispatchError)
}

func TestGenerationService_DispatchRequiresGeneratedArtifact(t *testing.T) {
	f := newGenerationFixture(t)
	f.renderer.fail = errors.New("template missing")
	_, err := f.svc.Generate(context.Background(), GenerateDocumentRequest{
		DocumentID:   f.documentID,
		DocumentType: "INVOICE",
		TemplateData: invoiceJSON(t),
	})
	require.Error(t, err)

	var failedID uuid.UUID
	for id := range f.store.generations {
		failedID = id
	}
	_, err = f.svc.Dispatch(context.Background(), failedID, "accounts@harbourcafe.example")
	assert.True(t, errors.Is(err, shared.ErrInvalidTransition))
	f.notifier.AssertNotCalled(t, "SendDocument", mock.Anything, mock.Anything)

	_, err = f.svc.Dispatch(context.Background(), uuid.New(), "accounts@harbourcafe.example")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGenerationService_DispatchInProgressElsewhere(t *testing.T) {
	f := newGenerationFixture(t)
	ctx := context.Background()
	gen := f.generate(t, "INVOICE", invoiceJSON(t))

	claimed, err := f.idempotency.Claim(ctx, dispatchKey(gen.Generation.ID), time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = f.svc.Dispatch(ctx, gen.Generation.ID, "accounts@harbourcafe.example")
	require.Error(t, err)
	assert.True(t, shared.IsRetryable(err))
	f.notifier.AssertNotCalled(t, "SendDocument", mock.Anything, mock.Anything)
}

func TestGenerationService_DispatchProceedsWhenGuardIsDown(t *testing.T) {
	f := newGenerationFixture(t)
	gen := f.generate(t, "INVOICE", invoiceJSON(t))
	f.idempotency.err = errGuardDown

	f.notifier.On("SendDocument", mock.Anything, mock.Anything).Return(nil).Once()
	sent, err := f.svc.Dispatch(context.Background(), gen.Generation.ID, "accounts@harbourcafe.example")
	require.NoError(t, err)
	assert.True(t, sent.EmailSent)
}

func TestGenerationService_AutoSend(t *testing.T) {
	t.Run("sends after generating", func(t *testing.T) {
		f := newGenerationFixture(t)
		f.notifier.On("SendDocument", mock.Anything, mock.Anything).Return(nil).Once()

		result, err := f.svc.Generate(context.Background(), GenerateDocumentRequest{
			DocumentID:     f.documentID,
			DocumentType:   "INVOICE",
			TemplateData:   invoiceJSON(t),
			AutoSend:       true,
			RecipientEmail: "accounts@harbourcafe.example",
		})
		require.NoError(t, err)
		assert.Nil(t, result.DispatchError)
		assert.True(t, result.Generation.EmailSent)
		assert.Equal(t, "generated", result.Generation.Status)
	})

	t.Run("dispatch failure keeps the generation", func(t *testing.T) {
		f := newGenerationFixture(t)
		f.notifier.On("SendDocument", mock.Anything, mock.Anything).Return(errors.New("smtp: connection reset")).Once()

		result, err := f.svc.Generate(context.Background(), GenerateDocumentRequest{
			DocumentID:     f.documentID,
			DocumentType:   "INVOICE",
			TemplateData:   invoiceJSON(t),
			AutoSend:       true,
			RecipientEmail: "accounts@harbourcafe.example",
		})
		require.NoError(t, err)
		require.NotNil(t, result.DispatchError)
		assert.Equal(t, shared.CodeDispatchFailure, result.DispatchError.Code)
		assert.True(t, result.DispatchError.Retryable)

		assert.Equal(t, "generated", result.Generation.Status)
		assert.Equal(t, "INV-00001", result.Generation.DocumentNumber)
		assert.False(t, result.Generation.EmailSent)
		assert.Equal(t, 1, result.Generation.DispatchAttempts)
	})

	t.Run("without recipient nothing is sent", func(t *testing.T) {
		f := newGenerationFixture(t)
		result, err := f.svc.Generate(context.Background(), GenerateDocumentRequest{
			DocumentID:   f.documentID,
			DocumentType: "INVOICE",
			TemplateData: invoiceJSON(t),
			AutoSend:     true,
		})
		require.NoError(t, err)
		assert.False(t, result.Generation.EmailSent)
		f.notifier.AssertNotCalled(t, "SendDocument", mock.Anything, mock.Anything)
	})
}

func TestGenerationService_CancelledRenderStillRecordsOutcome(t *testing.T) {
	f := newGenerationFixture(t)
	f.renderer.fail = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.Generate(ctx, GenerateDocumentRequest{
		DocumentID:   f.documentID,
		DocumentType: "INVOICE",
		TemplateData: invoiceJSON(t),
	})
	require.Error(t, err)

	require.Len(t, f.store.generations, 1)
	for _, g := range f.store.generations {
		assert.Equal(t, document.GenerationStatusFailed, g.Status)
		assert.Equal(t, "INV-00001", g.DocumentNumber())
	}

	f.renderer.fail = nil
	next := f.generate(t, "INVOICE", invoiceJSON(t))
	assert.Equal(t, "INV-00002", next.Generation.DocumentNumber)
	assert.Equal(t, "generated", next.Generation.Status)
}
