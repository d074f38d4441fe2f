package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/buildops/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CodeGenerationFailed is returned when the renderer could not produce an
// artifact. The generation is persisted as failed with its number consumed.
const CodeGenerationFailed = "GENERATION_FAILED"

// DefaultDispatchClaimTTL bounds how long a dispatch attempt holds its
// idempotency key
const DefaultDispatchClaimTTL = 10 * time.Minute

// GenerationConfig tunes the generation service
type GenerationConfig struct {
	DispatchClaimTTL time.Duration
}

// GenerationService numbers, renders and dispatches project documents
type GenerationService struct {
	txScope     TransactionScope
	renderer    Renderer
	notifier    Notifier
	idempotency shared.IdempotencyStore
	publisher   shared.EventPublisher
	config      GenerationConfig
	logger      *zap.Logger
}

// NewGenerationService creates a new GenerationService. idempotency may be
// nil, in which case concurrent dispatches are only serialized by the
// generation row lock.
func NewGenerationService(
	txScope TransactionScope,
	renderer Renderer,
	notifier Notifier,
	idempotency shared.IdempotencyStore,
	publisher shared.EventPublisher,
	config GenerationConfig,
	logger *zap.Logger,
) *GenerationService {
	if config.DispatchClaimTTL <= 0 {
		config.DispatchClaimTTL = DefaultDispatchClaimTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationService{
		txScope:     txScope,
		renderer:    renderer,
		notifier:    notifier,
		idempotency: idempotency,
		publisher:   publisher,
		config:      config,
		logger:      logger,
	}
}

// RegisterDocument attaches a new document record to a project
func (s *GenerationService) RegisterDocument(ctx context.Context, req RegisterDocumentRequest) (*DocumentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "register")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrProjectID, req.ProjectID.String())

	doc, err := document.NewDocument(req.ProjectID, req.Filename, req.FileType, req.SizeBytes)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.ProjectRepo().FindByID(ctx, req.ProjectID); err != nil {
			return err
		}
		return repos.DocumentRepo().Save(ctx, doc)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Document registered",
		zap.String("document_id", doc.ID.String()),
		zap.String("project_id", doc.ProjectID.String()),
		zap.String("filename", doc.Filename))
	return ToDocumentResponse(doc), nil
}

// Generate allocates the next number for the document type, renders the
// artifact and records the outcome.
//
// The number and the pending generation are committed together before
// rendering starts, so a rendering failure or a cancelled request consumes
// the number and a later call gets a fresh one. Rendering runs outside any
// transaction; the counter row lock is held only while allocating.
func (s *GenerationService) Generate(ctx context.Context, req GenerateDocumentRequest) (*GenerateResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "generate",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, req.DocumentID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentType, req.DocumentType),
	)
	defer span.End()

	docType, err := document.ParseDocumentType(req.DocumentType)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	data, err := document.DecodeTemplateData(docType, req.TemplateData)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := data.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if recipient := strings.TrimSpace(req.RecipientEmail); recipient != "" {
		if err := document.ValidateRecipient(recipient); err != nil {
			return nil, err
		}
	}

	var (
		gen        *document.DocumentGeneration
		projectRef string
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		doc, err := repos.DocumentRepo().FindByID(ctx, req.DocumentID)
		if err != nil {
			return err
		}
		p, err := repos.ProjectRepo().FindByID(ctx, doc.ProjectID)
		if err != nil {
			return err
		}
		projectRef = p.ProjectRef

		number, err := repos.NumberCounterRepo().Next(ctx, docType)
		if err != nil {
			return err
		}
		gen, err = document.NewDocumentGeneration(doc.ID, number, data, req.GeneratedBy, req.AutoSend, req.RecipientEmail)
		if err != nil {
			return err
		}
		return repos.GenerationRepo().Save(ctx, gen)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Info("Document number allocation failed",
			zap.String("document_id", req.DocumentID.String()),
			zap.String("document_type", req.DocumentType),
			zap.Error(err))
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrGenerationID, gen.ID.String())
	telemetry.AddEvent(span, "number_allocated", telemetry.SpanAttrDocumentNumber, gen.DocumentNumber())

	artifact, renderErr := s.renderer.Render(ctx, RenderRequest{
		GenerationID: gen.ID,
		DocumentID:   gen.DocumentID,
		ProjectRef:   projectRef,
		Number:       gen.Number(),
		Data:         data,
	})
	if renderErr == nil && (artifact == nil || artifact.FileURL == "") {
		renderErr = errors.New("renderer returned no artifact")
	}

	// The outcome is recorded even when the caller went away mid-render.
	finishCtx := context.WithoutCancel(ctx)
	err = s.txScope.Execute(finishCtx, func(repos TransactionalRepositories) error {
		locked, err := repos.GenerationRepo().FindByIDForUpdate(finishCtx, gen.ID)
		if err != nil {
			return err
		}
		if renderErr != nil {
			if err := locked.MarkFailed(renderErr.Error()); err != nil {
				return err
			}
			gen = locked
			return repos.GenerationRepo().Save(finishCtx, locked)
		}

		if err := locked.MarkGenerated(artifact.FileURL); err != nil {
			return err
		}
		if err := repos.GenerationRepo().Save(finishCtx, locked); err != nil {
			return err
		}
		doc, err := repos.DocumentRepo().FindByID(finishCtx, locked.DocumentID)
		if err != nil {
			return err
		}
		doc.RecordArtifact(artifact.FileURL, artifact.SizeBytes)
		if err := repos.DocumentRepo().Save(finishCtx, doc); err != nil {
			return err
		}
		gen = locked
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to record generation outcome",
			zap.String("generation_id", gen.ID.String()),
			zap.String("document_number", gen.DocumentNumber()),
			zap.Error(err))
		return nil, err
	}
	s.publish(finishCtx, gen)

	if renderErr != nil {
		telemetry.RecordError(span, renderErr)
		s.logger.Warn("Document generation failed",
			zap.String("generation_id", gen.ID.String()),
			zap.String("document_number", gen.DocumentNumber()),
			zap.Error(renderErr))
		return nil, shared.NewDomainError(CodeGenerationFailed,
			fmt.Sprintf("Generation %s failed: %v", gen.DocumentNumber(), renderErr))
	}

	s.logger.Info("Document generated",
		zap.String("generation_id", gen.ID.String()),
		zap.String("document_number", gen.DocumentNumber()),
		zap.String("file_url", gen.FileURL))

	result := &GenerateResult{Generation: ToGenerationResponse(gen)}
	if gen.AutoSend && gen.RecipientEmail != "" {
		dispatched, err := s.Dispatch(ctx, gen.ID, gen.RecipientEmail)
		if err != nil {
			s.logger.Warn("Automatic dispatch failed; generation kept",
				zap.String("generation_id", gen.ID.String()),
				zap.Error(err))
			result.DispatchError = toDispatchWarning(err)
			if latest, lookupErr := s.GetGeneration(finishCtx, gen.ID); lookupErr == nil {
				result.Generation = *latest
			}
		} else {
			result.Generation = *dispatched
		}
	}
	return result, nil
}

// Dispatch emails a generated artifact. A generation that was already sent
// is returned unchanged without contacting the notifier. When recipient is
// empty the address stored on the generation is used.
func (s *GenerationService) Dispatch(ctx context.Context, generationID uuid.UUID, recipient string) (*GenerationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "dispatch")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrGenerationID, generationID.String())

	var (
		gen        *document.DocumentGeneration
		projectRef string
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		gen, err = repos.GenerationRepo().FindByID(ctx, generationID)
		if err != nil {
			return err
		}
		doc, err := repos.DocumentRepo().FindByID(ctx, gen.DocumentID)
		if err != nil {
			return err
		}
		p, err := repos.ProjectRepo().FindByID(ctx, doc.ProjectID)
		if err != nil {
			return err
		}
		projectRef = p.ProjectRef
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	alreadySent, err := gen.CheckDispatchable()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if alreadySent {
		s.logger.Info("Document already sent, skipping dispatch",
			zap.String("generation_id", gen.ID.String()),
			zap.String("document_number", gen.DocumentNumber()))
		resp := ToGenerationResponse(gen)
		return &resp, nil
	}

	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		recipient = gen.RecipientEmail
	}
	if recipient == "" {
		return nil, shared.NewDomainError("INVALID_RECIPIENT", "A recipient email is required to dispatch a document")
	}
	if err := document.ValidateRecipient(recipient); err != nil {
		return nil, err
	}

	key := dispatchKey(gen.ID)
	guarded := s.claim(ctx, key)
	if !guarded.ok {
		return nil, shared.NewDispatchFailureError(fmt.Sprintf("Dispatch of %s is already in progress", gen.DocumentNumber()))
	}

	sendErr := s.notifier.SendDocument(ctx, DocumentMessage{
		To:             recipient,
		DocumentType:   gen.DocumentType,
		DocumentNumber: gen.DocumentNumber(),
		ProjectRef:     projectRef,
		FileURL:        gen.FileURL,
	})

	finishCtx := context.WithoutCancel(ctx)
	if sendErr != nil {
		telemetry.RecordError(span, sendErr)
		s.recordDispatchFailure(finishCtx, gen.ID, sendErr)
		if guarded.held {
			s.release(finishCtx, key)
		}
		return nil, shared.NewDispatchFailureError(fmt.Sprintf("Sending %s to %s failed: %v", gen.DocumentNumber(), recipient, sendErr))
	}

	err = s.txScope.Execute(finishCtx, func(repos TransactionalRepositories) error {
		locked, err := repos.GenerationRepo().FindByIDForUpdate(finishCtx, gen.ID)
		if err != nil {
			return err
		}
		alreadySent, err := locked.CheckDispatchable()
		if err != nil {
			return err
		}
		gen = locked
		if alreadySent {
			return nil
		}
		if err := locked.MarkEmailSent(recipient); err != nil {
			return err
		}
		return repos.GenerationRepo().Save(finishCtx, locked)
	})
	if err != nil {
		// The email left; the claim stays so the send is not repeated.
		telemetry.RecordError(span, err)
		s.logger.Error("Document sent but sent state not recorded",
			zap.String("generation_id", generationID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Document dispatched",
		zap.String("generation_id", gen.ID.String()),
		zap.String("document_number", gen.DocumentNumber()),
		zap.String("recipient", recipient))
	s.publish(finishCtx, gen)
	resp := ToGenerationResponse(gen)
	return &resp, nil
}

// GetGeneration returns one generation
func (s *GenerationService) GetGeneration(ctx context.Context, generationID uuid.UUID) (*GenerationResponse, error) {
	var gen *document.DocumentGeneration
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		gen, err = repos.GenerationRepo().FindByID(ctx, generationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToGenerationResponse(gen)
	return &resp, nil
}

// ListGenerations returns the generations of a document, newest first
func (s *GenerationService) ListGenerations(ctx context.Context, documentID uuid.UUID) ([]GenerationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "list_generations")
	defer span.End()

	var gens []document.DocumentGeneration
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.DocumentRepo().FindByID(ctx, documentID); err != nil {
			return err
		}
		var err error
		gens, err = repos.GenerationRepo().FindByDocument(ctx, documentID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	out := make([]GenerationResponse, len(gens))
	for i := range gens {
		out[i] = ToGenerationResponse(&gens[i])
	}
	return out, nil
}

type claimResult struct {
	ok   bool
	held bool
}

// claim takes the dispatch key. A failing guard does not block the send; the
// generation row lock still prevents recording two sends.
func (s *GenerationService) claim(ctx context.Context, key string) claimResult {
	if s.idempotency == nil {
		return claimResult{ok: true}
	}
	claimed, err := s.idempotency.Claim(ctx, key, s.config.DispatchClaimTTL)
	if err != nil {
		s.logger.Warn("Dispatch guard unavailable, proceeding without it",
			zap.String("key", key),
			zap.Error(err))
		return claimResult{ok: true}
	}
	return claimResult{ok: claimed, held: claimed}
}

func (s *GenerationService) release(ctx context.Context, key string) {
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Warn("Failed to release dispatch guard", zap.String("key", key), zap.Error(err))
	}
}

func (s *GenerationService) recordDispatchFailure(ctx context.Context, generationID uuid.UUID, sendErr error) {
	var gen *document.DocumentGeneration
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		locked, err := repos.GenerationRepo().FindByIDForUpdate(ctx, generationID)
		if err != nil {
			return err
		}
		locked.RecordDispatchFailure(sendErr.Error())
		gen = locked
		return repos.GenerationRepo().Save(ctx, locked)
	})
	if err != nil {
		s.logger.Error("Failed to record dispatch failure",
			zap.String("generation_id", generationID.String()),
			zap.Error(err))
		return
	}
	s.logger.Warn("Document dispatch failed",
		zap.String("generation_id", generationID.String()),
		zap.String("document_number", gen.DocumentNumber()),
		zap.Int("attempts", gen.DispatchAttempts),
		zap.Error(sendErr))
	s.publish(ctx, gen)
}

func (s *GenerationService) publish(ctx context.Context, gen *document.DocumentGeneration) {
	events := gen.PullDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish generation events",
			zap.String("generation_id", gen.ID.String()),
			zap.Error(err))
	}
}

func dispatchKey(generationID uuid.UUID) string {
	return "document-dispatch:" + generationID.String()
}

func toDispatchWarning(err error) *DispatchWarning {
	w := &DispatchWarning{Code: shared.CodeDispatchFailure, Message: err.Error(), Retryable: shared.IsRetryable(err)}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		w.Code = domainErr.Code
	}
	return w
}
