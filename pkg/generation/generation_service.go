package generation

import (
	"clipify-backend/domain"
	"clipify-backend/entities"
	"clipify-backend/pkg/ledger"
	"clipify-backend/pkg/media"
	"clipify-backend/pkg/vertex"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	GenerationService interface {
		CreateGeneration(ctx context.Context, req domain.CreateGenerationRequest, userID string) (domain.GenerationResponse, error)
		Generate(ctx context.Context, req domain.CreateGenerationRequest, userID string) (domain.GenerationResponse, error)
		CompleteGeneration(ctx context.Context, id string, req domain.CompleteGenerationRequest, userID string) (domain.GenerationResponse, error)
		FailGeneration(ctx context.Context, id string, req domain.FailGenerationRequest, userID string) error
		GetGenerationByID(ctx context.Context, id string, userID string) (domain.GenerationResponse, error)
		GetUserGenerations(ctx context.Context, userID string, page, limit int) ([]domain.GenerationResponse, int64, error)
	}

	generationService struct {
		generationRepository GenerationRepository
		ledgerService        ledger.LedgerService
		mediaService         media.MediaService
		vertexClient         vertex.VertexClient
	}
)

func NewGenerationService(
	generationRepository GenerationRepository,
	ledgerService ledger.LedgerService,
	mediaService media.MediaService,
	vertexClient vertex.VertexClient,
) GenerationService {
	return &generationService{
		generationRepository: generationRepository,
		ledgerService:        ledgerService,
		mediaService:         mediaService,
		vertexClient:         vertexClient,
	}
}

// CreateGeneration inserts the Pending record. No ledger interaction happens
// here; the charge is deferred until completion, when the real cost is known.
func (s *generationService) CreateGeneration(ctx context.Context, req domain.CreateGenerationRequest, userID string) (domain.GenerationResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.GenerationResponse{}, domain.ErrParseUUID
	}

	estimate, ok := domain.EstimatedCosts[req.Type]
	if !ok {
		return domain.GenerationResponse{}, domain.ErrInvalidGenType
	}

	gen := &entities.Generation{
		ID:            uuid.New(),
		UserID:        userUUID,
		Type:          req.Type,
		Prompt:        req.Prompt,
		Status:        domain.GenStatusPending,
		EstimatedCost: estimate,
	}

	if err := s.generationRepository.Create(ctx, gen); err != nil {
		return domain.GenerationResponse{}, err
	}

	return toGenerationResponse(gen), nil
}

// Generate drives one unit of work end to end: balance hint, pending record,
// long-running provider call, output ingestion, completion with the realized
// cost. The whole wait happens while the record stays Pending; a processing
// status is never persisted. Cancelling ctx aborts the poll loop and the
// record is marked failed.
func (s *generationService) Generate(ctx context.Context, req domain.CreateGenerationRequest, userID string) (domain.GenerationResponse, error) {
	estimate, ok := domain.EstimatedCosts[req.Type]
	if !ok {
		return domain.GenerationResponse{}, domain.ErrInvalidGenType
	}

	// UX hint only. The authoritative check is the conditional deduction at
	// completion time; between here and there concurrent work can drain the
	// account.
	balance, err := s.ledgerService.GetBalance(ctx, userID)
	if err != nil {
		return domain.GenerationResponse{}, err
	}
	if balance.LessThan(estimate) {
		return domain.GenerationResponse{}, domain.ErrInsufficientCredits
	}

	resp, err := s.CreateGeneration(ctx, req, userID)
	if err != nil {
		return domain.GenerationResponse{}, err
	}

	params := generationParams(req)
	payload, err := s.vertexClient.Generate(ctx, req.Prompt, params)
	if err != nil {
		failReq := domain.FailGenerationRequest{ErrorMessage: err.Error()}
		if failErr := s.FailGeneration(context.WithoutCancel(ctx), resp.ID, failReq, userID); failErr != nil {
			log.Printf("generation: failed to record failure for %s: %v", resp.ID, failErr)
		}
		return domain.GenerationResponse{}, err
	}

	realized := domain.RealizedGenerationCost(req.Type, params.SampleCount, params.DurationSec)
	completeReq := domain.CompleteGenerationRequest{
		Payload:         payload,
		RealizedCostMxn: realized,
		RealizedCostUsd: realized.Div(domain.MxnPerUsd).Round(4),
	}

	return s.CompleteGeneration(ctx, resp.ID, completeReq, userID)
}

// CompleteGeneration finalizes a Pending record: the output is materialized,
// the terminal state is written, then the ledger is charged with the realized
// cost. Repeat completions are rejected before any of that happens so a
// retried request can never re-charge.
func (s *generationService) CompleteGeneration(ctx context.Context, id string, req domain.CompleteGenerationRequest, userID string) (domain.GenerationResponse, error) {
	gen, err := s.loadOwned(ctx, id, userID)
	if err != nil {
		return domain.GenerationResponse{}, err
	}
	if gen.Status != domain.GenStatusPending {
		return domain.GenerationResponse{}, domain.ErrGenerationFinalized
	}
	if !req.RealizedCostMxn.IsPositive() {
		return domain.GenerationResponse{}, domain.ErrInvalidCreditAmount
	}

	outputRef, err := s.mediaService.Ingest(ctx, req.Payload, gen.Type, userID, id)
	if err != nil {
		return domain.GenerationResponse{}, err
	}

	completedAt := time.Now()
	ok, err := s.generationRepository.MarkCompleted(ctx, gen.ID, outputRef.URL, outputRef.Key, req.RealizedCostMxn, req.RealizedCostUsd, completedAt)
	if err != nil {
		return domain.GenerationResponse{}, err
	}
	if !ok {
		// Lost a race against another finalizer; no ledger mutation.
		return domain.GenerationResponse{}, domain.ErrGenerationFinalized
	}

	description := fmt.Sprintf("%s generation %s", gen.Type, gen.ID)
	if _, err := s.ledgerService.Deduct(ctx, userID, req.RealizedCostMxn, description, &gen.ID); err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			// Known hazard of the deferred charge: the pre-flight check passed
			// but the balance drained before completion. Logged apart from
			// ordinary rejections so it can be reconciled.
			log.Printf("ledger: deferred charge exceeded balance for user %s, generation %s, amount %s", userID, gen.ID, req.RealizedCostMxn)
		}
		return domain.GenerationResponse{}, err
	}

	gen.Status = domain.GenStatusCompleted
	gen.OutputURL = outputRef.URL
	gen.OutputKey = outputRef.Key
	gen.RealizedCostMxn = req.RealizedCostMxn
	gen.RealizedCostUsd = req.RealizedCostUsd
	gen.CompletedAt = &completedAt

	return toGenerationResponse(gen), nil
}

// FailGeneration records a terminal failure. Failed work is never billed.
func (s *generationService) FailGeneration(ctx context.Context, id string, req domain.FailGenerationRequest, userID string) error {
	gen, err := s.loadOwned(ctx, id, userID)
	if err != nil {
		return err
	}
	if gen.Status != domain.GenStatusPending {
		return domain.ErrGenerationFinalized
	}

	ok, err := s.generationRepository.MarkFailed(ctx, gen.ID, req.ErrorMessage, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrGenerationFinalized
	}

	return nil
}

func (s *generationService) GetGenerationByID(ctx context.Context, id string, userID string) (domain.GenerationResponse, error) {
	gen, err := s.loadOwned(ctx, id, userID)
	if err != nil {
		return domain.GenerationResponse{}, err
	}
	return toGenerationResponse(gen), nil
}

func (s *generationService) GetUserGenerations(ctx context.Context, userID string, page, limit int) ([]domain.GenerationResponse, int64, error) {
	generations, count, err := s.generationRepository.GetUserGenerations(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	response := make([]domain.GenerationResponse, 0, len(generations))
	for _, gen := range generations {
		response = append(response, toGenerationResponse(gen))
	}

	return response, count, nil
}

func (s *generationService) loadOwned(ctx context.Context, id string, userID string) (*entities.Generation, error) {
	gen, err := s.generationRepository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGenerationNotFound
		}
		return nil, err
	}

	// A foreign record is reported as missing, not as forbidden.
	if gen.UserID.String() != userID {
		return nil, domain.ErrGenerationNotFound
	}

	return gen, nil
}

func generationParams(req domain.CreateGenerationRequest) vertex.GenerationParams {
	params := vertex.GenerationParams{
		AspectRatio: req.AspectRatio,
		SampleCount: 1,
	}
	if req.Type == domain.GenTypeVideo {
		params.DurationSec = 8
	}
	return params
}

func toGenerationResponse(gen *entities.Generation) domain.GenerationResponse {
	return domain.GenerationResponse{
		ID:              gen.ID.String(),
		Type:            gen.Type,
		Prompt:          gen.Prompt,
		Status:          gen.Status,
		EstimatedCost:   gen.EstimatedCost,
		RealizedCostMxn: gen.RealizedCostMxn,
		RealizedCostUsd: gen.RealizedCostUsd,
		OutputURL:       gen.OutputURL,
		ErrorMessage:    gen.ErrorMessage,
		CreatedAt:       gen.CreatedAt,
		CompletedAt:     gen.CompletedAt,
	}
}
