package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	MessageSuccessCreateGeneration = "generation started successfully"
	MessageSuccessGetGeneration    = "generation retrieved successfully"
	MessageSuccessGetGenerations   = "generations retrieved successfully"
	MessageSuccessCompleteGen      = "generation completed successfully"
	MessageSuccessFailGen          = "generation marked as failed"

	MessageFailedCreateGeneration = "failed to start generation"
	MessageFailedGetGeneration    = "failed to retrieve generation"
	MessageFailedGetGenerations   = "failed to retrieve generations"
	MessageFailedCompleteGen      = "failed to complete generation"
	MessageFailedFailGen          = "failed to mark generation as failed"

	ErrGenerationNotFound  = errors.New("generation not found")
	ErrGenerationFinalized = errors.New("generation already finalized")
	ErrInvalidGenType      = errors.New("invalid generation type")
	ErrEmptyResultPayload  = errors.New("generation result payload is empty")

	ErrUpstreamQuota     = errors.New("upstream quota exceeded")
	ErrUpstreamFailed    = errors.New("upstream generation failed")
	ErrPollTimeout       = errors.New("generation operation timed out")
	ErrUnsupportedResult = errors.New("operation finished without inline result bytes")

	ErrEmptyPayload     = errors.New("decoded payload is empty")
	ErrPayloadFetch     = errors.New("failed to fetch remote payload")
	ErrInvalidMediaKind = errors.New("invalid media kind")
)

type OutputRef struct {
	URL string `json:"url"`
	Key string `json:"key,omitempty"`
}

const (
	GenTypeImage = "Image"
	GenTypeVideo = "Video"
	GenTypeText  = "Text"

	GenStatusPending   = "Pending"
	GenStatusCompleted = "Completed"
	GenStatusFailed    = "Failed"
)

// Pre-flight cost estimates per generation type, in credits. The real charge
// is the realized cost reported at completion; these only gate obviously
// underfunded requests before any provider call.
var EstimatedCosts = map[string]decimal.Decimal{
	GenTypeImage: decimal.NewFromInt(5),
	GenTypeVideo: decimal.NewFromInt(25),
	GenTypeText:  decimal.NewFromInt(1),
}

// Unit prices used to measure the realized cost once the work is done.
var (
	CostImagePerSample = decimal.NewFromInt(5)
	CostVideoPerSecond = decimal.RequireFromString("3.50")
	CostTextPerCall    = decimal.NewFromInt(1)

	// Fixed reporting rate for the USD column; billing itself is MXN only.
	MxnPerUsd = decimal.RequireFromString("18.50")
)

// RealizedGenerationCost measures the actual cost of a finished unit of work
// in credits. It can differ from the pre-flight estimate, e.g. when the video
// model renders a longer clip than the default.
func RealizedGenerationCost(genType string, sampleCount, durationSec int) decimal.Decimal {
	if sampleCount < 1 {
		sampleCount = 1
	}
	switch genType {
	case GenTypeVideo:
		if durationSec < 1 {
			durationSec = 1
		}
		return CostVideoPerSecond.Mul(decimal.NewFromInt(int64(durationSec)))
	case GenTypeText:
		return CostTextPerCall.Mul(decimal.NewFromInt(int64(sampleCount)))
	default:
		return CostImagePerSample.Mul(decimal.NewFromInt(int64(sampleCount)))
	}
}

type (
	CreateGenerationRequest struct {
		Type        string `json:"type" validate:"required,oneof=Image Video Text"`
		Prompt      string `json:"prompt" validate:"required,min=1,max=4000"`
		AspectRatio string `json:"aspect_ratio,omitempty"`
	}

	// CompleteGenerationRequest carries the raw result payload in any of the
	// three ingestion forms (data URI, remote URL, raw base64) plus the
	// measured cost of the work.
	CompleteGenerationRequest struct {
		Payload         string          `json:"payload" validate:"required"`
		RealizedCostMxn decimal.Decimal `json:"realized_cost_mxn" validate:"required"`
		RealizedCostUsd decimal.Decimal `json:"realized_cost_usd"`
	}

	FailGenerationRequest struct {
		ErrorMessage string `json:"error_message" validate:"required"`
	}

	GenerationResponse struct {
		ID              string          `json:"id"`
		Type            string          `json:"type"`
		Prompt          string          `json:"prompt"`
		Status          string          `json:"status"`
		EstimatedCost   decimal.Decimal `json:"estimated_cost"`
		RealizedCostMxn decimal.Decimal `json:"realized_cost_mxn"`
		RealizedCostUsd decimal.Decimal `json:"realized_cost_usd"`
		OutputURL       string          `json:"output_url,omitempty"`
		ErrorMessage    string          `json:"error_message,omitempty"`
		CreatedAt       time.Time       `json:"created_at"`
		CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	}
)
