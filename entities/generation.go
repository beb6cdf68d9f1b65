package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Generation struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	UserID          uuid.UUID       `gorm:"index" json:"user_id"`
	Type            string          `json:"type"` // Image, Video, Text
	Prompt          string          `gorm:"type:text" json:"prompt"`
	Status          string          `json:"status"` // Pending, Completed, Failed
	EstimatedCost   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"estimated_cost"`
	RealizedCostMxn decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"realized_cost_mxn"`
	RealizedCostUsd decimal.Decimal `gorm:"type:numeric(12,4);not null;default:0" json:"realized_cost_usd"`
	OutputURL       string          `json:"output_url,omitempty"`
	OutputKey       string          `json:"output_key,omitempty"`
	ErrorMessage    string          `gorm:"type:text" json:"error_message,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`

	User *User `gorm:"foreignKey:UserID"`
	Timestamp
}
