package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RiskLevel is the classifier's verdict for one turn.
type RiskLevel string

const (
	RiskNone   RiskLevel = "none"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ConsentAction is what the user chose (or that they were prompted).
type ConsentAction string

const (
	ActionPrompted  ConsentAction = "prompted"
	ActionStay      ConsentAction = "stay"
	ActionResources ConsentAction = "resources"
	ActionEscalate  ConsentAction = "escalate"
	ActionDecline   ConsentAction = "decline"
	ActionUnknown   ConsentAction = "unknown"
)

// ConsentTranscript records one consent-dialog transition. It carries the
// hashed user id and derived labels only; raw user text never lands here.
type ConsentTranscript struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID string         `gorm:"column:session_id;not null;index" json:"session_id"`
	UserHash  string         `gorm:"column:user_hash;size:64;not null;index" json:"user_hash"`
	RiskLevel RiskLevel      `gorm:"column:risk_level;not null" json:"risk_level"`
	Action    ConsentAction  `gorm:"column:action;not null" json:"action"`
	CreatedAt time.Time      `gorm:"not null" json:"timestamp"`
	UpdatedAt time.Time      `gorm:"not null" json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ConsentTranscript) TableName() string { return "consent_transcript" }
