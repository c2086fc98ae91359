package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Truncation limits for clarification fields. Anything longer is cut at
// write time, never on read.
const (
	ClarificationMaxOriginal      = 500
	ClarificationMaxSystem        = 2000
	ClarificationMaxClarification = 1000
)

// Clarification is one user correction ("no, I meant ...") captured with
// the surrounding context. Trigger holds the normalized anchor phrase and
// is the deduplication key together with ConversationID and UserID.
type Clarification struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id,omitempty"`
	Trigger           string         `gorm:"column:trigger;not null;index" json:"trigger"`
	OriginalInput     string         `gorm:"column:original_input;size:500" json:"original_input"`
	SystemResponse    string         `gorm:"column:system_response;size:2000" json:"system_response"`
	UserClarification string         `gorm:"column:user_clarification;size:1000" json:"user_clarification"`
	CorrectedIntent   string         `gorm:"column:corrected_intent" json:"corrected_intent,omitempty"`
	ConversationID    string         `gorm:"column:conversation_id;index" json:"conversation_id,omitempty"`
	UserID            string         `gorm:"column:user_id;index" json:"user_id,omitempty"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at,omitempty"`
	UpdatedAt         time.Time      `gorm:"not null" json:"-"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Clarification) TableName() string { return "clarification" }

// Key identifies the authoritative-row scope for a clarification.
type ClarificationKey struct {
	Trigger        string
	ConversationID string
	UserID         string
}

func (c *Clarification) Key() ClarificationKey {
	return ClarificationKey{Trigger: c.Trigger, ConversationID: c.ConversationID, UserID: c.UserID}
}
