package types

// DirectiveType tags the orchestrator's per-turn outcome.
type DirectiveType string

const (
	DirectiveAnalysis      DirectiveType = "analysis"
	DirectiveConsentPrompt DirectiveType = "consent_prompt"
	DirectiveConsentReply  DirectiveType = "consent_reply"
)

// Analysis carries the derived metadata returned on the safe path. It
// mirrors the persisted record shape minus anything textual.
type Analysis struct {
	UserHash        string `json:"user_hash"`
	SessionID       string `json:"session_id"`
	TurnIndex       int    `json:"turn_index"`
	SignalCount     int    `json:"signal_count"`
	Category        string `json:"category"`
	UserLenBucket   string `json:"user_len_bucket"`
	SystemLenBucket string `json:"system_len_bucket"`
	Persisted       bool   `json:"persisted"`
	Error           string `json:"error,omitempty"`
}

// ConsentReply carries the interpreted outcome of a consent-dialog reply.
type ConsentReply struct {
	Action       ConsentAction `json:"action"`
	ResponseText string        `json:"response_text"`
	Resources    *Resource     `json:"resources,omitempty"`
}

// Resource is a locale-appropriate support resource label and detail line.
type Resource struct {
	Label   string `json:"label"`
	Details string `json:"details"`
}

// Directive is the tagged sum returned by ProcessTurn. Exactly one of the
// payload pointers matching Type is set.
type Directive struct {
	Type          DirectiveType `json:"type"`
	ConsentPrompt string        `json:"consent_prompt,omitempty"`
	Reply         *ConsentReply `json:"reply,omitempty"`
	Analysis      *Analysis     `json:"analysis,omitempty"`
}
