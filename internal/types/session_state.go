package types

// SessionState is the per-session routing state. It may be persisted as an
// opaque JSON blob (session cache); it must never contain raw turn text.
type SessionState struct {
	SessionID           string    `json:"session_id"`
	PendingConsent      bool      `json:"pending_consent"`
	PendingRisk         RiskLevel `json:"pending_risk"`
	EscalationPending   bool      `json:"escalation_pending"`
	EscalationConsented bool      `json:"escalation_consented"`
	TurnCount           int       `json:"turn_count"`
}

func NewSessionState(sessionID string) *SessionState {
	return &SessionState{SessionID: sessionID, PendingRisk: RiskNone}
}
