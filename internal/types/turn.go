package types

// Signal is an emotional-category token emitted by the upstream signal
// source for a single turn. Voltage is optional intensity metadata; it is
// never persisted.
type Signal struct {
	Keyword string   `json:"keyword"`
	Voltage *float64 `json:"voltage,omitempty"`
}

// GlyphRef references an external glyph artifact. Only the integer id
// survives encoding; name and content are dropped on sight.
type GlyphRef struct {
	ID      int    `json:"id"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content,omitempty"`
}

// RawTurn is the in-memory representation of one conversational exchange.
// It exists only inside the turn handler and is never written anywhere.
type RawTurn struct {
	UserID        string
	RawUserText   string
	RawSystemText string
	SessionID     string
	TurnIndex     int
	Signals       []Signal
	Gates         []int
	GlyphRefs     []GlyphRef
}
