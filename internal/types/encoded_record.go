package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EncodedRecord is the sole persistent representation of a conversational
// turn. Every field is either hashed, an opaque code, or a generalized
// bucket; raw text never reaches this struct.
type EncodedRecord struct {
	ID                     uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserIDHashed           string         `gorm:"column:user_id_hashed;size:64;not null;index" json:"user_id_hashed"`
	SessionID              string         `gorm:"column:session_id;not null;index" json:"session_id"`
	TurnIndex              int            `gorm:"column:turn_index;not null" json:"turn_index"`
	TimestampISO           string         `gorm:"column:timestamp_iso" json:"timestamp_iso,omitempty"`
	TimestampCoarse        string         `gorm:"column:timestamp_coarse;not null" json:"timestamp_coarse"`
	EncodedSignals         datatypes.JSON `gorm:"type:jsonb;column:encoded_signals" json:"encoded_signals"`
	EncodedSignalsCategory string         `gorm:"column:encoded_signals_category;not null" json:"encoded_signals_category"`
	EncodedGates           datatypes.JSON `gorm:"type:jsonb;column:encoded_gates" json:"encoded_gates"`
	GlyphIDs               datatypes.JSON `gorm:"type:jsonb;column:glyph_ids" json:"glyph_ids"`
	GlyphCount             int            `gorm:"column:glyph_count;not null" json:"glyph_count"`
	UserLenBucket          string         `gorm:"column:user_len_bucket;not null" json:"user_len_bucket"`
	SystemLenBucket        string         `gorm:"column:system_len_bucket;not null" json:"system_len_bucket"`
	SignalCount            int            `gorm:"column:signal_count;not null" json:"signal_count"`
	CreatedAt              time.Time      `gorm:"not null" json:"-"`
	UpdatedAt              time.Time      `gorm:"not null" json:"-"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`
}

func (EncodedRecord) TableName() string { return "encoded_record" }

// SignalCodes decodes the encoded_signals column back into a string slice.
func (r *EncodedRecord) SignalCodes() []string { return decodeStrings(r.EncodedSignals) }

// GateCodes decodes the encoded_gates column back into a string slice.
func (r *EncodedRecord) GateCodes() []string { return decodeStrings(r.EncodedGates) }

// Glyphs decodes the glyph_ids column back into an int slice.
func (r *EncodedRecord) Glyphs() []int {
	var out []int
	if len(r.GlyphIDs) == 0 {
		return out
	}
	_ = json.Unmarshal(r.GlyphIDs, &out)
	return out
}

// Fields renders the record the way it is persisted: a flat field map.
// The compliance verifier runs its checks against this form.
func (r *EncodedRecord) Fields() map[string]any {
	m := map[string]any{
		"user_id_hashed":           r.UserIDHashed,
		"session_id":               r.SessionID,
		"turn_index":               r.TurnIndex,
		"timestamp_coarse":         r.TimestampCoarse,
		"encoded_signals":          r.SignalCodes(),
		"encoded_signals_category": r.EncodedSignalsCategory,
		"encoded_gates":            r.GateCodes(),
		"glyph_ids":                r.Glyphs(),
		"glyph_count":              r.GlyphCount,
		"user_len_bucket":          r.UserLenBucket,
		"system_len_bucket":        r.SystemLenBucket,
		"signal_count":             r.SignalCount,
	}
	if r.TimestampISO != "" {
		m["timestamp_iso"] = r.TimestampISO
	}
	return m
}

func decodeStrings(raw datatypes.JSON) []string {
	var out []string
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

// JSONStrings encodes a string slice for a jsonb column. An empty slice
// encodes as [] rather than null so reads stay shape-stable.
func JSONStrings(vals []string) datatypes.JSON {
	if vals == nil {
		vals = []string{}
	}
	b, _ := json.Marshal(vals)
	return datatypes.JSON(b)
}

// JSONInts encodes an int slice for a jsonb column.
func JSONInts(vals []int) datatypes.JSON {
	if vals == nil {
		vals = []int{}
	}
	b, _ := json.Marshal(vals)
	return datatypes.JSON(b)
}
