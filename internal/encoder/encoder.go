// Package encoder implements the five-stage encoding pipeline that turns a
// raw conversational exchange into a non-reversible, k-anonymity-friendly
// record. Encoding is a pure function of the turn plus the process salt;
// nothing here performs I/O.
package encoder

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/compliance"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/config"
	pkgerrors "github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/pkg/errors"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/types"
)

// minLeakLen is the shortest raw-text substring the self-check scans for.
// Shorter fragments collide with ordinary code tokens and carry no
// re-identification weight.
const minLeakLen = 8

type Encoder struct {
	salt        string
	bucketWidth int
	coarseness  config.Coarseness
	precision   config.Precision
	now         func() time.Time
}

type Option func(*Encoder)

// WithClock overrides the wall clock. Test helper.
func WithClock(now func() time.Time) Option {
	return func(e *Encoder) { e.now = now }
}

func New(cfg *config.Config, opts ...Option) (*Encoder, error) {
	if strings.TrimSpace(cfg.EncodingSalt) == "" {
		return nil, fmt.Errorf("encoder: %w: empty salt", pkgerrors.ErrInvalidInput)
	}
	e := &Encoder{
		salt:        cfg.EncodingSalt,
		bucketWidth: cfg.LengthBucketWidth,
		coarseness:  cfg.Coarseness,
		precision:   cfg.Precision,
		now:         time.Now,
	}
	if e.bucketWidth < 50 || e.bucketWidth%50 != 0 {
		return nil, fmt.Errorf("encoder: %w: bucket width %d", pkgerrors.ErrInvalidInput, e.bucketWidth)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Encode runs the full pipeline: hash the user id, encode signals and
// gates, strip glyph refs to ids, generalize quasi-identifiers, then
// self-check the result before handing it back. A record that fails the
// self-check is discarded and an error returned instead.
func (e *Encoder) Encode(turn *types.RawTurn) (*types.EncodedRecord, error) {
	if strings.TrimSpace(turn.SessionID) == "" {
		return nil, fmt.Errorf("encoder: %w: empty session id", pkgerrors.ErrInvalidInput)
	}
	if turn.TurnIndex < 1 {
		return nil, fmt.Errorf("encoder: %w: turn index %d", pkgerrors.ErrInvalidInput, turn.TurnIndex)
	}

	now := e.now().UTC()
	signals, category := e.encodeSignals(turn.Signals)
	rec := &types.EncodedRecord{
		ID:                     uuid.New(),
		UserIDHashed:           e.HashUserID(turn.UserID),
		SessionID:              turn.SessionID,
		TurnIndex:              turn.TurnIndex,
		TimestampCoarse:        e.coarsen(now),
		EncodedSignals:         types.JSONStrings(signals),
		EncodedSignalsCategory: category,
		EncodedGates:           types.JSONStrings(encodeGates(turn.Gates)),
		GlyphIDs:               types.JSONInts(glyphIDs(turn.GlyphRefs)),
		GlyphCount:             len(turn.GlyphRefs),
		UserLenBucket:          e.bucket(len(turn.RawUserText)),
		SystemLenBucket:        e.bucket(len(turn.RawSystemText)),
		SignalCount:            len(turn.Signals),
	}
	if e.precision == config.PrecisionSecond {
		rec.TimestampISO = now.Format(time.RFC3339)
	}

	if err := e.selfCheck(rec, turn); err != nil {
		return nil, err
	}
	return rec, nil
}

// HashUserID computes lowercase hex SHA-256 over "salt:user_id". The
// mapping is deterministic per salt and never stored in reverse.
func (e *Encoder) HashUserID(userID string) string {
	sum := sha256.Sum256([]byte(e.salt + ":" + userID))
	return hex.EncodeToString(sum[:])
}

func (e *Encoder) encodeSignals(signals []types.Signal) ([]string, string) {
	codes := make([]string, 0, len(signals))
	catSet := map[string]struct{}{}
	for i, s := range signals {
		entry, ok := signalTable[strings.ToLower(strings.TrimSpace(s.Keyword))]
		if !ok {
			// The unknown code carries the input position only; the
			// keyword itself must not appear.
			codes = append(codes, fmt.Sprintf("SIG_UNKNOWN_%d", i))
			continue
		}
		codes = append(codes, entry.Code)
		catSet[entry.Category] = struct{}{}
	}
	if len(catSet) == 0 {
		return codes, "uncategorized"
	}
	cats := make([]string, 0, len(catSet))
	for c := range catSet {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return codes, strings.Join(cats, ",")
}

func encodeGates(gates []int) []string {
	codes := make([]string, 0, len(gates))
	for _, id := range gates {
		if code, ok := gateTable[id]; ok {
			codes = append(codes, code)
			continue
		}
		codes = append(codes, fmt.Sprintf("GATE_UNKNOWN_%d", id))
	}
	return codes
}

func glyphIDs(refs []types.GlyphRef) []int {
	ids := make([]int, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids
}

// bucket generalizes a text length to its closed-open range label, e.g.
// 0-100_chars for any length in [0,100).
func (e *Encoder) bucket(n int) string {
	lo := (n / e.bucketWidth) * e.bucketWidth
	return fmt.Sprintf("%d-%d_chars", lo, lo+e.bucketWidth)
}

func (e *Encoder) coarsen(t time.Time) string {
	switch e.coarseness {
	case config.CoarsenessDay:
		return t.Format("2006-01-02")
	case config.CoarsenessMonth:
		return t.Format("2006-01")
	default:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	}
}

// selfCheck enforces the write-blocking compliance rules before the record
// leaves the encoder: the full structural rule set plus a scan for
// surviving raw-text fragments in any persisted value.
func (e *Encoder) selfCheck(rec *types.EncodedRecord, turn *types.RawTurn) error {
	fields := rec.Fields()
	if issues := compliance.CheckFields(fields); len(issues) > 0 {
		return fmt.Errorf("encoder: %w: %s", pkgerrors.ErrComplianceViolation, strings.Join(issues, "; "))
	}
	for _, raw := range []string{turn.RawUserText, turn.RawSystemText} {
		if leaked := findLeak(fields, raw); leaked != "" {
			return fmt.Errorf("encoder: %w: field %s retains raw text", pkgerrors.ErrComplianceViolation, leaked)
		}
	}
	return nil
}

// findLeak reports the first field whose string value contains a substring
// of raw of length >= minLeakLen. Returns "" when clean.
func findLeak(fields map[string]any, raw string) string {
	if len(raw) < minLeakLen {
		return ""
	}
	lower := strings.ToLower(raw)
	for name, v := range fields {
		var vals []string
		switch t := v.(type) {
		case string:
			vals = []string{t}
		case []string:
			vals = t
		default:
			continue
		}
		for _, val := range vals {
			if containsFragment(strings.ToLower(val), lower) {
				return name
			}
		}
	}
	return ""
}

func containsFragment(val, raw string) bool {
	if len(val) < minLeakLen {
		return false
	}
	for i := 0; i+minLeakLen <= len(raw); i++ {
		if strings.Contains(val, raw[i:i+minLeakLen]) {
			return true
		}
	}
	return false
}
