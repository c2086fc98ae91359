// Package orchestrator routes each incoming turn through the crisis gate,
// the encoder, and the durable stores. A session is processed strictly
// sequentially; different sessions run independently.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/clarify"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/crisisgate"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/logger"
	pkgerrors "github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/pkg/errors"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/sessioncache"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/types"
)

// Encoder turns a raw exchange into its non-reversible persisted form.
// Satisfied by encoder.Encoder.
type Encoder interface {
	Encode(turn *types.RawTurn) (*types.EncodedRecord, error)
	HashUserID(userID string) string
}

// External collaborators. All are optional; a nil source contributes
// nothing to the encoded record.
type (
	SignalSource interface {
		SignalsFor(ctx context.Context, text string) []types.Signal
	}
	GateSource interface {
		GatesFor(ctx context.Context, text string) []int
	}
	GlyphSource interface {
		GlyphsFor(ctx context.Context, text string) []types.GlyphRef
	}
)

// TurnInput is one incoming exchange. SystemText is the response the
// embedding application rendered for this turn, used only for length
// bucketing and clarification context.
type TurnInput struct {
	SessionID  string
	UserID     string
	Text       string
	SystemText string
}

// priorTurn holds the previous exchange of a session in process memory
// only, so a detected correction can attach its context. Never persisted.
type priorTurn struct {
	userText   string
	systemText string
}

// Idle session bookkeeping is dropped on the same horizon as the session
// cache TTL; the sweep runs opportunistically, at most once per interval.
const (
	sessionIdleTTL = 24 * time.Hour
	sweepInterval  = time.Minute
)

// sessionEntry serializes one session's turns and carries its prior
// exchange. lastSeen is guarded by the orchestrator mutex, prior by the
// entry lock.
type sessionEntry struct {
	lock     sync.Mutex
	prior    priorTurn
	lastSeen time.Time
}

type Orchestrator struct {
	enc            Encoder
	gate           *crisisgate.Gate
	storage        Storage
	clarifications *clarify.Store
	cache          sessioncache.Cache
	signals        SignalSource
	gateSource     GateSource
	glyphs         GlyphSource
	log            *logger.Logger
	tracer         trace.Tracer
	clock          func() time.Time

	mu        sync.Mutex
	sessions  map[string]*sessionEntry
	lastSweep time.Time
}

type Config struct {
	Encoder        Encoder
	Gate           *crisisgate.Gate
	Storage        Storage
	Clarifications *clarify.Store
	Cache          sessioncache.Cache
	Signals        SignalSource
	Gates          GateSource
	Glyphs         GlyphSource
}

func New(cfg Config, baseLog *logger.Logger) (*Orchestrator, error) {
	if cfg.Encoder == nil || cfg.Gate == nil || cfg.Storage == nil {
		return nil, fmt.Errorf("orchestrator: %w: encoder, gate, and storage are required", pkgerrors.ErrInvalidInput)
	}
	cache := cfg.Cache
	if cache == nil {
		cache = sessioncache.NewMemoryCache()
	}
	return &Orchestrator{
		enc:            cfg.Encoder,
		gate:           cfg.Gate,
		storage:        cfg.Storage,
		clarifications: cfg.Clarifications,
		cache:          cache,
		signals:        cfg.Signals,
		gateSource:     cfg.Gates,
		glyphs:         cfg.Glyphs,
		log:            baseLog.With("component", "ConversationOrchestrator"),
		tracer:         otel.Tracer("orchestrator"),
		clock:          time.Now,
		sessions:       map[string]*sessionEntry{},
	}, nil
}

// ProcessTurn routes one turn. Routine conditions (risk prompts, storage
// outages, clarification fallbacks) come back inside the directive; only
// programmer errors return a non-nil error.
func (o *Orchestrator) ProcessTurn(ctx context.Context, in TurnInput) (types.Directive, error) {
	if strings.TrimSpace(in.SessionID) == "" {
		return types.Directive{}, fmt.Errorf("orchestrator: %w: empty session id", pkgerrors.ErrInvalidInput)
	}

	ctx, span := o.tracer.Start(ctx, "ProcessTurn",
		trace.WithAttributes(attribute.String("session_id", in.SessionID)))
	defer span.End()

	entry := o.session(in.SessionID)
	entry.lock.Lock()
	defer entry.lock.Unlock()

	state, err := o.cache.Get(ctx, in.SessionID)
	if err != nil {
		o.log.Warn("session cache read failed, starting clean", "session_id", in.SessionID, "error", err)
	}
	if state == nil {
		state = types.NewSessionState(in.SessionID)
	}

	userHash := o.enc.HashUserID(in.UserID)

	var directive types.Directive
	switch {
	case state.EscalationPending:
		directive = o.handleEscalationConsent(ctx, state, userHash, in.Text)
	case state.PendingConsent:
		directive = o.handleConsentReply(ctx, state, userHash, in.Text)
	default:
		if assessment := o.gate.Classify(in.Text); assessment.Level != types.RiskNone {
			directive = o.handleRiskDetected(ctx, state, userHash, assessment)
		} else {
			directive = o.handleSafeTurn(ctx, state, entry, userHash, in)
		}
	}

	if err := o.cache.Put(ctx, state); err != nil {
		o.log.Error("session state save failed", "session_id", in.SessionID, "error", err)
	}
	span.SetAttributes(attribute.String("directive", string(directive.Type)))
	return directive, nil
}

// handleRiskDetected opens the consent dialog. The turn's content is not
// encoded or persisted; only the prompt and a transcript row leave here.
func (o *Orchestrator) handleRiskDetected(ctx context.Context, state *types.SessionState, userHash string, assessment crisisgate.Assessment) types.Directive {
	state.PendingConsent = true
	state.PendingRisk = assessment.Level
	o.recordTranscript(ctx, state.SessionID, userHash, assessment.Level, types.ActionPrompted)
	return types.Directive{
		Type:          types.DirectiveConsentPrompt,
		ConsentPrompt: o.gate.BuildConsentPrompt(assessment.Level),
	}
}

// handleConsentReply interprets the reply to an open consent prompt. The
// reply is routed here regardless of its content; a decisive action
// clears the pending flag, unknown keeps the dialog open.
func (o *Orchestrator) handleConsentReply(ctx context.Context, state *types.SessionState, userHash, text string) types.Directive {
	reply := o.gate.InterpretReply(text, state.PendingRisk)
	o.recordTranscript(ctx, state.SessionID, userHash, state.PendingRisk, reply.Action)

	switch reply.Action {
	case types.ActionStay, types.ActionDecline, types.ActionResources:
		state.PendingConsent = false
		state.PendingRisk = types.RiskNone
	case types.ActionEscalate:
		state.PendingConsent = false
		state.EscalationPending = true
	}

	return types.Directive{Type: types.DirectiveConsentReply, Reply: &reply}
}

// handleEscalationConsent waits for the second, explicit yes before an
// escalation proceeds. Nothing is contacted either way; the consent flag
// is recorded for the embedding application to act on.
func (o *Orchestrator) handleEscalationConsent(ctx context.Context, state *types.SessionState, userHash, text string) types.Directive {
	consented, decisive := o.gate.InterpretEscalationConsent(text)
	if !decisive {
		reply := types.ConsentReply{
			Action:       types.ActionUnknown,
			ResponseText: "Just a yes or no is all I need — nothing happens until you decide.",
		}
		o.recordTranscript(ctx, state.SessionID, userHash, state.PendingRisk, types.ActionUnknown)
		return types.Directive{Type: types.DirectiveConsentReply, Reply: &reply}
	}

	state.EscalationPending = false
	level := state.PendingRisk
	state.PendingRisk = types.RiskNone

	var reply types.ConsentReply
	if consented {
		state.EscalationConsented = true
		reply = types.ConsentReply{
			Action:       types.ActionEscalate,
			ResponseText: "Thank you. I'll hand this to someone who can help you connect right away.",
		}
		o.recordTranscript(ctx, state.SessionID, userHash, level, types.ActionEscalate)
	} else {
		reply = types.ConsentReply{
			Action:       types.ActionDecline,
			ResponseText: "Okay, we won't go that route. I'm still here with you.",
		}
		o.recordTranscript(ctx, state.SessionID, userHash, level, types.ActionDecline)
	}
	return types.Directive{Type: types.DirectiveConsentReply, Reply: &reply}
}

// handleSafeTurn runs the encode-and-persist path and opportunistically
// captures corrections. The correction is captured against the prior
// exchange before encoding, so an encode refusal never loses it.
func (o *Orchestrator) handleSafeTurn(ctx context.Context, state *types.SessionState, entry *sessionEntry, userHash string, in TurnInput) types.Directive {
	state.TurnCount++

	o.captureClarification(ctx, in, userHash, entry.prior)
	defer func() {
		entry.prior = priorTurn{userText: in.Text, systemText: in.SystemText}
	}()

	turn := &types.RawTurn{
		UserID:        in.UserID,
		RawUserText:   in.Text,
		RawSystemText: in.SystemText,
		SessionID:     in.SessionID,
		TurnIndex:     state.TurnCount,
	}
	if o.signals != nil {
		turn.Signals = o.signals.SignalsFor(ctx, in.Text)
	}
	if o.gateSource != nil {
		turn.Gates = o.gateSource.GatesFor(ctx, in.Text)
	}
	if o.glyphs != nil {
		turn.GlyphRefs = o.glyphs.GlyphsFor(ctx, in.Text)
	}

	analysis := types.Analysis{
		UserHash:  userHash,
		SessionID: in.SessionID,
		TurnIndex: state.TurnCount,
	}

	record, err := o.enc.Encode(turn)
	if err != nil {
		// The record failed the privacy self-check or its inputs were
		// malformed; nothing is persisted for this turn.
		o.log.Error("encode refused", "session_id", in.SessionID, "error", err)
		analysis.Error = err.Error()
		return types.Directive{Type: types.DirectiveAnalysis, Analysis: &analysis}
	}

	analysis.SignalCount = record.SignalCount
	analysis.Category = record.EncodedSignalsCategory
	analysis.UserLenBucket = record.UserLenBucket
	analysis.SystemLenBucket = record.SystemLenBucket

	if err := o.storage.WriteRecord(ctx, record); err != nil {
		o.log.Error("record write failed", "session_id", in.SessionID, "error", err)
		analysis.Persisted = false
		analysis.Error = "durable write failed"
	} else {
		analysis.Persisted = true
	}

	return types.Directive{Type: types.DirectiveAnalysis, Analysis: &analysis}
}

func (o *Orchestrator) captureClarification(ctx context.Context, in TurnInput, userHash string, prev priorTurn) {
	if o.clarifications == nil || !o.clarifications.Detect(in.Text) {
		return
	}
	c := &types.Clarification{
		Trigger:           in.Text,
		OriginalInput:     prev.userText,
		SystemResponse:    prev.systemText,
		UserClarification: in.Text,
		ConversationID:    in.SessionID,
		UserID:            userHash,
	}
	if !o.clarifications.Write(ctx, c) {
		o.log.Warn("clarification was not durably recorded", "session_id", in.SessionID)
	}
}

func (o *Orchestrator) recordTranscript(ctx context.Context, sessionID, userHash string, level types.RiskLevel, action types.ConsentAction) {
	transcript := &types.ConsentTranscript{
		SessionID: sessionID,
		UserHash:  userHash,
		RiskLevel: level,
		Action:    action,
	}
	if err := o.storage.WriteTranscript(ctx, transcript); err != nil {
		o.log.Error("transcript write failed", "session_id", sessionID, "error", err)
	}
}

// session returns the session's entry, creating it on first sight and
// sweeping out entries idle past the TTL.
func (o *Orchestrator) session(sessionID string) *sessionEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.clock()
	if now.Sub(o.lastSweep) >= sweepInterval {
		for id, e := range o.sessions {
			if now.Sub(e.lastSeen) > sessionIdleTTL {
				delete(o.sessions, id)
			}
		}
		o.lastSweep = now
	}
	entry, ok := o.sessions[sessionID]
	if !ok {
		entry = &sessionEntry{}
		o.sessions[sessionID] = entry
	}
	entry.lastSeen = now
	return entry
}
