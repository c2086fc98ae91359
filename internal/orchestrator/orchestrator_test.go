package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/clarify"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/compliance"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/config"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/crisisgate"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/encoder"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/logger"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/types"
)

// fakeStorage collects writes in memory and can be told to fail.
type fakeStorage struct {
	mu          sync.Mutex
	records     []*types.EncodedRecord
	transcripts []*types.ConsentTranscript
	failRecords bool
}

func (s *fakeStorage) WriteRecord(_ context.Context, record *types.EncodedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRecords {
		return fmt.Errorf("storage down")
	}
	s.records = append(s.records, record)
	return nil
}

func (s *fakeStorage) WriteTranscript(_ context.Context, transcript *types.ConsentTranscript) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts = append(s.transcripts, transcript)
	return nil
}

func (s *fakeStorage) Records(_ context.Context, scope compliance.Scope) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]any
	for _, r := range s.records {
		if scope.SessionID != "" && r.SessionID != scope.SessionID {
			continue
		}
		out = append(out, r.Fields())
	}
	return out, nil
}

type staticSignals struct{ signals []types.Signal }

func (s staticSignals) SignalsFor(context.Context, string) []types.Signal { return s.signals }

func newTestOrchestrator(t *testing.T, storage Storage, opts ...func(*Config)) *Orchestrator {
	t.Helper()
	enc, err := encoder.New(&config.Config{
		EncodingSalt:      "test-salt",
		LengthBucketWidth: 100,
		Coarseness:        config.CoarsenessWeek,
		Precision:         config.PrecisionSecond,
	})
	if err != nil {
		t.Fatalf("encoder.New: %v", err)
	}
	cfg := Config{
		Encoder: enc,
		Gate:    crisisgate.New(crisisgate.DefaultLexicon(), "US"),
		Storage: storage,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	o, err := New(cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func TestProcessTurn_SafeSmallTalk(t *testing.T) {
	storage := &fakeStorage{}
	o := newTestOrchestrator(t, storage)

	d, err := o.ProcessTurn(context.Background(), TurnInput{
		SessionID: "s1",
		UserID:    "alice@example.com",
		Text:      "hello",
	})
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if d.Type != types.DirectiveAnalysis {
		t.Fatalf("expected analysis, got %s", d.Type)
	}
	if !d.Analysis.Persisted {
		t.Fatalf("expected persisted=true")
	}
	if len(storage.records) != 1 {
		t.Fatalf("expected one stored record, got %d", len(storage.records))
	}
	rec := storage.records[0]
	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(rec.UserIDHashed) {
		t.Fatalf("bad hash %q", rec.UserIDHashed)
	}
	if rec.EncodedSignalsCategory != "uncategorized" || rec.UserLenBucket != "0-100_chars" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if len(rec.SignalCodes()) != 0 {
		t.Fatalf("expected no signals")
	}
}

func TestProcessTurn_HighRiskOpensConsentDialog(t *testing.T) {
	storage := &fakeStorage{}
	o := newTestOrchestrator(t, storage)
	ctx := context.Background()

	d, err := o.ProcessTurn(ctx, TurnInput{
		SessionID: "s2",
		UserID:    "u",
		Text:      "I'm going to kill myself tonight",
	})
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if d.Type != types.DirectiveConsentPrompt {
		t.Fatalf("expected consent_prompt, got %s", d.Type)
	}
	for _, opt := range []string{"A)", "B)", "C)"} {
		if !strings.Contains(d.ConsentPrompt, opt) {
			t.Fatalf("prompt missing %s", opt)
		}
	}
	if len(storage.records) != 0 {
		t.Fatalf("at-risk turn content must not be encoded or stored")
	}
	if len(storage.transcripts) != 1 || storage.transcripts[0].Action != types.ActionPrompted {
		t.Fatalf("expected one prompted transcript, got %+v", storage.transcripts)
	}
	if storage.transcripts[0].RiskLevel != types.RiskHigh {
		t.Fatalf("expected high risk transcript")
	}

	state, _ := o.cache.Get(ctx, "s2")
	if state == nil || !state.PendingConsent || state.PendingRisk != types.RiskHigh {
		t.Fatalf("session state not pending consent: %+v", state)
	}
}

func TestProcessTurn_ConsentReplyStay(t *testing.T) {
	storage := &fakeStorage{}
	o := newTestOrchestrator(t, storage)
	ctx := context.Background()

	if _, err := o.ProcessTurn(ctx, TurnInput{SessionID: "s3", UserID: "u", Text: "i want to die"}); err != nil {
		t.Fatalf("risk turn: %v", err)
	}
	d, err := o.ProcessTurn(ctx, TurnInput{SessionID: "s3", UserID: "u", Text: "A"})
	if err != nil {
		t.Fatalf("reply turn: %v", err)
	}
	if d.Type != types.DirectiveConsentReply || d.Reply.Action != types.ActionStay {
		t.Fatalf("expected consent_reply/stay, got %+v", d)
	}

	last := storage.transcripts[len(storage.transcripts)-1]
	if last.Action != types.ActionStay || last.RiskLevel != types.RiskHigh {
		t.Fatalf("expected stay transcript at high risk, got %+v", last)
	}

	state, _ := o.cache.Get(ctx, "s3")
	if state.PendingConsent {
		t.Fatalf("pending consent should be cleared")
	}
}

func TestProcessTurn_NoAutoEscalation(t *testing.T) {
	storage := &fakeStorage{}
	o := newTestOrchestrator(t, storage)
	ctx := context.Background()

	d, _ := o.ProcessTurn(ctx, TurnInput{SessionID: "s4", UserID: "u", Text: "i cannot go on, i want to end my life"})
	if d.Type != types.DirectiveConsentPrompt {
		t.Fatalf("expected consent prompt")
	}
	// Before any reply: no resource details, no escalation text anywhere.
	if strings.Contains(d.ConsentPrompt, "988") {
		t.Fatalf("resources leaked before consent: %q", d.ConsentPrompt)
	}

	// Choosing escalation still requires one more explicit yes.
	d, _ = o.ProcessTurn(ctx, TurnInput{SessionID: "s4", UserID: "u", Text: "C"})
	if d.Reply.Action != types.ActionEscalate {
		t.Fatalf("expected escalate action")
	}
	state, _ := o.cache.Get(ctx, "s4")
	if !state.EscalationPending || state.EscalationConsented {
		t.Fatalf("escalation must stay pending until explicit consent: %+v", state)
	}

	d, _ = o.ProcessTurn(ctx, TurnInput{SessionID: "s4", UserID: "u", Text: "yes"})
	if d.Reply.Action != types.ActionEscalate {
		t.Fatalf("expected escalate confirmation")
	}
	state, _ = o.cache.Get(ctx, "s4")
	if state.EscalationPending || !state.EscalationConsented {
		t.Fatalf("escalation consent not recorded: %+v", state)
	}
}

func TestProcessTurn_EscalationDeclined(t *testing.T) {
	storage := &fakeStorage{}
	o := newTestOrchestrator(t, storage)
	ctx := context.Background()

	o.ProcessTurn(ctx, TurnInput{SessionID: "s5", UserID: "u", Text: "thinking about suicide"})
	o.ProcessTurn(ctx, TurnInput{SessionID: "s5", UserID: "u", Text: "C"})
	d, _ := o.ProcessTurn(ctx, TurnInput{SessionID: "s5", UserID: "u", Text: "no"})
	if d.Reply.Action != types.ActionDecline {
		t.Fatalf("expected decline, got %s", d.Reply.Action)
	}
	state, _ := o.cache.Get(ctx, "s5")
	if state.EscalationPending || state.EscalationConsented {
		t.Fatalf("declined escalation must clear cleanly: %+v", state)
	}
}

func TestProcessTurn_UnknownReplyReprompts(t *testing.T) {
	storage := &fakeStorage{}
	o := newTestOrchestrator(t, storage)
	ctx := context.Background()

	o.ProcessTurn(ctx, TurnInput{SessionID: "s6", UserID: "u", Text: "i want to hurt myself"})
	d, _ := o.ProcessTurn(ctx, TurnInput{SessionID: "s6", UserID: "u", Text: "maybe, i do not know"})
	if d.Type != types.DirectiveConsentReply || d.Reply.Action != types.ActionUnknown {
		t.Fatalf("expected unknown reply, got %+v", d)
	}
	state, _ := o.cache.Get(ctx, "s6")
	if !state.PendingConsent {
		t.Fatalf("unknown reply must keep the dialog open")
	}

	// A later decisive reply still works; no lockout.
	d, _ = o.ProcessTurn(ctx, TurnInput{SessionID: "s6", UserID: "u", Text: "N"})
	if d.Reply.Action != types.ActionDecline {
		t.Fatalf("expected decline after re-prompt, got %s", d.Reply.Action)
	}
}

func TestProcessTurn_TranscriptsOrdered(t *testing.T) {
	storage := &fakeStorage{}
	o := newTestOrchestrator(t, storage)
	ctx := context.Background()

	o.ProcessTurn(ctx, TurnInput{SessionID: "s7", UserID: "u", Text: "i keep having flashbacks and it is unbearable"})
	o.ProcessTurn(ctx, TurnInput{SessionID: "s7", UserID: "u", Text: "Y"})

	want := []types.ConsentAction{types.ActionPrompted, types.ActionResources}
	if len(storage.transcripts) != len(want) {
		t.Fatalf("expected %d transcripts, got %d", len(want), len(storage.transcripts))
	}
	for i, action := range want {
		if storage.transcripts[i].Action != action {
			t.Fatalf("transcript %d: expected %s got %s", i, action, storage.transcripts[i].Action)
		}
		if storage.transcripts[i].RiskLevel != types.RiskMedium {
			t.Fatalf("transcript %d: expected medium risk", i)
		}
	}
}

func TestProcessTurn_TurnIndexMonotonic(t *testing.T) {
	storage := &fakeStorage{}
	o := newTestOrchestrator(t, storage)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		o.ProcessTurn(ctx, TurnInput{SessionID: "s8", UserID: "u", Text: fmt.Sprintf("checking in %d", i)})
	}
	for i, rec := range storage.records {
		if rec.TurnIndex != i+1 {
			t.Fatalf("record %d has turn_index %d", i, rec.TurnIndex)
		}
	}
}

func TestProcessTurn_StorageFailureAnnotates(t *testing.T) {
	storage := &fakeStorage{failRecords: true}
	o := newTestOrchestrator(t, storage)

	d, err := o.ProcessTurn(context.Background(), TurnInput{SessionID: "s9", UserID: "u", Text: "hello"})
	if err != nil {
		t.Fatalf("ProcessTurn should not error on storage failure: %v", err)
	}
	if d.Type != types.DirectiveAnalysis || d.Analysis.Persisted {
		t.Fatalf("expected analysis with persisted=false, got %+v", d)
	}
	if d.Analysis.Error == "" {
		t.Fatalf("expected error annotation")
	}
}

func TestProcessTurn_EmptySessionIDRejected(t *testing.T) {
	o := newTestOrchestrator(t, &fakeStorage{})
	if _, err := o.ProcessTurn(context.Background(), TurnInput{SessionID: "  ", UserID: "u", Text: "hi"}); err == nil {
		t.Fatalf("expected error for empty session id")
	}
}

func TestProcessTurn_SignalsFlowIntoRecord(t *testing.T) {
	storage := &fakeStorage{}
	o := newTestOrchestrator(t, storage, func(cfg *Config) {
		cfg.Signals = staticSignals{signals: []types.Signal{{Keyword: "grief"}, {Keyword: "hope"}}}
	})

	o.ProcessTurn(context.Background(), TurnInput{SessionID: "s10", UserID: "u", Text: "we scattered the ashes yesterday"})
	if len(storage.records) != 1 {
		t.Fatalf("expected one record")
	}
	rec := storage.records[0]
	if rec.SignalCount != 2 || rec.EncodedSignalsCategory != "grief,positive" {
		t.Fatalf("signals not encoded: %+v", rec)
	}
}

func TestProcessTurn_ClarificationCapturesPriorContext(t *testing.T) {
	storage := &fakeStorage{}
	path := filepath.Join(t.TempDir(), "clarifications.jsonl")
	store, err := clarify.NewStore(clarify.Config{Path: path, DBTimeout: 50 * time.Millisecond}, logger.NewNop())
	if err != nil {
		t.Fatalf("clarify.NewStore: %v", err)
	}
	o := newTestOrchestrator(t, storage, func(cfg *Config) { cfg.Clarifications = store })
	ctx := context.Background()

	o.ProcessTurn(ctx, TurnInput{
		SessionID:  "s11",
		UserID:     "u",
		Text:       "tell me about grounding",
		SystemText: "grounding means returning attention to the senses",
	})
	o.ProcessTurn(ctx, TurnInput{
		SessionID: "s11",
		UserID:    "u",
		Text:      "No, I meant electrical grounding",
	})

	got := store.Lookup(ctx, "No, I meant electrical grounding")
	if got == nil {
		t.Fatalf("clarification not recorded")
	}
	if got.OriginalInput != "tell me about grounding" {
		t.Fatalf("prior user text not attached: %+v", got)
	}
	if got.SystemResponse != "grounding means returning attention to the senses" {
		t.Fatalf("prior system text not attached: %+v", got)
	}
	if got.ConversationID != "s11" {
		t.Fatalf("conversation id missing")
	}
	if len(got.UserID) != 64 {
		t.Fatalf("clarification user id should be the hashed form, got %q", got.UserID)
	}
}

// refusingEncoder hashes normally but refuses every record.
type refusingEncoder struct{ inner *encoder.Encoder }

func (e refusingEncoder) Encode(*types.RawTurn) (*types.EncodedRecord, error) {
	return nil, fmt.Errorf("record refused")
}

func (e refusingEncoder) HashUserID(id string) string { return e.inner.HashUserID(id) }

func TestProcessTurn_EncodeRefusalKeepsClarification(t *testing.T) {
	storage := &fakeStorage{}
	path := filepath.Join(t.TempDir(), "clarifications.jsonl")
	store, err := clarify.NewStore(clarify.Config{Path: path, DBTimeout: 50 * time.Millisecond}, logger.NewNop())
	if err != nil {
		t.Fatalf("clarify.NewStore: %v", err)
	}
	o := newTestOrchestrator(t, storage, func(cfg *Config) {
		cfg.Encoder = refusingEncoder{inner: cfg.Encoder.(*encoder.Encoder)}
		cfg.Clarifications = store
	})
	ctx := context.Background()

	o.ProcessTurn(ctx, TurnInput{
		SessionID:  "s13",
		UserID:     "u",
		Text:       "tell me about anchoring",
		SystemText: "anchoring pairs a cue with a calmer state",
	})
	d, err := o.ProcessTurn(ctx, TurnInput{SessionID: "s13", UserID: "u", Text: "No, I meant boat anchoring"})
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if d.Type != types.DirectiveAnalysis || d.Analysis.Error == "" || d.Analysis.Persisted {
		t.Fatalf("expected unpersisted analysis with error, got %+v", d)
	}
	if len(storage.records) != 0 {
		t.Fatalf("refused records must not be stored")
	}

	got := store.Lookup(ctx, "No, I meant boat anchoring")
	if got == nil {
		t.Fatalf("clarification lost when encoding refused the record")
	}
	if got.OriginalInput != "tell me about anchoring" {
		t.Fatalf("prior user text not attached: %+v", got)
	}
}

func TestProcessTurn_IdleSessionBookkeepingEvicted(t *testing.T) {
	storage := &fakeStorage{}
	o := newTestOrchestrator(t, storage)
	ctx := context.Background()

	base := time.Now()
	o.clock = func() time.Time { return base }
	o.ProcessTurn(ctx, TurnInput{SessionID: "s-idle", UserID: "u", Text: "hello"})
	o.ProcessTurn(ctx, TurnInput{SessionID: "s-live", UserID: "u", Text: "hello"})

	o.mu.Lock()
	n := len(o.sessions)
	o.mu.Unlock()
	if n != 2 {
		t.Fatalf("expected 2 tracked sessions, got %d", n)
	}

	o.clock = func() time.Time { return base.Add(25 * time.Hour) }
	o.ProcessTurn(ctx, TurnInput{SessionID: "s-live", UserID: "u", Text: "still here"})

	o.mu.Lock()
	_, idleKept := o.sessions["s-idle"]
	_, liveKept := o.sessions["s-live"]
	o.mu.Unlock()
	if idleKept {
		t.Fatalf("idle session bookkeeping should be swept")
	}
	if !liveKept {
		t.Fatalf("active session must survive the sweep")
	}
}

func TestProcessTurn_VerifierSeesCompliantRecords(t *testing.T) {
	storage := &fakeStorage{}
	o := newTestOrchestrator(t, storage)
	ctx := context.Background()

	for _, text := range []string{"hello", "the garden was nice today", "thanks for listening"} {
		o.ProcessTurn(ctx, TurnInput{SessionID: "s12", UserID: "alice@example.com", Text: text})
	}

	v := compliance.NewVerifier(storage, logger.NewNop())
	report := v.Verify(ctx, compliance.Scope{SessionID: "s12"})
	if !report.Compliant || report.RecordsChecked != 3 {
		t.Fatalf("expected 3 compliant records, got %+v", report)
	}
}
