package repos

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/logger"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection keeps the in-memory database alive and visible.
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.AutoMigrate(&types.EncodedRecord{}, &types.Clarification{}, &types.ConsentTranscript{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func sampleRecord(sessionID string, turnIndex int) *types.EncodedRecord {
	return &types.EncodedRecord{
		UserIDHashed:           "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		SessionID:              sessionID,
		TurnIndex:              turnIndex,
		TimestampISO:           "2026-03-10T12:30:00Z",
		TimestampCoarse:        "2026-W11",
		EncodedSignals:         types.JSONStrings([]string{"SIG_GRIEF_001"}),
		EncodedSignalsCategory: "grief",
		EncodedGates:           types.JSONStrings(nil),
		GlyphIDs:               types.JSONInts([]int{3}),
		GlyphCount:             1,
		UserLenBucket:          "0-100_chars",
		SystemLenBucket:        "100-200_chars",
		SignalCount:            1,
	}
}

func TestEncodedRecordRepo_CreateAndGetBySession(t *testing.T) {
	repo := NewEncodedRecordRepo(openTestDB(t), logger.NewNop())
	ctx := context.Background()

	for i := 3; i >= 1; i-- {
		if _, err := repo.Create(ctx, nil, sampleRecord("s1", i)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := repo.Create(ctx, nil, sampleRecord("other", 1)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetBySessionID(ctx, nil, "s1")
	if err != nil {
		t.Fatalf("GetBySessionID: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, rec := range got {
		if rec.TurnIndex != i+1 {
			t.Fatalf("records not ordered by turn_index: %v", rec.TurnIndex)
		}
	}
	if got[0].SignalCodes()[0] != "SIG_GRIEF_001" {
		t.Fatalf("jsonb column did not round-trip: %v", got[0].SignalCodes())
	}
	if got[0].Glyphs()[0] != 3 {
		t.Fatalf("glyph ids did not round-trip: %v", got[0].Glyphs())
	}

	count, err := repo.CountBySessionID(ctx, nil, "s1")
	if err != nil || count != 3 {
		t.Fatalf("CountBySessionID = %d, %v", count, err)
	}

	all, err := repo.GetAll(ctx, nil)
	if err != nil || len(all) != 4 {
		t.Fatalf("GetAll = %d, %v", len(all), err)
	}
}

func TestClarificationRepo_LatestByTrigger(t *testing.T) {
	repo := NewClarificationRepo(openTestDB(t), logger.NewNop())
	ctx := context.Background()

	first := &types.Clarification{Trigger: "no i meant x", CorrectedIntent: "first", ConversationID: "c1", UserID: "u1"}
	second := &types.Clarification{Trigger: "no i meant x", CorrectedIntent: "second", ConversationID: "c1", UserID: "u1"}
	if _, err := repo.Create(ctx, nil, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(ctx, nil, second); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetLatestByTrigger(ctx, nil, "no i meant x")
	if err != nil {
		t.Fatalf("GetLatestByTrigger: %v", err)
	}
	if got == nil {
		t.Fatalf("expected a row")
	}

	missing, err := repo.GetLatestByTrigger(ctx, nil, "never seen")
	if err != nil || missing != nil {
		t.Fatalf("absence should be (nil, nil), got (%v, %v)", missing, err)
	}

	byKey, err := repo.GetByKey(ctx, nil, types.ClarificationKey{Trigger: "no i meant x", ConversationID: "c1", UserID: "u1"})
	if err != nil || len(byKey) != 2 {
		t.Fatalf("GetByKey = %d rows, %v", len(byKey), err)
	}
}

func TestConsentTranscriptRepo_SessionOrdering(t *testing.T) {
	repo := NewConsentTranscriptRepo(openTestDB(t), logger.NewNop())
	ctx := context.Background()

	actions := []types.ConsentAction{types.ActionPrompted, types.ActionUnknown, types.ActionStay}
	for _, action := range actions {
		transcript := &types.ConsentTranscript{
			SessionID: "s1",
			UserHash:  "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
			RiskLevel: types.RiskHigh,
			Action:    action,
		}
		if _, err := repo.Create(ctx, nil, transcript); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := repo.GetBySessionID(ctx, nil, "s1")
	if err != nil {
		t.Fatalf("GetBySessionID: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 transcripts, got %d", len(got))
	}
	for i, action := range actions {
		if got[i].Action != action {
			t.Fatalf("transcript %d out of order: %s", i, got[i].Action)
		}
	}
}
