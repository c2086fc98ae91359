package orchestrator

import (
	"context"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/compliance"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/repos"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/types"
)

// Storage is the durable sink for encoded records and consent transcripts.
type Storage interface {
	WriteRecord(ctx context.Context, record *types.EncodedRecord) error
	WriteTranscript(ctx context.Context, transcript *types.ConsentTranscript) error
}

// RepoStorage adapts the gorm repos to the Storage interface and exposes
// stored records to the compliance verifier.
type RepoStorage struct {
	records     repos.EncodedRecordRepo
	transcripts repos.ConsentTranscriptRepo
}

func NewRepoStorage(records repos.EncodedRecordRepo, transcripts repos.ConsentTranscriptRepo) *RepoStorage {
	return &RepoStorage{records: records, transcripts: transcripts}
}

func (s *RepoStorage) WriteRecord(ctx context.Context, record *types.EncodedRecord) error {
	_, err := s.records.Create(ctx, nil, record)
	return err
}

func (s *RepoStorage) WriteTranscript(ctx context.Context, transcript *types.ConsentTranscript) error {
	_, err := s.transcripts.Create(ctx, nil, transcript)
	return err
}

// Records implements compliance.RecordSource over the persisted rows.
func (s *RepoStorage) Records(ctx context.Context, scope compliance.Scope) ([]map[string]any, error) {
	var (
		rows []*types.EncodedRecord
		err  error
	)
	if scope.SessionID != "" {
		rows, err = s.records.GetBySessionID(ctx, nil, scope.SessionID)
	} else {
		rows, err = s.records.GetAll(ctx, nil)
	}
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Fields())
	}
	return out, nil
}
