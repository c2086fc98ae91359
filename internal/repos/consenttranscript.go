package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/logger"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/types"
)

type ConsentTranscriptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, transcript *types.ConsentTranscript) (*types.ConsentTranscript, error)
	GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) ([]*types.ConsentTranscript, error)
}

type consentTranscriptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConsentTranscriptRepo(db *gorm.DB, baseLog *logger.Logger) ConsentTranscriptRepo {
	repoLog := baseLog.With("repo", "ConsentTranscriptRepo")
	return &consentTranscriptRepo{db: db, log: repoLog}
}

func (r *consentTranscriptRepo) Create(ctx context.Context, tx *gorm.DB, transcript *types.ConsentTranscript) (*types.ConsentTranscript, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if transcript.ID == uuid.Nil {
		transcript.ID = uuid.New()
	}

	if err := transaction.WithContext(ctx).Create(transcript).Error; err != nil {
		return nil, err
	}
	return transcript, nil
}

func (r *consentTranscriptRepo) GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) ([]*types.ConsentTranscript, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ConsentTranscript
	if sessionID == "" {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
