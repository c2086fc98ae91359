package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/logger"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/types"
)

type EncodedRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.EncodedRecord) (*types.EncodedRecord, error)
	GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) ([]*types.EncodedRecord, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.EncodedRecord, error)
	CountBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) (int64, error)
}

type encodedRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEncodedRecordRepo(db *gorm.DB, baseLog *logger.Logger) EncodedRecordRepo {
	repoLog := baseLog.With("repo", "EncodedRecordRepo")
	return &encodedRecordRepo{db: db, log: repoLog}
}

func (r *encodedRecordRepo) Create(ctx context.Context, tx *gorm.DB, record *types.EncodedRecord) (*types.EncodedRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *encodedRecordRepo) GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) ([]*types.EncodedRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.EncodedRecord
	if sessionID == "" {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("turn_index ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *encodedRecordRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.EncodedRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.EncodedRecord
	if err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *encodedRecordRepo) CountBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.EncodedRecord{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
