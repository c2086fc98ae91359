package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/logger"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/types"
)

type ClarificationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, clarification *types.Clarification) (*types.Clarification, error)
	GetLatestByTrigger(ctx context.Context, tx *gorm.DB, trigger string) (*types.Clarification, error)
	GetByKey(ctx context.Context, tx *gorm.DB, key types.ClarificationKey) ([]*types.Clarification, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Clarification, error)
}

type clarificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClarificationRepo(db *gorm.DB, baseLog *logger.Logger) ClarificationRepo {
	repoLog := baseLog.With("repo", "ClarificationRepo")
	return &clarificationRepo{db: db, log: repoLog}
}

func (r *clarificationRepo) Create(ctx context.Context, tx *gorm.DB, clarification *types.Clarification) (*types.Clarification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if clarification.ID == uuid.Nil {
		clarification.ID = uuid.New()
	}

	if err := transaction.WithContext(ctx).Create(clarification).Error; err != nil {
		return nil, err
	}
	return clarification, nil
}

func (r *clarificationRepo) GetLatestByTrigger(ctx context.Context, tx *gorm.DB, trigger string) (*types.Clarification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if trigger == "" {
		return nil, nil
	}

	// "trigger" is an SQL keyword; map conditions get quoted per dialect.
	var result types.Clarification
	err := transaction.WithContext(ctx).
		Where(map[string]interface{}{"trigger": trigger}).
		Order("created_at DESC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *clarificationRepo) GetByKey(ctx context.Context, tx *gorm.DB, key types.ClarificationKey) ([]*types.Clarification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Clarification
	if err := transaction.WithContext(ctx).
		Where(map[string]interface{}{
			"trigger":         key.Trigger,
			"conversation_id": key.ConversationID,
			"user_id":         key.UserID,
		}).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *clarificationRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Clarification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Clarification
	if err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
