package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/twitterlite/internal/model"
	"github.com/d60-Lab/twitterlite/pkg/cursor"
)

// ReceiverRepository 消息接收者索引（receivers 表，ReceiversIndex）
type ReceiverRepository interface {
	// AddBatch 给一条消息批量追加接收者；唯一键 + DoNothing 保证重投幂等
	AddBatch(ctx context.Context, messageID string, userIDs []string) error
	// AddForMessages 给一批消息追加同一个接收者（关注变更扩散用）
	AddForMessages(ctx context.Context, messageIDs []string, userID string) error
	// RemoveForMessages 从一批消息移除同一个接收者；删除不存在的记录是空操作
	RemoveForMessages(ctx context.Context, messageIDs []string, userID string) error
	// ListByUser 某用户的时间线索引，按接收记录创建时间倒序游标翻页
	ListByUser(ctx context.Context, userID string, cur cursor.Cursor, limit int) ([]*model.Receiver, error)
}

type receiverRepository struct{ db *gorm.DB }

func NewReceiverRepository(db *gorm.DB) ReceiverRepository { return &receiverRepository{db: db} }

func (r *receiverRepository) AddBatch(ctx context.Context, messageID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	now := time.Now()
	records := make([]model.Receiver, 0, len(userIDs))
	for _, uid := range userIDs {
		records = append(records, model.Receiver{ID: uuid.New().String(), MessageID: messageID, UserID: uid, CreatedAt: now})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error
}

func (r *receiverRepository) AddForMessages(ctx context.Context, messageIDs []string, userID string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	now := time.Now()
	records := make([]model.Receiver, 0, len(messageIDs))
	for _, mid := range messageIDs {
		records = append(records, model.Receiver{ID: uuid.New().String(), MessageID: mid, UserID: userID, CreatedAt: now})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error
}

func (r *receiverRepository) RemoveForMessages(ctx context.Context, messageIDs []string, userID string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("message_id IN ? AND user_id = ?", messageIDs, userID).
		Delete(&model.Receiver{}).Error
}

func (r *receiverRepository) ListByUser(ctx context.Context, userID string, cur cursor.Cursor, limit int) ([]*model.Receiver, error) {
	var res []*model.Receiver
	err := beforeDesc(r.db.WithContext(ctx).Where("user_id = ?", userID), cur).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}
