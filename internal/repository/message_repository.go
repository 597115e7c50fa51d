package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/twitterlite/internal/model"
	"github.com/d60-Lab/twitterlite/pkg/cursor"
)

// MessageRepository 消息聚合的读写
type MessageRepository interface {
	GetByID(ctx context.Context, id string) (*model.Message, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.Message, error)
	// UpdateText 只允许改文本，sender 与创建时间不可变
	UpdateText(ctx context.Context, id, text string) error
	// Delete 删除消息并级联其接收者索引
	Delete(ctx context.Context, id string) error
	// ListAll 全量消息，创建时间倒序游标翻页
	ListAll(ctx context.Context, cur cursor.Cursor, limit int) ([]*model.Message, error)
	// ListBySender 某作者的消息，同序；游标翻页同时服务交互读取与关注变更扩散任务
	ListBySender(ctx context.Context, senderID string, cur cursor.Cursor, limit int) ([]*model.Message, error)
	IsSender(ctx context.Context, messageID, userID string) (bool, error)
}

type messageRepository struct{ db *gorm.DB }

func NewMessageRepository(db *gorm.DB) MessageRepository { return &messageRepository{db: db} }

func (r *messageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Message, error) {
	if len(ids) == 0 {
		return []*model.Message{}, nil
	}
	var msgs []*model.Message
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) UpdateText(ctx context.Context, id, text string) error {
	res := r.db.WithContext(ctx).Model(&model.Message{}).Where("id = ?", id).Update("text", text)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *messageRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("message_id = ?", id).Delete(&model.Receiver{}).Error
	})
}

func (r *messageRepository) ListAll(ctx context.Context, cur cursor.Cursor, limit int) ([]*model.Message, error) {
	var msgs []*model.Message
	err := beforeDesc(r.db.WithContext(ctx), cur).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

func (r *messageRepository) ListBySender(ctx context.Context, senderID string, cur cursor.Cursor, limit int) ([]*model.Message, error) {
	var msgs []*model.Message
	err := beforeDesc(r.db.WithContext(ctx).Where("sender_id = ?", senderID), cur).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

func (r *messageRepository) IsSender(ctx context.Context, messageID, userID string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND sender_id = ?", messageID, userID).
		Count(&cnt).Error
	return cnt > 0, err
}
