package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/twitterlite/internal/model"
	"github.com/d60-Lab/twitterlite/pkg/cursor"
)

// FanRepository 粉丝索引（fans 表，被关注者视角的 FollowersIndex）
type FanRepository interface {
	Create(ctx context.Context, userID, fanID string) error
	Delete(ctx context.Context, userID, fanID string) error
	// ListFans 某用户的粉丝，升序游标翻页；交互读取和新消息扩散任务共用
	ListFans(ctx context.Context, userID string, cur cursor.Cursor, limit int) ([]*model.Fan, error)
	DeleteByUser(ctx context.Context, userID string) error
}

type fanRepository struct{ db *gorm.DB }

func NewFanRepository(db *gorm.DB) FanRepository { return &fanRepository{db: db} }

func (r *fanRepository) Create(ctx context.Context, userID, fanID string) error {
	f := &model.Fan{ID: uuid.New().String(), UserID: userID, FanID: fanID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error
}

func (r *fanRepository) Delete(ctx context.Context, userID, fanID string) error {
	return r.db.WithContext(ctx).Where("user_id = ? AND fan_id = ?", userID, fanID).Delete(&model.Fan{}).Error
}

func (r *fanRepository) ListFans(ctx context.Context, userID string, cur cursor.Cursor, limit int) ([]*model.Fan, error) {
	var res []*model.Fan
	err := afterAsc(r.db.WithContext(ctx).Where("user_id = ?", userID), cur).
		Order("created_at, id").
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *fanRepository) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? OR fan_id = ?", userID, userID).
		Delete(&model.Fan{}).Error
}
