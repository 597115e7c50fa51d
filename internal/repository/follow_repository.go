package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/twitterlite/internal/model"
	"github.com/d60-Lab/twitterlite/pkg/cursor"
)

// FollowRepository 关注索引（follows 表，follower 视角的 FollowedIndex）
type FollowRepository interface {
	Create(ctx context.Context, followerID, followedID string) error
	Delete(ctx context.Context, followerID, followedID string) error
	Exists(ctx context.Context, followerID, followedID string) (bool, error)
	// ListFollowed 某用户关注的人，按 (created_at, id) 升序游标翻页
	ListFollowed(ctx context.Context, followerID string, cur cursor.Cursor, limit int) ([]*model.Follow, error)
	DeleteByUser(ctx context.Context, userID string) error
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository { return &followRepository{db: db} }

func (r *followRepository) Create(ctx context.Context, followerID, followedID string) error {
	f := &model.Follow{ID: uuid.New().String(), FollowerID: followerID, FollowedID: followedID}
	// 幂等：重复关注不报错
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error
}

func (r *followRepository) Delete(ctx context.Context, followerID, followedID string) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&model.Follow{}).Error
}

func (r *followRepository) Exists(ctx context.Context, followerID, followedID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *followRepository) ListFollowed(ctx context.Context, followerID string, cur cursor.Cursor, limit int) ([]*model.Follow, error) {
	var res []*model.Follow
	err := afterAsc(r.db.WithContext(ctx).Where("follower_id = ?", followerID), cur).
		Order("created_at, id").
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *followRepository) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? OR followed_id = ?", userID, userID).
		Delete(&model.Follow{}).Error
}

// afterAsc 升序扫描的游标条件：(created_at, id) 之后
func afterAsc(q *gorm.DB, cur cursor.Cursor) *gorm.DB {
	if cur.IsZero() {
		return q
	}
	return q.Where("created_at > ? OR (created_at = ? AND id > ?)", cur.Time(), cur.Time(), cur.ID)
}

// beforeDesc 降序扫描的游标条件：(created_at, id) 之前
func beforeDesc(q *gorm.DB, cur cursor.Cursor) *gorm.DB {
	if cur.IsZero() {
		return q
	}
	return q.Where("created_at < ? OR (created_at = ? AND id < ?)", cur.Time(), cur.Time(), cur.ID)
}
