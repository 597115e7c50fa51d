package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/twitterlite/internal/model"
	"github.com/d60-Lab/twitterlite/pkg/cursor"
)

// ErrRecordNotFound 仓储层统一的未找到错误
var ErrRecordNotFound = gorm.ErrRecordNotFound

// UserRepository 用户聚合的读写
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByLoginEmail(ctx context.Context, login, email string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.User, error)
	// LoginUsed / EmailUsed 唯一性预检查，与插入不在同一事务（存在竞态窗口）
	LoginUsed(ctx context.Context, login string) (bool, error)
	EmailUsed(ctx context.Context, email string) (bool, error)
	// List 全量用户，按创建时间倒序游标翻页
	List(ctx context.Context, cur cursor.Cursor, limit int) ([]*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
}

type userRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByLoginEmail(ctx context.Context, login, email string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("login = ? AND email = ?", login, email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}
	var users []*model.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) LoginUsed(ctx context.Context, login string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("login = ?", login).Limit(1).Count(&cnt).Error
	return cnt > 0, err
}

func (r *userRepository) EmailUsed(ctx context.Context, email string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Limit(1).Count(&cnt).Error
	return cnt > 0, err
}

func (r *userRepository) List(ctx context.Context, cur cursor.Cursor, limit int) ([]*model.User, error) {
	var users []*model.User
	err := beforeDesc(r.db.WithContext(ctx), cur).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", user.ID).
		Select("Login", "Email", "FirstName", "LastName").
		Updates(user)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("user not updated")
	}
	return nil
}

// Delete 删除用户，级联两张关系索引表中的边和该用户的时间线索引
func (r *userRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Delete(&model.User{}).Error; err != nil {
			return err
		}
		if err := tx.Where("follower_id = ? OR followed_id = ?", id, id).Delete(&model.Follow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR fan_id = ?", id, id).Delete(&model.Fan{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", id).Delete(&model.Receiver{}).Error
	})
}
