package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/twitterlite/internal/cache"
	"github.com/d60-Lab/twitterlite/internal/model"
	"github.com/d60-Lab/twitterlite/internal/queue"
	"github.com/d60-Lab/twitterlite/internal/repository"
	"github.com/d60-Lab/twitterlite/pkg/cursor"
	"github.com/d60-Lab/twitterlite/pkg/logger"
)

var validate = validator.New()

// UserUpdate 可更新字段，nil 表示不改
type UserUpdate struct {
	Login     *string
	Email     *string
	FirstName *string
	LastName  *string
}

// UserService 用户与关系链：用户 CRUD、关注/取关、双向索引与关注变更扩散任务投递
type UserService interface {
	Create(ctx context.Context, login, email string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	GetByLoginEmail(ctx context.Context, login, email string) (*model.User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*model.User, error)
	Delete(ctx context.Context, id string) error
	// List 全量用户，创建时间倒序
	List(ctx context.Context, cursorToken string, limit int) ([]*model.User, string, error)

	Follow(ctx context.Context, followerID, followedID string) error
	Unfollow(ctx context.Context, followerID, followedID string) error
	IsFollowing(ctx context.Context, followedID, followerID string) (bool, error)
	ListFollowers(ctx context.Context, userID, cursorToken string, limit int) ([]*model.User, string, error)
	ListFollowed(ctx context.Context, userID, cursorToken string, limit int) ([]*model.User, string, error)
}

type userService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	fanRepo    repository.FanRepository
	users      *cache.UserCache
	jobs       *queue.Queue
}

func NewUserService(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	fanRepo repository.FanRepository,
	users *cache.UserCache,
	jobs *queue.Queue,
) UserService {
	return &userService{userRepo: userRepo, followRepo: followRepo, fanRepo: fanRepo, users: users, jobs: jobs}
}

func checkLogin(login string) error {
	// 按字符数（而不是字节数）计
	if n := utf8.RuneCountInString(login); n < 3 || n > 100 {
		return ErrLoginLength
	}
	return nil
}

func checkEmail(email string) error {
	if validate.Var(email, "required,email") != nil {
		return ErrBadEmail
	}
	return nil
}

func (s *userService) Create(ctx context.Context, login, email string) (*model.User, error) {
	if err := checkLogin(login); err != nil {
		return nil, err
	}
	if err := checkEmail(email); err != nil {
		return nil, err
	}
	// 唯一性预检查与插入不在同一事务（已知竞态窗口）
	if used, err := s.userRepo.LoginUsed(ctx, login); err != nil {
		return nil, err
	} else if used {
		return nil, ErrLoginTaken
	}
	if used, err := s.userRepo.EmailUsed(ctx, email); err != nil {
		return nil, err
	} else if used {
		return nil, ErrEmailTaken
	}

	u := &model.User{ID: uuid.New().String(), Login: login, Email: email}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u, err
}

func (s *userService) GetByLoginEmail(ctx context.Context, login, email string) (*model.User, error) {
	u, err := s.userRepo.GetByLoginEmail(ctx, login, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s, %s: %w", login, email, ErrNotFound)
	}
	return u, err
}

func (s *userService) Update(ctx context.Context, id string, upd UserUpdate) (*model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Login != nil && *upd.Login != u.Login {
		if err := checkLogin(*upd.Login); err != nil {
			return nil, err
		}
		if used, err := s.userRepo.LoginUsed(ctx, *upd.Login); err != nil {
			return nil, err
		} else if used {
			return nil, ErrLoginTaken
		}
		u.Login = *upd.Login
	}
	if upd.Email != nil && *upd.Email != u.Email {
		if err := checkEmail(*upd.Email); err != nil {
			return nil, err
		}
		if used, err := s.userRepo.EmailUsed(ctx, *upd.Email); err != nil {
			return nil, err
		} else if used {
			return nil, ErrEmailTaken
		}
		u.Email = *upd.Email
	}
	if upd.FirstName != nil {
		u.FirstName = upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = upd.LastName
	}
	if err := s.userRepo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.users.Invalidate(ctx, id)
	return u, nil
}

func (s *userService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.users.Invalidate(ctx, id)
	return nil
}

func (s *userService) List(ctx context.Context, cursorToken string, limit int) ([]*model.User, string, error) {
	limit = cursor.ClampLimit(limit)
	users, err := s.userRepo.List(ctx, cursor.Decode(cursorToken), limit)
	if err != nil {
		return nil, "", err
	}
	next := ""
	if len(users) > 0 {
		last := users[len(users)-1]
		next = cursor.Encode(last.CreatedAt, last.ID)
	}
	return users, next, nil
}

// Follow 写双向索引（两个独立事务）并投递关注变更扩散任务。
// 两次索引写入之间失败会留下单边关注，这里只记录告警，靠对账修复。
func (s *userService) Follow(ctx context.Context, followerID, followedID string) error {
	return s.changeFollow(ctx, followerID, followedID, true)
}

func (s *userService) Unfollow(ctx context.Context, followerID, followedID string) error {
	return s.changeFollow(ctx, followerID, followedID, false)
}

func (s *userService) changeFollow(ctx context.Context, followerID, followedID string, add bool) error {
	if followerID == followedID {
		return ErrFollowSelf
	}
	if _, err := s.Get(ctx, followerID); err != nil {
		return err
	}
	if _, err := s.Get(ctx, followedID); err != nil {
		return err
	}

	var err error
	if add {
		err = s.followRepo.Create(ctx, followerID, followedID)
	} else {
		err = s.followRepo.Delete(ctx, followerID, followedID)
	}
	if err != nil {
		return err
	}

	if add {
		err = s.fanRepo.Create(ctx, followedID, followerID)
	} else {
		err = s.fanRepo.Delete(ctx, followedID, followerID)
	}
	if err != nil {
		// 单边索引已落地，另一边失败：告警留给对账
		logger.Error("follow index writes diverged",
			zap.String("follower", followerID), zap.String("followed", followedID),
			zap.Bool("add", add), zap.Error(err))
		return err
	}

	action := propagateActionAdd
	if !add {
		action = propagateActionRemove
	}
	return s.jobs.Enqueue(ctx, model.JobKindFollowChange, FollowChangeJob{
		Action:     action,
		SenderID:   followedID,
		ReceiverID: followerID,
		Limit:      defaultJobPageSize,
	})
}

func (s *userService) IsFollowing(ctx context.Context, followedID, followerID string) (bool, error) {
	return s.followRepo.Exists(ctx, followerID, followedID)
}

func (s *userService) ListFollowers(ctx context.Context, userID, cursorToken string, limit int) ([]*model.User, string, error) {
	limit = cursor.ClampLimit(limit)
	fans, err := s.fanRepo.ListFans(ctx, userID, cursor.Decode(cursorToken), limit)
	if err != nil {
		return nil, "", err
	}
	ids := make([]string, len(fans))
	for i, f := range fans {
		ids[i] = f.FanID
	}
	users, err := s.users.GetByIDs(ctx, ids, s.userRepo.GetByIDs)
	if err != nil {
		return nil, "", err
	}
	next := ""
	if len(fans) > 0 {
		last := fans[len(fans)-1]
		next = cursor.Encode(last.CreatedAt, last.ID)
	}
	return users, next, nil
}

func (s *userService) ListFollowed(ctx context.Context, userID, cursorToken string, limit int) ([]*model.User, string, error) {
	limit = cursor.ClampLimit(limit)
	follows, err := s.followRepo.ListFollowed(ctx, userID, cursor.Decode(cursorToken), limit)
	if err != nil {
		return nil, "", err
	}
	ids := make([]string, len(follows))
	for i, f := range follows {
		ids[i] = f.FollowedID
	}
	users, err := s.users.GetByIDs(ctx, ids, s.userRepo.GetByIDs)
	if err != nil {
		return nil, "", err
	}
	next := ""
	if len(follows) > 0 {
		last := follows[len(follows)-1]
		next = cursor.Encode(last.CreatedAt, last.ID)
	}
	return users, next, nil
}
