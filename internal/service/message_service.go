package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/twitterlite/internal/cache"
	"github.com/d60-Lab/twitterlite/internal/model"
	"github.com/d60-Lab/twitterlite/internal/queue"
	"github.com/d60-Lab/twitterlite/internal/repository"
	"github.com/d60-Lab/twitterlite/pkg/cursor"
)

// MessageService 消息与时间线：创建时在一个事务里落地消息、种子接收记录与扩散任务
type MessageService interface {
	Create(ctx context.Context, senderID, text string) (*model.Message, error)
	Get(ctx context.Context, id string) (*model.Message, error)
	// Update 只允许改文本
	Update(ctx context.Context, id, text string) (*model.Message, error)
	Delete(ctx context.Context, id string) error
	IsSender(ctx context.Context, messageID, userID string) (bool, error)

	// ListAll 全量消息，创建时间倒序
	ListAll(ctx context.Context, cursorToken string, limit int) ([]*model.Message, string, error)
	// ListUserMessages 某作者的消息；作者自己的写后读在这里是可见的
	ListUserMessages(ctx context.Context, userID, cursorToken string, limit int) ([]*model.Message, string, error)
	// ListUserTimeline 某用户的时间线。扩散是异步的，粉丝侧不保证写后读。
	ListUserTimeline(ctx context.Context, userID, cursorToken string, limit int) ([]*model.Message, string, error)
}

type messageService struct {
	db       *gorm.DB
	msgRepo  repository.MessageRepository
	recvRepo repository.ReceiverRepository
	userRepo repository.UserRepository
	users    *cache.UserCache
	jobs     *queue.Queue
}

func NewMessageService(
	db *gorm.DB,
	msgRepo repository.MessageRepository,
	recvRepo repository.ReceiverRepository,
	userRepo repository.UserRepository,
	users *cache.UserCache,
	jobs *queue.Queue,
) MessageService {
	return &messageService{db: db, msgRepo: msgRepo, recvRepo: recvRepo, userRepo: userRepo, users: users, jobs: jobs}
}

func checkText(text string) error {
	// 按字符数（而不是字节数）计
	if n := utf8.RuneCountInString(text); n < 1 || n > 140 {
		return ErrTextLength
	}
	return nil
}

// Create 在一个事务里写消息、以 sender 为种子的接收记录和新消息扩散任务（outbox）。
// 粉丝扩散随后由任务链异步完成。
func (s *messageService) Create(ctx context.Context, senderID, text string) (*model.Message, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, senderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("sender %s: %w", senderID, ErrNotFound)
		}
		return nil, err
	}

	now := time.Now()
	msg := &model.Message{ID: uuid.New().String(), SenderID: senderID, Text: text, CreatedAt: now, UpdatedAt: now}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		seed := &model.Receiver{ID: uuid.New().String(), MessageID: msg.ID, UserID: senderID, CreatedAt: now}
		if err := tx.Create(seed).Error; err != nil {
			return err
		}
		return s.jobs.EnqueueTx(tx, model.JobKindNewMessage, NewMessageJob{
			MessageID:  msg.ID,
			FollowedID: senderID,
			Limit:      defaultJobPageSize,
		})
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *messageService) Get(ctx context.Context, id string) (*model.Message, error) {
	m, err := s.msgRepo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	return m, err
}

func (s *messageService) Update(ctx context.Context, id, text string) (*model.Message, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	if err := s.msgRepo.UpdateText(ctx, id, text); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("message %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *messageService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.msgRepo.Delete(ctx, id)
}

func (s *messageService) IsSender(ctx context.Context, messageID, userID string) (bool, error) {
	return s.msgRepo.IsSender(ctx, messageID, userID)
}

func (s *messageService) ListAll(ctx context.Context, cursorToken string, limit int) ([]*model.Message, string, error) {
	limit = cursor.ClampLimit(limit)
	msgs, err := s.msgRepo.ListAll(ctx, cursor.Decode(cursorToken), limit)
	if err != nil {
		return nil, "", err
	}
	return msgs, nextMessageCursor(msgs), nil
}

func (s *messageService) ListUserMessages(ctx context.Context, userID, cursorToken string, limit int) ([]*model.Message, string, error) {
	limit = cursor.ClampLimit(limit)
	msgs, err := s.msgRepo.ListBySender(ctx, userID, cursor.Decode(cursorToken), limit)
	if err != nil {
		return nil, "", err
	}
	return msgs, nextMessageCursor(msgs), nil
}

// ListUserTimeline 扫描接收者索引，再按索引顺序批量取回消息本体
func (s *messageService) ListUserTimeline(ctx context.Context, userID, cursorToken string, limit int) ([]*model.Message, string, error) {
	limit = cursor.ClampLimit(limit)
	entries, err := s.recvRepo.ListByUser(ctx, userID, cursor.Decode(cursorToken), limit)
	if err != nil {
		return nil, "", err
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.MessageID
	}
	msgs, err := s.msgRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, "", err
	}
	byID := make(map[string]*model.Message, len(msgs))
	for _, m := range msgs {
		byID[m.ID] = m
	}
	ordered := make([]*model.Message, 0, len(ids))
	for _, id := range ids {
		// 消息可能在索引清理前被删除，跳过空洞
		if m, ok := byID[id]; ok {
			ordered = append(ordered, m)
		}
	}
	next := ""
	if len(entries) > 0 {
		last := entries[len(entries)-1]
		next = cursor.Encode(last.CreatedAt, last.ID)
	}
	return ordered, next, nil
}

func nextMessageCursor(msgs []*model.Message) string {
	if len(msgs) == 0 {
		return ""
	}
	last := msgs[len(msgs)-1]
	return cursor.Encode(last.CreatedAt, last.ID)
}
