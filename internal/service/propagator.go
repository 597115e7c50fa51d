package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/d60-Lab/twitterlite/internal/model"
	"github.com/d60-Lab/twitterlite/internal/queue"
	"github.com/d60-Lab/twitterlite/internal/repository"
	"github.com/d60-Lab/twitterlite/pkg/cursor"
	"github.com/d60-Lab/twitterlite/pkg/logger"
)

// 扩散任务每次只处理一页，续传状态整个放在 payload 里：
// worker 重启、重投都不丢进度，空页即终止。
const defaultJobPageSize = 25

const (
	propagateActionAdd    = "add"
	propagateActionRemove = "remove"
)

// NewMessageJob 新消息扩散：把作者的粉丝逐页追加进该消息的接收者索引
type NewMessageJob struct {
	MessageID  string `json:"message_id"`
	FollowedID string `json:"followed_id"`
	Cursor     string `json:"cursor,omitempty"`
	Limit      int    `json:"limit"`
}

// FollowChangeJob 关注变更扩散：把 receiver 逐页加入/移出 sender 所有消息的接收者索引
type FollowChangeJob struct {
	Action     string `json:"action"` // add / remove
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Cursor     string `json:"cursor,omitempty"`
	Limit      int    `json:"limit"`
}

// Propagator 两类扩散任务的无状态处理器
type Propagator struct {
	fanRepo  repository.FanRepository
	msgRepo  repository.MessageRepository
	recvRepo repository.ReceiverRepository
	jobs     *queue.Queue
}

func NewPropagator(
	fanRepo repository.FanRepository,
	msgRepo repository.MessageRepository,
	recvRepo repository.ReceiverRepository,
	jobs *queue.Queue,
) *Propagator {
	return &Propagator{fanRepo: fanRepo, msgRepo: msgRepo, recvRepo: recvRepo, jobs: jobs}
}

// Register 挂载任务处理函数
func (p *Propagator) Register() {
	p.jobs.Register(model.JobKindNewMessage, p.HandleNewMessage)
	p.jobs.Register(model.JobKindFollowChange, p.HandleFollowChange)
}

// HandleNewMessage 处理一页粉丝：追加接收记录，页非空则带新游标自续传
func (p *Propagator) HandleNewMessage(ctx context.Context, payload []byte) error {
	var job NewMessageJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("decode new message job: %w", err)
	}
	pageSize := cursor.ClampPageSize(job.Limit)

	fans, err := p.fanRepo.ListFans(ctx, job.FollowedID, cursor.Decode(job.Cursor), pageSize)
	if err != nil {
		return err
	}
	if len(fans) == 0 {
		return nil // 链终止
	}

	ids := make([]string, len(fans))
	for i, f := range fans {
		ids[i] = f.FanID
	}
	if err := p.recvRepo.AddBatch(ctx, job.MessageID, ids); err != nil {
		return err
	}

	last := fans[len(fans)-1]
	logger.Debug("new message page propagated",
		zap.String("message", job.MessageID), zap.Int("receivers", len(ids)))
	return p.jobs.Enqueue(ctx, model.JobKindNewMessage, NewMessageJob{
		MessageID:  job.MessageID,
		FollowedID: job.FollowedID,
		Cursor:     cursor.Encode(last.CreatedAt, last.ID),
		Limit:      pageSize,
	})
}

// HandleFollowChange 处理一页作者消息：逐条调整接收者索引，页非空则自续传
func (p *Propagator) HandleFollowChange(ctx context.Context, payload []byte) error {
	var job FollowChangeJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("decode follow change job: %w", err)
	}
	if job.Action != propagateActionAdd && job.Action != propagateActionRemove {
		return fmt.Errorf("%w: %s", ErrBadAction, job.Action)
	}
	pageSize := cursor.ClampPageSize(job.Limit)

	msgs, err := p.msgRepo.ListBySender(ctx, job.SenderID, cursor.Decode(job.Cursor), pageSize)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil // 链终止
	}

	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	if job.Action == propagateActionAdd {
		err = p.recvRepo.AddForMessages(ctx, ids, job.ReceiverID)
	} else {
		err = p.recvRepo.RemoveForMessages(ctx, ids, job.ReceiverID)
	}
	if err != nil {
		return err
	}

	last := msgs[len(msgs)-1]
	logger.Debug("follow change page propagated",
		zap.String("sender", job.SenderID), zap.String("receiver", job.ReceiverID),
		zap.String("action", job.Action), zap.Int("messages", len(ids)))
	return p.jobs.Enqueue(ctx, model.JobKindFollowChange, FollowChangeJob{
		Action:     job.Action,
		SenderID:   job.SenderID,
		ReceiverID: job.ReceiverID,
		Cursor:     cursor.Encode(last.CreatedAt, last.ID),
		Limit:      pageSize,
	})
}
