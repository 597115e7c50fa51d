package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/twitterlite/internal/model"
	"github.com/d60-Lab/twitterlite/pkg/logger"
)

// HandlerFunc 处理一条任务。返回错误则任务回到 pending 等待重投（至少一次语义）。
type HandlerFunc func(ctx context.Context, payload []byte) error

// Queue 基于 DB 的持久化任务队列。
// worker 轮询认领 pending 任务；认领在事务里完成，postgres 下用 SKIP LOCKED 避免互相阻塞。
type Queue struct {
	db           *gorm.DB
	handlers     map[string]HandlerFunc
	workers      int
	claimLimit   int
	maxAttempts  int
	pollInterval time.Duration
	leaseTimeout time.Duration
}

type Options struct {
	Workers      int
	ClaimLimit   int
	MaxAttempts  int
	PollInterval time.Duration
	// LeaseTimeout processing 状态的租约：超时说明 worker 进程死在半路，任务退回 pending
	LeaseTimeout time.Duration
}

func New(db *gorm.DB, opts Options) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.ClaimLimit <= 0 {
		opts.ClaimLimit = 32
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 50 * time.Millisecond
	}
	if opts.LeaseTimeout <= 0 {
		opts.LeaseTimeout = time.Minute
	}
	return &Queue{
		db:           db,
		handlers:     make(map[string]HandlerFunc),
		workers:      opts.Workers,
		claimLimit:   opts.ClaimLimit,
		maxAttempts:  opts.MaxAttempts,
		pollInterval: opts.PollInterval,
		leaseTimeout: opts.LeaseTimeout,
	}
}

// Register 注册任务类型的处理函数，须在 Start 之前调用
func (q *Queue) Register(kind string, h HandlerFunc) { q.handlers[kind] = h }

// Enqueue 投递一条任务（独立事务）
func (q *Queue) Enqueue(ctx context.Context, kind string, payload any) error {
	return q.EnqueueTx(q.db.WithContext(ctx), kind, payload)
}

// EnqueueTx 在调用方事务里投递任务（outbox：任务行即持久化的意图记录）
func (q *Queue) EnqueueTx(tx *gorm.DB, kind string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	job := &model.Job{
		ID:      uuid.New().String(),
		Kind:    kind,
		Payload: string(b),
		Status:  model.JobStatusPending,
		RunAt:   time.Now(),
	}
	return tx.Create(job).Error
}

// Start 启动 worker 轮询；返回停止函数。
func (q *Queue) Start() func(context.Context) error {
	stop := make(chan struct{})
	for i := 0; i < q.workers; i++ {
		go q.loop(stop)
	}
	return func(ctx context.Context) error { close(stop); return nil }
}

func (q *Queue) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := q.processOnce(context.Background()); err != nil {
				logger.Warn("queue poll failed", zap.Error(err))
			}
		}
	}
}

// reclaimStale 把租约过期的 processing 任务退回 pending。
// 认领后进程崩溃不会走 run 的失败路径，这里兜底保证至少一次。
func (q *Queue) reclaimStale(ctx context.Context) error {
	return q.db.WithContext(ctx).Model(&model.Job{}).
		Where("status = ? AND updated_at < ?", model.JobStatusProcessing, time.Now().Add(-q.leaseTimeout)).
		Update("status", model.JobStatusPending).Error
}

// processOnce 认领一批任务并逐条执行，返回认领数量
func (q *Queue) processOnce(ctx context.Context) (int, error) {
	if err := q.reclaimStale(ctx); err != nil {
		return 0, err
	}
	var batch []model.Job
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sel := tx.Where("status = ? AND run_at <= ?", model.JobStatusPending, time.Now()).
			Order("created_at").
			Limit(q.claimLimit)
		if tx.Dialector.Name() == "postgres" {
			sel = sel.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := sel.Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]string, len(batch))
		for i, j := range batch {
			ids[i] = j.ID
		}
		return tx.Model(&model.Job{}).Where("id IN ?", ids).
			Updates(map[string]any{"status": model.JobStatusProcessing, "attempts": gorm.Expr("attempts + 1")}).Error
	})
	if err != nil || len(batch) == 0 {
		return 0, err
	}

	for _, job := range batch {
		q.run(ctx, job)
	}
	return len(batch), nil
}

func (q *Queue) run(ctx context.Context, job model.Job) {
	h, ok := q.handlers[job.Kind]
	if !ok {
		logger.Error("no handler for job kind", zap.String("kind", job.Kind), zap.String("job", job.ID))
		q.setStatus(ctx, job.ID, model.JobStatusDead)
		return
	}
	if err := h(ctx, []byte(job.Payload)); err != nil {
		attempts := job.Attempts + 1
		if attempts >= q.maxAttempts {
			logger.Error("job dead after max attempts",
				zap.String("kind", job.Kind), zap.String("job", job.ID), zap.Error(err))
			sentry.CaptureException(fmt.Errorf("job %s (%s) dead: %w", job.ID, job.Kind, err))
			q.setStatus(ctx, job.ID, model.JobStatusDead)
			return
		}
		logger.Warn("job failed, will redeliver",
			zap.String("kind", job.Kind), zap.String("job", job.ID),
			zap.Int("attempts", attempts), zap.Error(err))
		// 退回 pending，带一点线性退避
		_ = q.db.WithContext(ctx).Model(&model.Job{}).Where("id = ?", job.ID).
			Updates(map[string]any{
				"status": model.JobStatusPending,
				"run_at": time.Now().Add(time.Duration(attempts) * time.Second),
			}).Error
		return
	}
	q.setStatus(ctx, job.ID, model.JobStatusDone)
}

func (q *Queue) setStatus(ctx context.Context, id, status string) {
	if err := q.db.WithContext(ctx).Model(&model.Job{}).Where("id = ?", id).
		Update("status", status).Error; err != nil {
		logger.Error("update job status failed", zap.String("job", id), zap.Error(err))
	}
}

// Drain 同步处理任务直到没有待处理任务为止。自续传任务链也会被跟着跑完。
// 供测试与基准使用。
func (q *Queue) Drain(ctx context.Context) error {
	for {
		n, err := q.processOnce(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			// 可能还有退避中的任务
			var pending int64
			if err := q.db.WithContext(ctx).Model(&model.Job{}).
				Where("status = ?", model.JobStatusPending).Count(&pending).Error; err != nil {
				return err
			}
			if pending == 0 {
				return nil
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}
