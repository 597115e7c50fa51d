package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/twitterlite/internal/model"
)

func setupQueue(t *testing.T, opts Options) (*Queue, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Job{}))
	return New(db, opts), db
}

type testPayload struct {
	N int `json:"n"`
}

func TestEnqueueAndDrain(t *testing.T) {
	q, db := setupQueue(t, Options{})
	ctx := context.Background()

	var handled atomic.Int64
	q.Register("test", func(ctx context.Context, payload []byte) error {
		var p testPayload
		require.NoError(t, json.Unmarshal(payload, &p))
		handled.Add(int64(p.N))
		return nil
	})

	require.NoError(t, q.Enqueue(ctx, "test", testPayload{N: 2}))
	require.NoError(t, q.Enqueue(ctx, "test", testPayload{N: 3}))
	require.NoError(t, q.Drain(ctx))

	assert.EqualValues(t, 5, handled.Load())

	var done int64
	require.NoError(t, db.Model(&model.Job{}).Where("status = ?", model.JobStatusDone).Count(&done).Error)
	assert.EqualValues(t, 2, done)
}

// 失败的任务回到 pending 重投，至少一次语义
func TestFailedJobRedelivered(t *testing.T) {
	q, db := setupQueue(t, Options{MaxAttempts: 5})
	ctx := context.Background()

	var calls atomic.Int64
	q.Register("flaky", func(ctx context.Context, payload []byte) error {
		if calls.Add(1) < 3 {
			return errors.New("transient store error")
		}
		return nil
	})

	require.NoError(t, q.Enqueue(ctx, "flaky", testPayload{}))
	require.NoError(t, q.Drain(ctx))

	assert.EqualValues(t, 3, calls.Load())
	var job model.Job
	require.NoError(t, db.First(&job).Error)
	assert.Equal(t, model.JobStatusDone, job.Status)
	assert.Equal(t, 3, job.Attempts)
}

func TestJobDeadAfterMaxAttempts(t *testing.T) {
	q, db := setupQueue(t, Options{MaxAttempts: 3})
	ctx := context.Background()

	var calls atomic.Int64
	q.Register("broken", func(ctx context.Context, payload []byte) error {
		calls.Add(1)
		return errors.New("always fails")
	})

	require.NoError(t, q.Enqueue(ctx, "broken", testPayload{}))
	require.NoError(t, q.Drain(ctx))

	assert.EqualValues(t, 3, calls.Load())
	var job model.Job
	require.NoError(t, db.First(&job).Error)
	assert.Equal(t, model.JobStatusDead, job.Status)
}

func TestUnknownKindGoesDead(t *testing.T) {
	q, db := setupQueue(t, Options{})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "nobody-handles-this", testPayload{}))
	require.NoError(t, q.Drain(ctx))

	var job model.Job
	require.NoError(t, db.First(&job).Error)
	assert.Equal(t, model.JobStatusDead, job.Status)
}

// 自续传链：处理函数投递后继任务，Drain 会把整条链跑完
func TestSelfChainingJobRunsToCompletion(t *testing.T) {
	q, _ := setupQueue(t, Options{})
	ctx := context.Background()

	var pages atomic.Int64
	q.Register("chain", func(ctx context.Context, payload []byte) error {
		var p testPayload
		require.NoError(t, json.Unmarshal(payload, &p))
		pages.Add(1)
		if p.N > 1 {
			return q.Enqueue(ctx, "chain", testPayload{N: p.N - 1})
		}
		return nil
	})

	require.NoError(t, q.Enqueue(ctx, "chain", testPayload{N: 7}))
	require.NoError(t, q.Drain(ctx))
	assert.EqualValues(t, 7, pages.Load())
}

// worker 认领后崩溃留下的 processing 任务，租约过期后退回 pending 重投
func TestStaleProcessingJobReclaimed(t *testing.T) {
	q, db := setupQueue(t, Options{LeaseTimeout: time.Minute})
	ctx := context.Background()

	var handled atomic.Int64
	q.Register("test", func(ctx context.Context, payload []byte) error {
		handled.Add(1)
		return nil
	})

	// 模拟死 worker：直接落一行 processing，updated_at 早于租约窗口
	stale := time.Now().Add(-10 * time.Minute)
	job := &model.Job{
		ID:      "stale-job",
		Kind:    "test",
		Payload: "{}",
		Status:  model.JobStatusProcessing,
		RunAt:   stale,
	}
	require.NoError(t, db.Create(job).Error)
	require.NoError(t, db.Model(job).UpdateColumn("updated_at", stale).Error)

	require.NoError(t, q.Drain(ctx))

	assert.EqualValues(t, 1, handled.Load())
	var got model.Job
	require.NoError(t, db.First(&got, "id = ?", job.ID).Error)
	assert.Equal(t, model.JobStatusDone, got.Status)
}

// 租约窗口内的 processing 任务不会被抢
func TestInFlightJobNotReclaimed(t *testing.T) {
	q, db := setupQueue(t, Options{LeaseTimeout: time.Minute})
	ctx := context.Background()
	q.Register("test", func(ctx context.Context, payload []byte) error { return nil })

	job := &model.Job{
		ID:      "inflight-job",
		Kind:    "test",
		Payload: "{}",
		Status:  model.JobStatusProcessing,
		RunAt:   time.Now(),
	}
	require.NoError(t, db.Create(job).Error)

	_, err := q.processOnce(ctx)
	require.NoError(t, err)

	var got model.Job
	require.NoError(t, db.First(&got, "id = ?", job.ID).Error)
	assert.Equal(t, model.JobStatusProcessing, got.Status)
}

// EnqueueTx：事务回滚时任务行不落地
func TestEnqueueTxRollsBackWithTransaction(t *testing.T) {
	q, db := setupQueue(t, Options{})

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := q.EnqueueTx(tx, "test", testPayload{}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	var cnt int64
	require.NoError(t, db.Model(&model.Job{}).Count(&cnt).Error)
	assert.Zero(t, cnt)
}
