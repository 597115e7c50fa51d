package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/twitterlite/internal/cache"
	"github.com/d60-Lab/twitterlite/internal/model"
	"github.com/d60-Lab/twitterlite/internal/queue"
	"github.com/d60-Lab/twitterlite/internal/repository"
	"github.com/d60-Lab/twitterlite/pkg/database"
)

// testEnv 完整接线的服务栈：sqlite 内存库 + 同步 Drain 的任务队列，无 redis
type testEnv struct {
	db    *gorm.DB
	jobs  *queue.Queue
	users UserService
	msgs  MessageService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	jobs := queue.New(db, queue.Options{})
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	fanRepo := repository.NewFanRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	recvRepo := repository.NewReceiverRepository(db)
	uc := cache.NewUserCache(nil, 0)

	NewPropagator(fanRepo, msgRepo, recvRepo, jobs).Register()

	return &testEnv{
		db:    db,
		jobs:  jobs,
		users: NewUserService(userRepo, followRepo, fanRepo, uc, jobs),
		msgs:  NewMessageService(db, msgRepo, recvRepo, userRepo, uc, jobs),
	}
}

func (e *testEnv) drain(t *testing.T) {
	t.Helper()
	require.NoError(t, e.jobs.Drain(context.Background()))
}

func (e *testEnv) mustCreateUser(t *testing.T, login string) *model.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), login, fmt.Sprintf("%s@example.com", login))
	require.NoError(t, err)
	return u
}

func texts(msgs []*model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}
