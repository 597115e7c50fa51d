package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/twitterlite/internal/cache"
	"github.com/d60-Lab/twitterlite/internal/queue"
	"github.com/d60-Lab/twitterlite/internal/repository"
	"github.com/d60-Lab/twitterlite/internal/service"
	"github.com/d60-Lab/twitterlite/pkg/database"
)

// 本地写扩散基准：一个作者 FANS 个粉丝，发 MSGS 条消息，
// 排空任务链并测量扩散耗时。
func main() {
	fans := envInt("FANS", 5000)
	msgs := envInt("MSGS", 10)
	page := envInt("PAGE", 25)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		panic(err)
	}
	if err := database.Migrate(db); err != nil {
		panic(err)
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	fanRepo := repository.NewFanRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	recvRepo := repository.NewReceiverRepository(db)
	jobs := queue.New(db, queue.Options{ClaimLimit: 64})
	service.NewPropagator(fanRepo, msgRepo, recvRepo, jobs).Register()

	userCache := cache.NewUserCache(nil, 0)
	users := service.NewUserService(userRepo, followRepo, fanRepo, userCache, jobs)
	messages := service.NewMessageService(db, msgRepo, recvRepo, userRepo, userCache, jobs)

	author, err := users.Create(ctx, "author", "author@example.com")
	if err != nil {
		panic(err)
	}
	for i := 0; i < fans; i++ {
		login := fmt.Sprintf("fan%06d", i)
		f, err := users.Create(ctx, login, login+"@example.com")
		if err != nil {
			panic(err)
		}
		if err := users.Follow(ctx, f.ID, author.ID); err != nil {
			panic(err)
		}
	}
	if err := jobs.Drain(ctx); err != nil {
		panic(err)
	}

	st := time.Now()
	for i := 0; i < msgs; i++ {
		if _, err := messages.Create(ctx, author.ID, fmt.Sprintf("message %d", i)); err != nil {
			panic(err)
		}
	}
	posted := time.Since(st)

	st = time.Now()
	if err := jobs.Drain(ctx); err != nil {
		panic(err)
	}
	drained := time.Since(st)

	pages := (fans + page - 1) / page
	fmt.Printf("fans=%d msgs=%d page=%d\n", fans, msgs, page)
	fmt.Printf("post:  %v (%.1f msg/s)\n", posted, float64(msgs)/posted.Seconds())
	fmt.Printf("drain: %v (%d pages/msg, %.0f receivers/s)\n",
		drained, pages, float64(fans*msgs)/drained.Seconds())
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}
