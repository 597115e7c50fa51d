package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/twitterlite/internal/model"
)

// ErrInvalidSession 会话不存在、过期或已登出
var ErrInvalidSession = errors.New("invalid or expired session")

// SessionService 登录会话。系统本身无密码（login + email 即可登录），
// 会话用 JWT 承载，jti 存 redis，登出即吊销。
type SessionService interface {
	Login(ctx context.Context, login, email string) (string, *model.User, error)
	Logout(ctx context.Context, token string) error
	// Verify 校验 token，返回当前用户 id
	Verify(ctx context.Context, token string) (string, error)
}

type sessionService struct {
	userRepo interface {
		GetByLoginEmail(ctx context.Context, login, email string) (*model.User, error)
	}
	cache  *redis.Client
	secret []byte
	ttl    time.Duration
}

func NewSessionService(users UserService, cache *redis.Client, secret string, ttl time.Duration) SessionService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &sessionService{userRepo: users, cache: cache, secret: []byte(secret), ttl: ttl}
}

func sessionKey(jti string) string { return fmt.Sprintf("session:%s", jti) }

func (s *sessionService) Login(ctx context.Context, login, email string) (string, *model.User, error) {
	u, err := s.userRepo.GetByLoginEmail(ctx, login, email)
	if err != nil {
		return "", nil, err
	}
	jti := uuid.New().String()
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   u.ID,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	if err := s.cache.Set(ctx, sessionKey(jti), u.ID, s.ttl).Err(); err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *sessionService) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return ErrInvalidSession
	}
	return s.cache.Del(ctx, sessionKey(claims.ID)).Err()
}

func (s *sessionService) Verify(ctx context.Context, token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", ErrInvalidSession
	}
	// 登出即吊销：jti 必须仍在 redis
	n, err := s.cache.Exists(ctx, sessionKey(claims.ID)).Result()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}

func (s *sessionService) parse(token string) (*jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	return &claims, nil
}
