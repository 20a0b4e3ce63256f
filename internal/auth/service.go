package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/2beens/fittrack/pkg"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTTL       = 24 * time.Hour
	sessionKeyPrefix = "fittrack-session||"
	tokensSetKey     = "fittrack-sessions"
	tokenLength      = 35
)

var ErrWrongCredentials = errors.New("wrong credentials")

type Admin struct {
	Username     string
	PasswordHash string
}

type Credentials struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

type Service struct {
	admin       *Admin
	redisClient *redis.Client
	ttl         time.Duration
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewAuthService(
	admin *Admin,
	ttl time.Duration,
	redisClient *redis.Client,
) *Service {
	return &Service{
		admin:          admin,
		ttl:            ttl,
		redisClient:    redisClient,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

func (as *Service) TTL() time.Duration {
	return as.ttl
}

// Login checks the credentials and opens a session. The session key expires in redis
// after the ttl; ScanAndClean catches the ones redis has not evicted yet.
func (as *Service) Login(ctx context.Context, creds Credentials, createdAt time.Time) (string, error) {
	if creds.Username != as.admin.Username {
		log.Tracef("[username] failed login attempt for user: %s", creds.Username)
		return "", ErrWrongCredentials
	}
	if !pkg.CheckPasswordHash(creds.Password, as.admin.PasswordHash) {
		log.Tracef("[password] failed login attempt for user: %s", creds.Username)
		return "", ErrWrongCredentials
	}

	token, err := as.RandStringFunc(tokenLength)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	sessionKey := sessionKeyPrefix + token
	if err := as.redisClient.Set(ctx, sessionKey, createdAt.Unix(), as.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	// add token to list of sessions
	if err := as.redisClient.SAdd(ctx, tokensSetKey, token).Err(); err != nil {
		return "", fmt.Errorf("add session token: %w", err)
	}

	return token, nil
}

// Logout removes the session, reporting whether it existed.
func (as *Service) Logout(ctx context.Context, token string) (bool, error) {
	cmdDel := as.redisClient.Del(ctx, sessionKeyPrefix+token)
	if err := cmdDel.Err(); err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}

	// remove token from the list of sessions
	if err := as.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
		return false, fmt.Errorf("remove session token: %w", err)
	}

	return cmdDel.Val() > 0, nil
}

// ScanAndClean will run through all sessions, check the TTL, and clean them if old
func (as *Service) ScanAndClean(ctx context.Context) {
	cmd := as.redisClient.SMembers(ctx, tokensSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("auth service, scan and clean, get sessions: %s", err)
		return
	}

	sessionTokens := cmd.Val()
	if len(sessionTokens) == 0 {
		log.Debugln("auth service, scan and clean abort, no sessions")
		return
	}

	log.Debugf("auth service, scan and clean [%d sessions] start ...", len(sessionTokens))
	var toRemove []string
	for _, token := range sessionTokens {
		cmd := as.redisClient.Get(ctx, sessionKeyPrefix+token)
		if err := cmd.Err(); err != nil {
			if errors.Is(err, redis.Nil) {
				// expired in redis, only the set member is left
				toRemove = append(toRemove, token)
				continue
			}
			log.Errorf("auth service, scan and clean token: %s", err)
			continue
		}

		createdAtUnix, err := strconv.ParseInt(cmd.Val(), 10, 64)
		if err != nil {
			log.Errorf("auth service, scan and clean token: %s", err)
			continue
		}

		if time.Since(time.Unix(createdAtUnix, 0)) > as.ttl {
			toRemove = append(toRemove, token)
		}
	}

	for _, token := range toRemove {
		if _, err := as.Logout(ctx, token); err != nil {
			log.Errorf("auth service, clean token: %s", err)
			continue
		}
	}
	log.Debugf("auth service, scan and clean removed %d sessions", len(toRemove))
}
