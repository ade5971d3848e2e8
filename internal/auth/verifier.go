package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

var _ Resolver = (*Verifier)(nil)

// Verifier resolves bearer tokens to principals. A token resolves only
// when its signature checks out against the secret, its session is still
// registered and fresh, and its subject is an existing user. Any other
// outcome is ErrUnauthenticated.
type Verifier struct {
	secret      []byte
	ttl         time.Duration
	redisClient *redis.Client
	users       userStore
}

func NewVerifier(
	secret []byte,
	ttl time.Duration,
	redisClient *redis.Client,
	userStore userStore,
) *Verifier {
	return &Verifier{
		secret:      secret,
		ttl:         ttl,
		redisClient: redisClient,
		users:       userStore,
	}
}

func (v *Verifier) Resolve(ctx context.Context, rawToken string) (*Principal, error) {
	if rawToken == "" {
		return nil, ErrUnauthenticated
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		log.Tracef("resolve token, parse: %s", err)
		return nil, ErrUnauthenticated
	}

	if claims.Subject == "" {
		return nil, ErrUnauthenticated
	}

	live, err := v.sessionIsLive(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if !live {
		return nil, ErrUnauthenticated
	}

	// a valid signature can still carry a since-deleted user
	user, err := v.users.GetByID(ctx, claims.Subject)
	if err != nil {
		log.Tracef("resolve token, get user %s: %s", claims.Subject, err)
		return nil, ErrUnauthenticated
	}

	return &Principal{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.Name,
	}, nil
}

func (v *Verifier) sessionIsLive(ctx context.Context, token string) (bool, error) {
	sessionKey := sessionKeyPrefix + token
	createdAtUnixStr, err := v.redisClient.Get(ctx, sessionKey).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}

	createdAtUnix, err := strconv.ParseInt(createdAtUnixStr, 10, 64)
	if err != nil {
		return false, err
	}

	createdAt := time.Unix(createdAtUnix, 0)
	if time.Since(createdAt) > v.ttl {
		return false, nil
	}

	return true, nil
}
