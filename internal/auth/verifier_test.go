package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_Resolve(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	usersRepo, user := newTestUserStore(t)
	verifier := NewVerifier(testSecret, time.Hour, rdb, usersRepo)

	now := time.Now()
	token := signTestToken(t, testSecret, user.ID, now, time.Hour)
	mock.ExpectGet(sessionKeyPrefix + token).SetVal(fmt.Sprintf("%d", now.Unix()))

	principal, err := verifier.Resolve(context.Background(), token)
	require.NoError(t, err)
	require.NotNil(t, principal)
	assert.Equal(t, user.ID, principal.ID)
	assert.Equal(t, user.Username, principal.Username)
	assert.Equal(t, user.Name, principal.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifier_Resolve_BadTokens(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	defer rdb.Close()

	usersRepo, user := newTestUserStore(t)
	verifier := NewVerifier(testSecret, time.Hour, rdb, usersRepo)

	now := time.Now()

	t.Run("empty token", func(t *testing.T) {
		principal, err := verifier.Resolve(context.Background(), "")
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.Nil(t, principal)
	})

	t.Run("garbage token", func(t *testing.T) {
		principal, err := verifier.Resolve(context.Background(), "not.a.token")
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.Nil(t, principal)
	})

	t.Run("wrong secret", func(t *testing.T) {
		forged := signTestToken(t, []byte("other-secret"), user.ID, now, time.Hour)
		principal, err := verifier.Resolve(context.Background(), forged)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.Nil(t, principal)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := signTestToken(t, testSecret, user.ID, now.Add(-2*time.Hour), time.Hour)
		principal, err := verifier.Resolve(context.Background(), expired)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.Nil(t, principal)
	})

	t.Run("no subject", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}
		subjectless, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		require.NoError(t, err)

		principal, err := verifier.Resolve(context.Background(), subjectless)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.Nil(t, principal)
	})
}

func TestVerifier_Resolve_SessionGone(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	usersRepo, user := newTestUserStore(t)
	verifier := NewVerifier(testSecret, time.Hour, rdb, usersRepo)

	// token is validly signed, but logout already removed the session
	token := signTestToken(t, testSecret, user.ID, time.Now(), time.Hour)
	mock.ExpectGet(sessionKeyPrefix + token).RedisNil()

	principal, err := verifier.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Nil(t, principal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifier_Resolve_StaleSession(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	usersRepo, user := newTestUserStore(t)
	verifier := NewVerifier(testSecret, time.Hour, rdb, usersRepo)

	now := time.Now()
	// the token itself has a long ttl, but the session entry is past the
	// verifier's ttl, so the sweeper just has not caught up with it yet
	token := signTestToken(t, testSecret, user.ID, now, 24*time.Hour)
	mock.ExpectGet(sessionKeyPrefix + token).SetVal(fmt.Sprintf("%d", now.Add(-2*time.Hour).Unix()))

	principal, err := verifier.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Nil(t, principal)
}

func TestVerifier_Resolve_DeletedUser(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	usersRepo, _ := newTestUserStore(t)
	verifier := NewVerifier(testSecret, time.Hour, rdb, usersRepo)

	now := time.Now()
	token := signTestToken(t, testSecret, "gone-user", now, time.Hour)
	mock.ExpectGet(sessionKeyPrefix + token).SetVal(fmt.Sprintf("%d", now.Unix()))

	principal, err := verifier.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Nil(t, principal)
}
