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
	"go.uber.org/goleak"

	"github.com/heksidee/blogAppPipeline/internal/users"
)

var (
	testSecret       = []byte("test-secret")
	testUsername     = "testuser"
	testPassword     = "testpass"
	testPasswordHash = "$2a$14$6Gmhg85si2etd3K9oB8nYu1cxfbrdmhkg6wI6OXsa88IF4L2r/L9i" // testpass
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func newTestUserStore(t *testing.T) (*users.RepoMock, *users.User) {
	t.Helper()

	usersRepo := users.NewRepoMock()
	user := &users.User{
		ID:           "u1",
		Username:     testUsername,
		Name:         "Test User",
		PasswordHash: testPasswordHash,
	}
	require.NoError(t, usersRepo.Create(context.Background(), user))
	return usersRepo, user
}

// signTestToken builds the exact token the service is expected to issue
func signTestToken(t *testing.T, secret []byte, subject string, now time.Time, ttl time.Duration) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func TestService_Login(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	usersRepo, user := newTestUserStore(t)

	authService := NewService(testSecret, time.Hour, rdb, usersRepo)
	require.NotNil(t, authService)

	now := time.Now()
	authService.NowFunc = func() time.Time { return now }

	expectedToken := signTestToken(t, testSecret, user.ID, now, time.Hour)
	mock.ExpectSet(sessionKeyPrefix+expectedToken, now.Unix(), 0).SetVal("OK")
	mock.ExpectSAdd(tokensSetKey, expectedToken).SetVal(1)

	token, loggedInUser, err := authService.Login(context.Background(), testUsername, testPassword)
	require.NoError(t, err)
	assert.Equal(t, expectedToken, token)
	require.NotNil(t, loggedInUser)
	assert.Equal(t, user.ID, loggedInUser.ID)
	assert.NoError(t, mock.ExpectationsWereMet())

	// wrong password
	token, loggedInUser, err = authService.Login(context.Background(), testUsername, "invalid_pass")
	assert.ErrorIs(t, err, ErrWrongCredentials)
	assert.Empty(t, token)
	assert.Nil(t, loggedInUser)

	// unknown username looks exactly like a wrong password
	token, loggedInUser, err = authService.Login(context.Background(), "nobody", testPassword)
	assert.ErrorIs(t, err, ErrWrongCredentials)
	assert.Empty(t, token)
	assert.Nil(t, loggedInUser)
}

func TestService_Logout(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	usersRepo, _ := newTestUserStore(t)
	authService := NewService(testSecret, time.Hour, rdb, usersRepo)

	now := time.Now()
	token := "some_token"
	sessionKey := sessionKeyPrefix + token

	mock.ExpectGet(sessionKey).SetVal(fmt.Sprintf("%d", now.Unix()))
	mock.ExpectDel(sessionKey).SetVal(1)
	mock.ExpectSRem(tokensSetKey, token).SetVal(1)

	loggedOut, err := authService.Logout(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, loggedOut)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Logout_UnknownToken(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	usersRepo, _ := newTestUserStore(t)
	authService := NewService(testSecret, time.Hour, rdb, usersRepo)

	token := "never_issued"
	mock.ExpectGet(sessionKeyPrefix + token).RedisNil()

	loggedOut, err := authService.Logout(context.Background(), token)
	assert.Error(t, err)
	assert.False(t, loggedOut)
}

func TestService_ScanAndClean(t *testing.T) {
	ttl := time.Hour
	now := time.Now()
	then := now.Add(-2 * time.Hour)

	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	usersRepo, _ := newTestUserStore(t)
	authService := NewService(testSecret, ttl, rdb, usersRepo)
	require.NotNil(t, authService)

	t1, t2 := "token1", "token2"
	mock.ExpectSMembers(tokensSetKey).SetVal([]string{t1, t2})
	mock.ExpectGet(sessionKeyPrefix + t1).SetVal(fmt.Sprintf("%d", then.Unix()))
	mock.ExpectGet(sessionKeyPrefix + t2).SetVal(fmt.Sprintf("%d", now.Unix()))
	// only t1 is past its ttl
	mock.ExpectDel(sessionKeyPrefix + t1).SetVal(1)
	mock.ExpectSRem(tokensSetKey, t1).SetVal(1)

	authService.ScanAndClean(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}
