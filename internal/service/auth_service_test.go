package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/md-notes-api/internal/dto"
	"github.com/noah-isme/md-notes-api/internal/models"
	appErrors "github.com/noah-isme/md-notes-api/pkg/errors"
)

type userRepoStub struct {
	users          map[string]*models.User
	usernameTaken  bool
	emailTaken     bool
	created        []*models.User
	lastLoginCalls int
	err            error
}

func (s *userRepoStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if user, ok := s.users[username]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.usernameTaken, s.err
}

func (s *userRepoStub) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.emailTaken, s.err
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.err != nil {
		return s.err
	}
	if s.users == nil {
		s.users = make(map[string]*models.User)
	}
	s.users[user.Username] = user
	s.created = append(s.created, user)
	return nil
}

func (s *userRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	s.lastLoginCalls++
	return nil
}

type revocationStoreStub struct {
	refresh     map[string]string
	blacklisted map[string]bool
	err         error
}

func newRevocationStoreStub() *revocationStoreStub {
	return &revocationStoreStub{
		refresh:     make(map[string]string),
		blacklisted: make(map[string]bool),
	}
}

func (s *revocationStoreStub) PutRefresh(ctx context.Context, userID, token string, ttl time.Duration) error {
	if s.err != nil {
		return s.err
	}
	s.refresh[userID] = token
	return nil
}

func (s *revocationStoreStub) GetRefresh(ctx context.Context, userID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.refresh[userID], nil
}

func (s *revocationStoreStub) DeleteRefresh(ctx context.Context, userID string) error {
	if s.err != nil {
		return s.err
	}
	delete(s.refresh, userID)
	return nil
}

func (s *revocationStoreStub) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	if s.err != nil {
		return s.err
	}
	if ttl > 0 {
		s.blacklisted[token] = true
	}
	return nil
}

func (s *revocationStoreStub) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.blacklisted[token], nil
}

func seedUser(t *testing.T, password string) (*userRepoStub, *models.User) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           "user-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		Nickname:     "Alice",
		Active:       true,
	}
	return &userRepoStub{users: map[string]*models.User{"alice": user}}, user
}

func newAuthService(users *userRepoStub, store *revocationStoreStub) *AuthService {
	return NewAuthService(users, store, newTokenService(), nil, nil)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	users, user := seedUser(t, "secret123")
	store := newRevocationStoreStub()
	svc := newAuthService(users, store)

	res, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, user.ID, res.UserID)
	assert.Equal(t, res.RefreshToken, store.refresh[user.ID])
	assert.Equal(t, 1, users.lastLoginCalls)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	users, _ := seedUser(t, "secret123")
	svc := newAuthService(users, newRevocationStoreStub())

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "wrong-pass"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginDeactivatedAccount(t *testing.T) {
	users, user := seedUser(t, "secret123")
	user.Active = false
	store := newRevocationStoreStub()
	svc := newAuthService(users, store)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "secret123"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
	assert.Empty(t, store.refresh, "no session is opened for a deactivated account")
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	svc := newAuthService(&userRepoStub{}, newRevocationStoreStub())

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "nobody", Password: "secret123"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceRegisterSuccess(t *testing.T) {
	users := &userRepoStub{}
	store := newRevocationStoreStub()
	svc := newAuthService(users, store)

	res, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	require.Len(t, users.created, 1)

	created := users.created[0]
	assert.NotEqual(t, "secret123", created.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret123")))
	assert.Equal(t, "bob", created.Nickname, "nickname defaults to username")
	assert.True(t, created.Active)

	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, res.RefreshToken, store.refresh[created.ID], "register opens a session")
}

func TestAuthServiceRegisterDuplicateUsername(t *testing.T) {
	users := &userRepoStub{usernameTaken: true}
	svc := newAuthService(users, newRevocationStoreStub())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice",
		Email:    "new@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUsernameTaken))
	assert.Empty(t, users.created)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	users := &userRepoStub{emailTaken: true}
	svc := newAuthService(users, newRevocationStoreStub())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "bob",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrEmailTaken))
	assert.Empty(t, users.created)
}

func TestAuthServiceRefreshReusableUntilLogout(t *testing.T) {
	users, _ := seedUser(t, "secret123")
	store := newRevocationStoreStub()
	svc := newAuthService(users, store)

	session, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	first, err := svc.Refresh(context.Background(), session.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, first.AccessToken)
	assert.Equal(t, session.RefreshToken, first.RefreshToken, "refresh token is not rotated")

	second, err := svc.Refresh(context.Background(), session.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, second.AccessToken)
}

func TestAuthServiceRefreshRejectsAccessToken(t *testing.T) {
	users, _ := seedUser(t, "secret123")
	svc := newAuthService(users, newRevocationStoreStub())

	session, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), session.AccessToken)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidToken))
}

func TestAuthServiceRefreshAfterLogout(t *testing.T) {
	users, _ := seedUser(t, "secret123")
	store := newRevocationStoreStub()
	svc := newAuthService(users, store)

	session, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), "Bearer "+session.AccessToken))

	_, err = svc.Refresh(context.Background(), session.RefreshToken)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidToken))
}

func TestAuthServiceLogoutBlacklistsAccessToken(t *testing.T) {
	users, user := seedUser(t, "secret123")
	store := newRevocationStoreStub()
	svc := newAuthService(users, store)

	session, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), "Bearer "+session.AccessToken))
	assert.True(t, store.blacklisted[session.AccessToken])
	assert.Empty(t, store.refresh[user.ID])
}

func TestAuthServiceLogoutIdempotent(t *testing.T) {
	users, _ := seedUser(t, "secret123")
	store := newRevocationStoreStub()
	svc := newAuthService(users, store)

	session, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), "Bearer "+session.AccessToken))
	require.NoError(t, svc.Logout(context.Background(), "Bearer "+session.AccessToken))
	require.NoError(t, svc.Logout(context.Background(), "Bearer garbage-token"))
	require.NoError(t, svc.Logout(context.Background(), ""))
}

func TestAuthServiceResolvePrincipal(t *testing.T) {
	users, user := seedUser(t, "secret123")
	store := newRevocationStoreStub()
	svc := newAuthService(users, store)

	session, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	principal, err := svc.ResolvePrincipal(context.Background(), session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, "alice", principal.Username)
	assert.Equal(t, "alice@example.com", principal.Email)
}

func TestAuthServiceResolvePrincipalRejectsRefreshToken(t *testing.T) {
	users, _ := seedUser(t, "secret123")
	svc := newAuthService(users, newRevocationStoreStub())

	session, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.ResolvePrincipal(context.Background(), session.RefreshToken)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidToken))
}

func TestAuthServiceResolvePrincipalRejectsBlacklisted(t *testing.T) {
	users, _ := seedUser(t, "secret123")
	store := newRevocationStoreStub()
	svc := newAuthService(users, store)

	session, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background(), "Bearer "+session.AccessToken))

	_, err = svc.ResolvePrincipal(context.Background(), session.AccessToken)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidToken))
}
