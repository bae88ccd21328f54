package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/md-notes-api/internal/dto"
	"github.com/noah-isme/md-notes-api/internal/models"
	appErrors "github.com/noah-isme/md-notes-api/pkg/errors"
)

const bearerPrefix = "Bearer"

type authUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

type revocationStore interface {
	PutRefresh(ctx context.Context, userID, token string, ttl time.Duration) error
	GetRefresh(ctx context.Context, userID string) (string, error)
	DeleteRefresh(ctx context.Context, userID string) error
	Blacklist(ctx context.Context, token string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// AuthService provides login, registration, token refresh and logout.
type AuthService struct {
	users     authUserRepository
	store     revocationStore
	tokens    *TokenService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, store revocationStore, tokens *TokenService, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{users: users, store: store, tokens: tokens, validator: validate, logger: logger}
}

// Login authenticates a user and returns issued tokens with the profile.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.TokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account is deactivated")
	}

	return s.issueSession(ctx, user)
}

// Register creates a new account and immediately logs it in. If the login
// step fails the user row still exists and the client retries login.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.TokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid register payload")
	}

	taken, err := s.users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrUsernameTaken, "")
	}

	taken, err = s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrEmailTaken, "")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	nickname := req.Nickname
	if nickname == "" {
		nickname = req.Username
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Nickname:     nickname,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	return s.issueSession(ctx, user)
}

// Refresh exchanges a valid refresh token for a new access token. The refresh
// token itself is not rotated; it stays valid until logout or natural expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Kind != models.TokenKindRefresh {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "not a refresh token")
	}

	user, err := s.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidToken, "unknown subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	stored, err := s.store.GetRefresh(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read refresh token")
	}
	if stored == "" || stored != refreshToken {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "refresh token revoked")
	}

	accessToken, expiresAt, err := s.tokens.IssueAccess(user.Username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	return tokenResponse(user, accessToken, refreshToken, expiresAt), nil
}

// Logout revokes the session behind the Authorization header. It deletes the
// user's refresh token and blacklists the access token for its remaining
// lifetime. Calling it twice, or with a token that no longer verifies, is a
// no-op rather than an error.
func (s *AuthService) Logout(ctx context.Context, bearerHeader string) error {
	token := stripBearer(bearerHeader)
	if token == "" {
		return nil
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Debug("logout with unverifiable token", zap.Error(err))
		return nil
	}

	user, err := s.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := s.store.DeleteRefresh(ctx, user.ID); err != nil {
		s.logger.Warn("failed to delete refresh token", zap.Error(err))
	}

	if err := s.store.Blacklist(ctx, token, s.tokens.RemainingTTL(claims)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to blacklist token")
	}

	return nil
}

// ResolvePrincipal validates an access token end to end: signature, expiry,
// blacklist, then subject lookup. Used by the authentication filter.
func (s *AuthService) ResolvePrincipal(ctx context.Context, token string) (*models.Principal, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.Kind != models.TokenKindAccess {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "not an access token")
	}

	blacklisted, err := s.store.IsBlacklisted(ctx, token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check blacklist")
	}
	if blacklisted {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "token revoked")
	}

	user, err := s.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidToken, "unknown subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	return &models.Principal{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Nickname: user.Nickname,
		Avatar:   user.Avatar,
	}, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	accessToken, expiresAt, err := s.tokens.IssueAccess(user.Username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	refreshToken, _, err := s.tokens.IssueRefresh(user.Username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	if err := s.store.PutRefresh(ctx, user.ID, refreshToken, s.tokens.config.RefreshExpiration); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	return tokenResponse(user, accessToken, refreshToken, expiresAt), nil
}

func tokenResponse(user *models.User, accessToken, refreshToken string, expiresAt time.Time) *dto.TokenResponse {
	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    bearerPrefix,
		ExpiresIn:    int64(time.Until(expiresAt).Seconds()),
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Nickname:     user.Nickname,
		Avatar:       user.Avatar,
	}
}

func stripBearer(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], bearerPrefix) {
		return strings.TrimSpace(parts[1])
	}
	return header
}
