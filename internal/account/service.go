package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/accountd/accountd/internal/apperr"
	"github.com/accountd/accountd/internal/token"
)

const bcryptCost = 10

// Service orchestrates the account and session lifecycle: registration,
// credential verification, token issuance and revocation.
type Service struct {
	repo   Repository
	issuer *token.Issuer
}

// NewService creates an account service.
func NewService(repo Repository, issuer *token.Issuer) *Service {
	return &Service{repo: repo, issuer: issuer}
}

// Register creates a new account. Email and phone must not collide with an
// existing record; the email check runs first.
func (s *Service) Register(ctx context.Context, in RegisterInput) (PublicUser, error) {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if in.Username == "" || in.Email == "" || in.Phone == 0 || in.Password == "" {
		return PublicUser{}, apperr.New(apperr.Validation, "username, email, phone and password are required")
	}

	if _, err := s.repo.FindByEmail(ctx, in.Email); err == nil {
		return PublicUser{}, apperr.New(apperr.DuplicateResource, "email already registered")
	} else if !errors.Is(err, ErrNotFound) {
		return PublicUser{}, apperr.Wrap(apperr.Internal, "account lookup failed", err)
	}

	if _, err := s.repo.FindByPhone(ctx, in.Phone); err == nil {
		return PublicUser{}, apperr.New(apperr.DuplicateResource, "phone number already registered")
	} else if !errors.Is(err, ErrNotFound) {
		return PublicUser{}, apperr.Wrap(apperr.Internal, "account lookup failed", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return PublicUser{}, apperr.Wrap(apperr.Internal, "could not hash password", err)
	}

	user, err := s.repo.Create(ctx, User{
		Username:     in.Username,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return PublicUser{}, apperr.Wrap(apperr.Internal, "could not create account", err)
	}

	return user.Public(), nil
}

// Login verifies credentials and starts a session. Missing input, an unknown
// email and a wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (PublicUser, TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return PublicUser{}, TokenPair{}, invalidCredentials()
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return PublicUser{}, TokenPair{}, invalidCredentials()
	}
	if err != nil {
		return PublicUser{}, TokenPair{}, apperr.Wrap(apperr.Internal, "account lookup failed", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return PublicUser{}, TokenPair{}, invalidCredentials()
	}

	pair, err := s.generateTokenPair(ctx, user.ID.Hex())
	if err != nil {
		return PublicUser{}, TokenPair{}, err
	}

	return user.Public(), pair, nil
}

// generateTokenPair looks the user up by id, issues both tokens and persists
// the refresh token, overwriting any prior session. Every failure in here,
// including a lookup miss, is a server fault rather than a credential error.
func (s *Service) generateTokenPair(ctx context.Context, userID string) (TokenPair, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, "could not generate session tokens", err)
	}

	access, err := s.issuer.IssueAccess(user.ID.Hex(), user.Email, user.Username)
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, "could not generate session tokens", err)
	}
	refresh, err := s.issuer.IssueRefresh(user.ID.Hex())
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, "could not generate session tokens", err)
	}

	if err := s.repo.SetRefreshToken(ctx, user.ID.Hex(), refresh); err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, "could not generate session tokens", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout revokes the active session by unsetting the stored refresh token.
// Idempotent: logging out twice, or with no active session, succeeds.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.repo.ClearRefreshToken(ctx, userID); err != nil {
		return apperr.Wrap(apperr.Internal, "could not clear session", err)
	}
	return nil
}

// Refresh rotates a session: the presented refresh token must verify and
// match the one stored on the user record, so a cleared token stays revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	userID, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, apperr.New(apperr.Unauthorized, "invalid refresh token")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return TokenPair{}, apperr.New(apperr.Unauthorized, "invalid refresh token")
	}
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, "account lookup failed", err)
	}

	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		return TokenPair{}, apperr.New(apperr.Unauthorized, "session revoked")
	}

	return s.generateTokenPair(ctx, userID)
}

// GetByID resolves a user id to its public record.
func (s *Service) GetByID(ctx context.Context, userID string) (PublicUser, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return PublicUser{}, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return PublicUser{}, apperr.Wrap(apperr.Internal, "account lookup failed", err)
	}
	return user.Public(), nil
}

func invalidCredentials() error {
	return apperr.New(apperr.InvalidCredentials, "invalid credentials")
}
