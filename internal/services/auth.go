package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventhub/apiserver/internal/authclient"
	"github.com/eventhub/apiserver/internal/session"
	"github.com/eventhub/apiserver/pkg/logger"
	"github.com/eventhub/apiserver/types"
)

const (
	defaultTokenTTL  = 24 * time.Hour
	passwordProvider = "password"
	minPasswordLen   = 8
)

// SessionRevoker invalidates the caller's sessions at the auth provider.
type SessionRevoker interface {
	Revoke(ctx context.Context, token string) (authclient.RevokeResponse, error)
}

// RegisterInput is the payload of the sign-up form.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// AuthService issues and checks bearer tokens and builds request sessions.
type AuthService struct {
	accounts AccountRepository
	users    UserRepository
	revoker  SessionRevoker
	secret   []byte
	tokenTTL time.Duration
	log      logger.Logger
}

func NewAuthService(accounts AccountRepository, users UserRepository, revoker SessionRevoker, jwtSecret string, tokenTTL time.Duration, log logger.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AuthService{
		accounts: accounts,
		users:    users,
		revoker:  revoker,
		secret:   []byte(jwtSecret),
		tokenTTL: tokenTTL,
		log:      log,
	}
}

// Register creates the credential record and the user document, then
// signs the new user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	email, err := canonicalEmail(in.Email)
	if err != nil {
		return AuthResult{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return AuthResult{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLen {
		return AuthResult{}, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	username, err := CanonicalUsername(in.Username)
	if err != nil {
		return AuthResult{}, err
	}

	existing, err := s.accounts.Get(ctx, email)
	if err != nil {
		return AuthResult{}, fmt.Errorf("check account: %w", err)
	}
	if existing != nil {
		return AuthResult{}, ErrEmailTaken
	}
	holder, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return AuthResult{}, fmt.Errorf("check username: %w", err)
	}
	if holder != nil {
		return AuthResult{}, ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, types.User{
		ID:       uuid.NewString(),
		Name:     name,
		Username: username,
		Skills:   map[string]int{},
	}, passwordProvider)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.accounts.Create(ctx, types.Account{
		Email:        email,
		UserID:       user.ID,
		PasswordHash: string(hashed),
		Provider:     passwordProvider,
	}); err != nil {
		// Release the username so the next attempt can claim it.
		if derr := s.users.Delete(ctx, user.ID); derr != nil {
			s.log.Warn(ctx, "remove user after failed account create", logger.String("user_id", user.ID), logger.Error(derr))
		}
		return AuthResult{}, err
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	s.log.Info(ctx, "user registered", logger.String("user_id", user.ID))
	return AuthResult{Token: token, User: user}, nil
}

// Login checks the password and records the sign-in.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return AuthResult{}, ErrInvalidCredentials
	}

	account, err := s.accounts.Get(ctx, email)
	if err != nil {
		return AuthResult{}, err
	}
	if account == nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	user, err := s.users.Get(ctx, account.UserID)
	if err != nil {
		return AuthResult{}, err
	}
	if user == nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err := s.users.RecordLogin(ctx, user.ID); err != nil {
		return AuthResult{}, mapStoreErr(err)
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: *user}, nil
}

// Authenticate turns a bearer token into a populated session. A valid
// token for a user that no longer exists is rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	userID, err := s.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	rec, err := s.users.GetRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrUnauthenticated
	}
	sess := session.New()
	sess.SetSession(userID, rec)
	return sess, nil
}

// Logout invalidates the token at the auth provider when one is configured,
// then clears the session. The session is cleared even if revocation fails.
func (s *AuthService) Logout(ctx context.Context, sess *session.Session, token string) (authclient.RevokeResponse, error) {
	defer sess.ClearSession()

	if s.revoker == nil {
		return authclient.RevokeResponse{}, nil
	}
	resp, err := s.revoker.Revoke(ctx, token)
	if errors.Is(err, authclient.ErrNotConfigured) {
		return authclient.RevokeResponse{}, nil
	}
	if err != nil {
		s.log.Warn(ctx, "session revoke failed", logger.String("user_id", sess.CurrentUserID()), logger.Error(err))
		return nil, err
	}
	return resp, nil
}

// IssueToken signs an HS256 token with the user id as subject.
func (s *AuthService) IssueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken verifies the token and returns its subject.
func (s *AuthService) ParseToken(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

func canonicalEmail(input string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(input))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return email, nil
}
