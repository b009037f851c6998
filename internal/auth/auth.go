// Package auth is the local account service: bcrypt-hashed credentials in
// the session store and a signed session token persisted next to it, so a
// restarted process comes back signed in.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/matheus3301/apurimac/internal/backend"
	"github.com/matheus3301/apurimac/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

var (
	ErrInvalidEmail       = errors.New("the email address is badly formatted")
	ErrWeakPassword       = fmt.Errorf("the password must be at least %d characters", minPasswordLen)
	ErrEmailInUse         = errors.New("the email address is already in use by another account")
	ErrInvalidCredentials = errors.New("the email or password is invalid")
)

// Options configures the service.
type Options struct {
	Secret    string
	TokenPath string // empty keeps the session in memory only
	TokenTTL  time.Duration
}

// Claims is the session token payload.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Service implements backend.Auth.
type Service struct {
	db     *store.DB
	opts   Options
	logger *zap.Logger

	mu      sync.RWMutex
	current *backend.Identity
}

var _ backend.Auth = (*Service)(nil)

// New creates the service and restores a persisted session, if any.
func New(db *store.DB, opts Options, logger *zap.Logger) (*Service, error) {
	if opts.Secret == "" {
		return nil, errors.New("auth: empty token secret")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{db: db, opts: opts, logger: logger}
	s.restore()
	return s, nil
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (backend.Identity, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return backend.Identity{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return backend.Identity{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return backend.Identity{}, fmt.Errorf("hash password: %w", err)
	}
	acct := &store.Account{UserID: uuid.NewString(), Email: email, PasswordHash: string(hash)}
	if err := s.db.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return backend.Identity{}, ErrEmailInUse
		}
		return backend.Identity{}, fmt.Errorf("create account: %w", err)
	}

	id := backend.Identity{UserID: acct.UserID, Email: acct.Email}
	if err := s.begin(id); err != nil {
		return backend.Identity{}, err
	}
	s.logger.Info("account created", zap.String("user_id", id.UserID))
	return id, nil
}

// SignIn verifies credentials and starts a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (backend.Identity, error) {
	acct, err := s.db.AccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return backend.Identity{}, fmt.Errorf("load account: %w", err)
	}
	if acct == nil {
		return backend.Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return backend.Identity{}, ErrInvalidCredentials
	}

	id := backend.Identity{UserID: acct.UserID, Email: acct.Email}
	if err := s.begin(id); err != nil {
		return backend.Identity{}, err
	}
	s.logger.Info("signed in", zap.String("user_id", id.UserID))
	return id, nil
}

// SignOut ends the session and removes the persisted token.
func (s *Service) SignOut(_ context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if s.opts.TokenPath == "" {
		return nil
	}
	if err := os.Remove(s.opts.TokenPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session token: %w", err)
	}
	return nil
}

// CurrentIdentity returns the signed-in identity.
func (s *Service) CurrentIdentity() (backend.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return backend.Identity{}, false
	}
	return *s.current, true
}

func (s *Service) begin(id backend.Identity) error {
	if s.opts.TokenPath != "" {
		token, err := s.issue(id)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(s.opts.TokenPath), 0700); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
		if err := os.WriteFile(s.opts.TokenPath, []byte(token), 0600); err != nil {
			return fmt.Errorf("persist session token: %w", err)
		}
	}
	s.mu.Lock()
	s.current = &id
	s.mu.Unlock()
	return nil
}

func (s *Service) issue(id backend.Identity) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
		},
		Email: id.Email,
	})
	signed, err := token.SignedString([]byte(s.opts.Secret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses a session token and returns its identity.
func (s *Service) Verify(token string) (backend.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.opts.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return backend.Identity{}, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return backend.Identity{}, errors.New("invalid session token")
	}
	return backend.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

func (s *Service) restore() {
	if s.opts.TokenPath == "" {
		return
	}
	data, err := os.ReadFile(s.opts.TokenPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("cannot read session token", zap.Error(err))
		}
		return
	}
	id, err := s.Verify(strings.TrimSpace(string(data)))
	if err != nil {
		s.logger.Warn("discarding session token", zap.Error(err))
		_ = os.Remove(s.opts.TokenPath)
		return
	}
	s.mu.Lock()
	s.current = &id
	s.mu.Unlock()
	s.logger.Info("session restored", zap.String("user_id", id.UserID))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
