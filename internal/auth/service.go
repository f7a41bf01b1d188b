package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/shared"
)

// Config holds token settings.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type claims struct {
	AccountID int64        `json:"account_id"`
	Email     string       `json:"email"`
	Name      string       `json:"name"`
	Level     catalog.Role `json:"level"`
	jwt.RegisteredClaims
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	sessions *SessionStore
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	listeners map[int]chan Event
	nextID    int
}

// NewService constructs a new Service.
func NewService(repo Repository, sessions *SessionStore, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "usagereg"
	}
	return &Service{
		repo:      repo,
		sessions:  sessions,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[int]chan Event),
	}
}

func unauthorized(op string, err error) error {
	return shared.E(shared.KindUnauthorized, op, "auth", err)
}

// SignIn validates email/password credentials and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, shared.E(shared.KindValidation, "signin", "auth", shared.ErrRequiredField)
	}
	acc, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("account lookup failed", slog.Any("error", err))
		}
		return Session{}, unauthorized("signin", shared.ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return Session{}, unauthorized("signin", shared.ErrInvalidCredentials)
	}
	return s.open(ctx, acc)
}

// SignInWithBadge opens a session for the holder of badgeID.
func (s *Service) SignInWithBadge(ctx context.Context, badgeID string) (Session, error) {
	badgeID = strings.TrimSpace(badgeID)
	if badgeID == "" {
		return Session{}, shared.E(shared.KindValidation, "badge", "auth", shared.ErrRequiredField)
	}
	acc, err := s.repo.FindByBadge(ctx, badgeID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("badge lookup failed", slog.Any("error", err))
		}
		return Session{}, unauthorized("badge", shared.ErrInvalidCredentials)
	}
	return s.open(ctx, acc)
}

func (s *Service) open(ctx context.Context, acc *Account) (Session, error) {
	now := s.now().UTC()
	sess := Session{
		ID:        uuid.NewString(),
		AccountID: acc.ID,
		Email:     acc.Email,
		Name:      acc.Name(),
		Level:     acc.Level,
		ExpiresAt: now.Add(s.cfg.TTL),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		AccountID: sess.AccountID,
		Email:     sess.Email,
		Name:      sess.Name,
		Level:     sess.Level,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   acc.Email,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return Session{}, fmt.Errorf("auth: sign token: %w", err)
	}
	sess.Token = signed
	if err := s.sessions.Save(ctx, sess.ID, sess.AccountID, s.cfg.TTL); err != nil {
		return Session{}, shared.E(shared.KindConnectivity, "signin", "auth", err)
	}
	s.logger.Info("signed in", slog.String("user", sess.Name))
	s.emit(Event{Kind: EventSignedIn, Session: sess})
	return sess, nil
}

// Session resolves a token to its live session.
func (s *Service) Session(ctx context.Context, token string) (Session, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Session{}, unauthorized("session", err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return Session{}, unauthorized("session", jwt.ErrTokenInvalidClaims)
	}
	live, err := s.sessions.Active(ctx, c.ID)
	if err != nil {
		return Session{}, shared.E(shared.KindConnectivity, "session", "auth", err)
	}
	if !live {
		return Session{}, unauthorized("session", errors.New("session revoked"))
	}
	return Session{
		Token:     token,
		ID:        c.ID,
		AccountID: c.AccountID,
		Email:     c.Email,
		Name:      c.Name,
		Level:     c.Level,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// SignOut revokes the session behind token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	sess, err := s.Session(ctx, token)
	if err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, sess.ID); err != nil {
		return shared.E(shared.KindConnectivity, "signout", "auth", err)
	}
	s.logger.Info("signed out", slog.String("user", sess.Name))
	s.emit(Event{Kind: EventSignedOut, Session: sess})
	return nil
}

// OnSessionChange delivers sign-in and sign-out events until the returned
// function is called. Slow listeners miss events rather than block.
func (s *Service) OnSessionChange() (<-chan Event, func()) {
	ch := make(chan Event, 8)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}

func (s *Service) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.listeners {
		select {
		case ch <- ev:
		default:
			s.logger.Warn("session listener lagging, event dropped", slog.String("event", string(ev.Kind)))
		}
	}
}

// CreateAccount registers a login account for a new user.
func (s *Service) CreateAccount(ctx context.Context, email, password, displayName string, level catalog.Role) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return shared.E(shared.KindValidation, "create", "accounts", fmt.Errorf("email: %w", shared.ErrRequiredField))
	}
	if len(password) < catalog.MinPasswordLength {
		return shared.E(shared.KindValidation, "create", "accounts",
			fmt.Errorf("Wachtwoord moet minimaal %d tekens lang zijn", catalog.MinPasswordLength))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	_, err = s.repo.CreateAccount(ctx, Account{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(displayName),
		Level:        catalog.ParseRole(string(level)),
	})
	if err != nil {
		return err
	}
	s.logger.Info("account created", slog.String("email", email))
	return nil
}
