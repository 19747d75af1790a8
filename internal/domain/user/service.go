package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/example/marketflow/internal/auth"
	"github.com/example/marketflow/internal/domain/model"
	"github.com/example/marketflow/internal/infrastructure/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const AggregateType = "User"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidName        = errors.New("full name is required")
	ErrInvalidRole        = errors.New("invalid role")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9\-]+(\.[a-zA-Z0-9\-]+)*\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return len(email) <= 254 && emailPattern.MatchString(email)
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Service handles user domain operations
type Service struct {
	repo      store.Repository
	publisher store.Publisher
	hasher    *auth.PasswordHasher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new user service
func NewService(repo store.Repository, publisher store.Publisher, hasher *auth.PasswordHasher, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		hasher:    hasher,
		logger:    logger.Named("user"),
		now:       time.Now,
	}
}

// Register creates a customer account
func (s *Service) Register(ctx context.Context, email, password, fullName, phone string) (*model.User, error) {
	return s.RegisterWithRole(ctx, email, password, fullName, phone, model.RoleCustomer)
}

// RegisterWithRole creates an account with the given role. Emails are unique
// case-insensitively.
func (s *Service) RegisterWithRole(ctx context.Context, email, password, fullName, phone, role string) (*model.User, error) {
	email = NormalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if fullName == "" {
		return nil, ErrInvalidName
	}
	if role != model.RoleCustomer && role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Phone:        strings.TrimSpace(phone),
		Role:         role,
		CreatedAt:    now,
	}
	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		if snap.UserByEmail(email) != nil {
			return ErrEmailTaken
		}
		snap.Users = append(snap.Users, u)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", u.ID), zap.String("role", role))
	store.Emit(ctx, s.publisher, s.logger, u.ID, AggregateType, EventUserCreated, UserCreated{
		UserID:    u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		CreatedAt: now,
	}, snap.Version)
	return &u, nil
}

// Authenticate returns the user whose credentials match. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	u := snap.UserByEmail(email)
	if u == nil || !s.hasher.Check(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	found := *u
	return &found, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*model.User, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	u := snap.User(userID)
	if u == nil {
		return nil, ErrUserNotFound
	}
	found := *u
	return &found, nil
}

// List returns every account in registration order.
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]model.User, len(snap.Users))
	copy(users, snap.Users)
	return users, nil
}

// RecordLogin publishes a login event; nothing is stored.
func (s *Service) RecordLogin(ctx context.Context, userID, ipAddress, userAgent string) {
	store.Emit(ctx, s.publisher, s.logger, userID, AggregateType, EventUserLoggedIn, UserLoggedIn{
		UserID:    userID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		LoggedAt:  s.now().UTC(),
	}, 0)
}

func (s *Service) RecordLogout(ctx context.Context, userID string) {
	store.Emit(ctx, s.publisher, s.logger, userID, AggregateType, EventUserLoggedOut, UserLoggedOut{
		UserID:   userID,
		LoggedAt: s.now().UTC(),
	}, 0)
}
