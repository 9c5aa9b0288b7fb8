package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// UserStore persists user accounts
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash, phone string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, name, passwordHash, phone *string) (*models.User, error)
}

// TokenIssuer signs session tokens
type TokenIssuer interface {
	GenerateAccessToken(userID int64, email, role string) (string, error)
}

// AuthService handles registration, login and profile updates
type AuthService struct {
	users      UserStore
	tokens     TokenIssuer
	audit      Auditor
	logger     logrus.FieldLogger
	bcryptCost int
	expiresIn  int64
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, tokens TokenIssuer, audit Auditor, logger logrus.FieldLogger, bcryptCost int, expirySeconds int64) *AuthService {
	if audit == nil {
		audit = noopAuditor{}
	}
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		audit:      audit,
		logger:     logger,
		bcryptCost: bcryptCost,
		expiresIn:  expirySeconds,
	}
}

// Register creates a traveler account
func (s *AuthService) Register(ctx context.Context, actor Actor, req *models.RegisterRequest) (*models.User, error) {
	req.Normalize()
	if req.Name == "" {
		return nil, NewValidationError("name", "name is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, req.Name, req.Email, string(hash), req.Phone)
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	actor.UserID = user.ID
	s.record(ctx, EventFor(actor, AuditRegister, "user", user.ID, map[string]interface{}{"email": user.Email}))
	s.logger.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

// Login checks credentials and issues a token
func (s *AuthService) Login(ctx context.Context, actor Actor, req *models.LoginRequest) (*models.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !database.IsNotFound(err) {
			return nil, err
		}
		s.record(ctx, EventFor(actor, AuditLoginFailed, "user", 0, map[string]interface{}{"email": email, "reason": "unknown_email"}))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		actor.UserID = user.ID
		s.record(ctx, EventFor(actor, AuditLoginFailed, "user", user.ID, map[string]interface{}{"email": email, "reason": "wrong_password"}))
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	actor.UserID = user.ID
	s.record(ctx, EventFor(actor, AuditLogin, "user", user.ID, nil))

	return &models.LoginResponse{Token: token, ExpiresIn: s.expiresIn, User: user}, nil
}

// UpdateProfile changes the caller's own name, password or phone
func (s *AuthService) UpdateProfile(ctx context.Context, actor Actor, req *models.UpdateProfileRequest) (*models.User, error) {
	if req.IsEmpty() {
		return nil, NewValidationError("", "nothing to update")
	}

	var name, hash, phone *string
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return nil, NewValidationError("name", "name must not be blank")
		}
		name = &trimmed
	}
	if req.Password != nil {
		h, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		hashed := string(h)
		hash = &hashed
	}
	if req.Phone != nil {
		trimmed := strings.TrimSpace(*req.Phone)
		phone = &trimmed
	}

	user, err := s.users.UpdateProfile(ctx, actor.UserID, name, hash, phone)
	if err != nil {
		return nil, err
	}

	s.record(ctx, EventFor(actor, AuditProfileUpdated, "user", user.ID, map[string]interface{}{
		"name_changed":     name != nil,
		"password_changed": hash != nil,
		"phone_changed":    phone != nil,
	}))
	return user, nil
}

// CurrentUser returns the caller's account
func (s *AuthService) CurrentUser(ctx context.Context, actor Actor) (*models.User, error) {
	return s.users.GetUserByID(ctx, actor.UserID)
}

func (s *AuthService) record(ctx context.Context, event AuditEvent) {
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.WithError(err).WithField("action", event.Action).Warn("Audit event dropped")
	}
}
