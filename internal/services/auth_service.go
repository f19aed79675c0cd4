package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"freshharvest/internal/authz"
	"freshharvest/internal/models"
	"freshharvest/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest is the input of AuthService.Register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

// CreateAccountRequest is the input of AuthService.CreateAccount.
type CreateAccountRequest struct {
	Name     string      `json:"name" validate:"required,min=2,max=100"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6"`
	Phone    string      `json:"phone" validate:"omitempty,max=32"`
	Role     models.Role `json:"role" validate:"required,oneof=user vendor admin"`
}

// UpdateAccountRequest changes an account. Nil fields are left unchanged;
// passwords cannot be changed this way.
type UpdateAccountRequest struct {
	Name     *string      `json:"name" validate:"omitempty,min=2,max=100"`
	Phone    *string      `json:"phone" validate:"omitempty,max=32"`
	Role     *models.Role `json:"role" validate:"omitempty,oneof=user vendor admin"`
	IsActive *bool        `json:"isActive"`
}

// AccountListQuery selects a page of accounts.
type AccountListQuery struct {
	Role   models.Role
	Search string
	Page   int
	Limit  int
}

// LoginRequest is the input of AuthService.Login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned after a successful registration or login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo repositories.UserRepository
	// jwtSecret is injected from configuration; there is no built-in default.
	jwtSecret []byte
	tokenTTL  time.Duration
	validate  *validator.Validate
	now       func() time.Time
	logger    zerolog.Logger
}

// NewAuthService creates a new AuthService issuing tokens valid for tokenTTL.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenTTL time.Duration, logger zerolog.Logger) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		validate:  newValidator(),
		now:       time.Now,
		logger:    logger.With().Str("service", "auth").Logger(),
	}
}

// dummyPasswordHash is compared against when no account matches the email,
// so both login failures take a bcrypt comparison.
var dummyPasswordHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("freshharvest-no-such-account"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("failed to hash dummy password: %v", err))
	}
	return hash
})

var comparePassword = bcrypt.CompareHashAndPassword

func invalidCredentials() error {
	return models.NewDomainError(models.KindUnauthorized, "Invalid credentials")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a shopper account and logs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, req.Phone, models.RoleUser)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login authenticates an account by email and password.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Unknown emails and wrong passwords look the same to the caller.
			_ = comparePassword(dummyPasswordHash(), []byte(req.Password))
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if err := comparePassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, invalidCredentials()
	}
	if !user.IsActive {
		return nil, models.NewDomainError(models.KindUnauthorized, "Account is deactivated")
	}

	return s.issue(user)
}

// CreateAccount lets an admin open an account with any role.
func (s *AuthService) CreateAccount(ctx context.Context, actor authz.Actor, req CreateAccountRequest) (*models.User, error) {
	if err := authz.Require(actor, authz.ActionManageAccounts, authz.Resource{}, "Access denied. Admin only."); err != nil {
		return nil, err
	}
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, req.Phone, req.Role)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", user.ID).
		Str("role", string(user.Role)).
		Str("created_by", actor.ID).
		Msg("account created")
	return user, nil
}

// CreateVendor opens a vendor account. Admin only.
func (s *AuthService) CreateVendor(ctx context.Context, actor authz.Actor, req RegisterRequest) (*models.User, error) {
	return s.CreateAccount(ctx, actor, CreateAccountRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Role:     models.RoleVendor,
	})
}

// ListAccounts returns a page of accounts, newest first. Admin only.
func (s *AuthService) ListAccounts(ctx context.Context, actor authz.Actor, q AccountListQuery) (*models.UserPage, error) {
	if err := authz.Require(actor, authz.ActionManageAccounts, authz.Resource{}, "Access denied. Admin only."); err != nil {
		return nil, err
	}
	if q.Role != "" && !q.Role.Valid() {
		return nil, invalidField("role", fmt.Sprintf("Unknown role '%s'", q.Role))
	}

	page, limit := normalizePage(q.Page, q.Limit)
	users, total, err := s.userRepo.List(ctx, models.UserFilter{
		Role:   q.Role,
		Search: strings.TrimSpace(q.Search),
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return &models.UserPage{
		Users: users,
		Pagination: models.UserPagination{
			CurrentPage: page,
			TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
			TotalUsers:  total,
		},
	}, nil
}

// DeleteAccount removes an account. Admins cannot delete themselves.
func (s *AuthService) DeleteAccount(ctx context.Context, actor authz.Actor, id string) error {
	if err := authz.Require(actor, authz.ActionManageAccounts, authz.Resource{}, "Access denied. Admin only."); err != nil {
		return err
	}
	if id == actor.ID {
		return invalidField("id", "Cannot delete your own account")
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", id).Str("deleted_by", actor.ID).Msg("account deleted")
	return nil
}

// GetAccount returns any account. Admin only.
func (s *AuthService) GetAccount(ctx context.Context, actor authz.Actor, id string) (*models.User, error) {
	if err := authz.Require(actor, authz.ActionManageAccounts, authz.Resource{}, "Access denied. Admin only."); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, id)
}

// UpdateAccount changes the profile, role or activation of an account. Admins
// cannot change their own role or deactivate themselves.
func (s *AuthService) UpdateAccount(ctx context.Context, actor authz.Actor, id string, req UpdateAccountRequest) (*models.User, error) {
	if err := authz.Require(actor, authz.ActionManageAccounts, authz.Resource{}, "Access denied. Admin only."); err != nil {
		return nil, err
	}
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.ID == actor.ID {
		if req.Role != nil && *req.Role != user.Role {
			return nil, invalidField("role", "Cannot change your own role")
		}
		if req.IsActive != nil && !*req.IsActive {
			return nil, invalidField("isActive", "Cannot deactivate your own account")
		}
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.UpdatedAt = s.now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update account %s: %w", id, err)
	}
	s.logger.Info().
		Str("user_id", user.ID).
		Str("role", string(user.Role)).
		Bool("is_active", user.IsActive).
		Str("updated_by", actor.ID).
		Msg("account updated")
	return user, nil
}

// EnsureAdmin creates an admin account with the given credentials unless an
// account with that email already exists. It reports whether one was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	_, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return false, fmt.Errorf("failed to look up admin account: %w", err)
	}

	user, err := s.createUser(ctx, name, email, password, "", models.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("failed to seed admin account: %w", err)
	}
	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("admin account seeded")
	return true, nil
}

func (s *AuthService) createUser(ctx context.Context, name, email, password, phone string, role models.Role) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Email:     normalizeEmail(email),
		Password:  string(hashedPassword),
		Role:      role,
		Phone:     phone,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The store enforces email uniqueness and reports a Conflict.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{Token: tokenString, User: user}, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		s.logger.Debug().Err(err).Msg("token validation failed")
		return nil, &models.DomainError{Kind: models.KindUnauthorized, Message: "Invalid token", Err: err}
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, models.NewDomainError(models.KindUnauthorized, "Invalid token")
}

// Authenticate resolves a bearer token to the account it was issued for. The
// role comes from the stored account, so role changes and deactivation take
// effect before the token expires.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (authz.Actor, *models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return authz.Actor{}, nil, err
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return authz.Actor{}, nil, models.NewDomainError(models.KindUnauthorized, "Invalid token claims")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return authz.Actor{}, nil, models.NewDomainError(models.KindUnauthorized, "Invalid token. User not found.")
		}
		return authz.Actor{}, nil, fmt.Errorf("failed to resolve account: %w", err)
	}
	if !user.IsActive {
		return authz.Actor{}, nil, models.NewDomainError(models.KindUnauthorized, "Account is deactivated")
	}
	return authz.Actor{ID: user.ID, Role: user.Role}, user, nil
}
