package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"worksense/backend/models"
	"worksense/backend/utils"
)

// UserService manages accounts in the relational store and issues tokens.
type UserService struct {
	pool      *pgxpool.Pool
	jwtSecret string
}

func NewUserService(pool *pgxpool.Pool, jwtSecret string) *UserService {
	return &UserService{pool: pool, jwtSecret: jwtSecret}
}

// ValidatePassword enforces the account password rules.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters long", ErrValidation)
	}

	hasUppercase := false
	hasDigit := false
	hasSpecial := false
	const specialChars = "!@#$%^&*.,"
	for _, char := range password {
		switch {
		case char >= 'A' && char <= 'Z':
			hasUppercase = true
		case char >= '0' && char <= '9':
			hasDigit = true
		case strings.ContainsRune(specialChars, char):
			hasSpecial = true
		}
	}
	if !hasUppercase {
		return fmt.Errorf("%w: password must contain at least one uppercase letter", ErrValidation)
	}
	if !hasDigit {
		return fmt.Errorf("%w: password must contain at least one number", ErrValidation)
	}
	if !hasSpecial {
		return fmt.Errorf("%w: password must contain at least one special character", ErrValidation)
	}
	return nil
}

// Register creates an account with a hashed password.
func (s *UserService) Register(ctx context.Context, user models.User) (*models.User, error) {
	user.Username = html.EscapeString(strings.TrimSpace(user.Username))
	user.Email = html.EscapeString(strings.TrimSpace(user.Email))
	user.Name = html.EscapeString(user.Name)
	user.LastName = html.EscapeString(user.LastName)

	if user.Username == "" || user.Email == "" {
		return nil, fmt.Errorf("%w: username and email are required", ErrValidation)
	}
	if user.Role == "" {
		user.Role = string(models.RoleMember)
	}
	if user.Role != string(models.RoleManager) && user.Role != string(models.RoleMember) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, user.Role)
	}
	if err := ValidatePassword(user.Password); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, name, last_name, role, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		user.Username, user.Email, user.Name, user.LastName, user.Role, string(hashed),
	)
	if err := row.Scan(&user.ID, &user.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: username or email already taken", ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	user.Password = ""
	user.IsActive = true
	return &user, nil
}

// Login verifies credentials and returns a signed token plus the account.
func (s *UserService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, username, email, name, last_name, role, password_hash, is_active, created_at
		 FROM users WHERE username = $1`,
		username,
	)

	var user models.User
	var hash string
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Name, &user.LastName, &user.Role, &hash, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, fmt.Errorf("%w: invalid username or password", ErrValidation)
		}
		return "", nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if !user.IsActive {
		return "", nil, fmt.Errorf("%w: account is deactivated", ErrValidation)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("%w: invalid username or password", ErrValidation)
	}

	token, err := utils.GenerateToken(s.jwtSecret, fmt.Sprintf("%d", user.ID), user.Username, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return token, &user, nil
}

// GetByUsername fetches a single account without its password hash.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, username, email, name, last_name, role, is_active, created_at
		 FROM users WHERE username = $1`,
		username,
	)

	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Name, &user.LastName, &user.Role, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, username)
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}
