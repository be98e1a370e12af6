package identity

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/huangzx96/llm-workbench/internal/auth"
	"github.com/huangzx96/llm-workbench/internal/common"
	"gorm.io/gorm"
)

// The whole identity layer is a stand-in: credentials are checked against a
// seeded catalog and a single demo password. A real deployment would replace
// this with an identity provider behind the same method set.

var ErrInvalidCredentials = errors.New("invalid username or password")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) (*User, error) {
	if strings.TrimSpace(usernameOrEmail) == "" || strings.TrimSpace(password) == "" {
		return nil, common.NewValidationError("username", "username and password are required")
	}

	u, err := s.repo.GetByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.repo.TouchLastLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LastLoginAt = now
	return u, nil
}

type RegisterForm struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	AgreeToTerms    bool   `json:"agree_to_terms"`
}

// Register validates the form and creates the user. The checks run in a fixed
// order so the first failing check's message is the one surfaced.
func (s *Service) Register(ctx context.Context, form RegisterForm) (*User, error) {
	if strings.TrimSpace(form.Username) == "" {
		return nil, common.NewValidationError("username", "username is required")
	}
	if strings.TrimSpace(form.Email) == "" {
		return nil, common.NewValidationError("email", "email is required")
	}
	if !emailPattern.MatchString(form.Email) {
		return nil, common.NewValidationError("email", "invalid email address")
	}
	if len(form.Password) < 6 {
		return nil, common.NewValidationError("password", "password must be at least 6 characters")
	}
	if form.Password != form.ConfirmPassword {
		return nil, common.NewValidationError("confirm_password", "passwords do not match")
	}
	if !form.AgreeToTerms {
		return nil, common.NewValidationError("agree_to_terms", "you must agree to the terms of service")
	}

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, form.Username, form.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, common.NewValidationError("username", "username or email already taken")
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	u := &User{
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hash,
		Role:         RoleUser,
		Preferences: Preferences{
			Theme:        "system",
			DefaultModel: "gpt-3.5-turbo",
			AutoSave:     true,
		},
		CreatedAt:   now,
		LastLoginAt: now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id uint64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

type PreferencesPatch struct {
	Theme        *string `json:"theme"`
	DefaultModel *string `json:"default_model"`
	AutoSave     *bool   `json:"auto_save"`
}

func (s *Service) UpdatePreferences(ctx context.Context, id uint64, patch PreferencesPatch) (*User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	p := u.Preferences
	if patch.Theme != nil {
		switch *patch.Theme {
		case "light", "dark", "system":
			p.Theme = *patch.Theme
		default:
			return nil, common.NewValidationError("theme", "theme must be light, dark or system")
		}
	}
	if patch.DefaultModel != nil {
		p.DefaultModel = *patch.DefaultModel
	}
	if patch.AutoSave != nil {
		p.AutoSave = *patch.AutoSave
	}

	if err := s.repo.UpdatePreferences(ctx, id, p); err != nil {
		return nil, err
	}
	u.Preferences = p
	return u, nil
}

// QuickLoginAccount describes a seeded demo account the login screen offers.
type QuickLoginAccount struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (s *Service) QuickLoginAccounts() []QuickLoginAccount {
	return []QuickLoginAccount{
		{Username: "admin", Role: RoleAdmin},
		{Username: "user1", Role: RoleUser},
	}
}
