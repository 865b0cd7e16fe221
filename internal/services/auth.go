package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/huangang/hackfest/internal/config"
	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/internal/oauth"
	"github.com/huangang/hackfest/internal/utils"
	"github.com/huangang/hackfest/pkg/logger"
	"gorm.io/gorm"
)

const (
	ProviderLocal = "local"

	RoleAdmin = "admin"
	RoleUser  = "user"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type AuthService struct {
	db        *gorm.DB
	jwtConfig *config.JWTConfig
	admin     *config.AdminConfig
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, adminCfg *config.AdminConfig) *AuthService {
	return &AuthService{db: db, jwtConfig: jwtCfg, admin: adminCfg}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string       `json:"token"`
	User     *models.User `json:"user"`
	ExpireAt time.Time    `json:"expire_at"`
}

func roleOf(u *models.User) string {
	if u.Admin {
		return RoleAdmin
	}
	return RoleUser
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*LoginResponse, error) {
	token, err := utils.GenerateToken(user.ID, user.Name, roleOf(user), s.jwtConfig.ExpireHour)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.WithContext(ctx).Model(user).UpdateColumn("last_login", now).Error; err != nil {
		logger.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to record last login")
	}

	return &LoginResponse{
		Token:    token,
		User:     user,
		ExpireAt: now.Add(time.Duration(s.jwtConfig.ExpireHour) * time.Hour),
	}, nil
}

// Login authenticates a local password account.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("provider = ? AND uid = ?", ProviderLocal, strings.ToLower(strings.TrimSpace(req.Email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, &user)
}

// LoginWithProfile finds the user for a provider identity, creating it on
// first sign-in and refreshing name, email and avatar afterwards.
func (s *AuthService) LoginWithProfile(ctx context.Context, profile *oauth.Profile) (*LoginResponse, error) {
	user, err := s.findOrCreate(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

func (s *AuthService) findOrCreate(ctx context.Context, profile *oauth.Profile) (*models.User, error) {
	db := s.db.WithContext(ctx)
	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = profile.Provider + " user " + profile.UID
	}

	var user models.User
	err := db.Where("provider = ? AND uid = ?", profile.Provider, profile.UID).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Provider: profile.Provider,
			UID:      profile.UID,
			Name:     name,
			Email:    profile.Email,
			Avatar:   profile.Avatar,
		}
		if err := db.Create(&user).Error; err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, err
			}
			// Lost a race with a concurrent first sign-in.
			if err := db.Where("provider = ? AND uid = ?", profile.Provider, profile.UID).First(&user).Error; err != nil {
				return nil, err
			}
		}
		logger.Info().Uint("user_id", user.ID).Str("provider", user.Provider).Msg("user created")
		return &user, nil
	case err != nil:
		return nil, err
	}

	user.Name = name
	if profile.Email != "" {
		user.Email = profile.Email
	}
	if profile.Avatar != "" {
		user.Avatar = profile.Avatar
	}
	if err := db.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateAdminIfNotExists creates the local super-admin from config when no
// super-admin exists yet.
func (s *AuthService) CreateAdminIfNotExists(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("admin = ?", true).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := utils.HashPassword(s.admin.Password)
	if err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(s.admin.Email))
	admin := models.User{
		Name:     "Administrator",
		Email:    email,
		Provider: ProviderLocal,
		UID:      email,
		Password: hashed,
		Admin:    true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	logger.Infof("[Auth] Created super-admin %s", email)
	return nil
}
