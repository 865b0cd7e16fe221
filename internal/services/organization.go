package services

import (
	"context"
	"errors"
	"strings"

	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrganizationService struct {
	db *gorm.DB
}

func NewOrganizationService(db *gorm.DB) *OrganizationService {
	return &OrganizationService{db: db}
}

type CreateOrganizationRequest struct {
	Name              string   `json:"name"`
	Subdomain         string   `json:"subdomain"`
	Description       string   `json:"description"`
	Website           string   `json:"website" binding:"omitempty,url"`
	Logo              string   `json:"logo"`
	AutoVerify        bool     `json:"auto_verify"`
	AutoVerifyDomains []string `json:"auto_verify_domains"`
	PublicAccess      bool     `json:"public_access"`
	SlackWebhookURL   string   `json:"slack_webhook_url" binding:"omitempty,url"`
}

type UpdateOrganizationRequest struct {
	Name              *string  `json:"name"`
	Subdomain         *string  `json:"subdomain"`
	Description       *string  `json:"description"`
	Website           *string  `json:"website"`
	Logo              *string  `json:"logo"`
	AutoVerify        *bool    `json:"auto_verify"`
	AutoVerifyDomains []string `json:"auto_verify_domains"`
	PublicAccess      *bool    `json:"public_access"`
	SlackWebhookURL   *string  `json:"slack_webhook_url"`
}

// Membership flags of one user in one organization, as returned to clients.
type Membership struct {
	Member   bool `json:"member"`
	Verified bool `json:"verified"`
	Admin    bool `json:"admin"`
}

var errSubdomainTaken = &ValidationError{Fields: map[string][]string{"subdomain": {"has already been taken"}}}

// Create saves a new organization and makes creator its verified admin.
func (s *OrganizationService) Create(ctx context.Context, req *CreateOrganizationRequest, creator *models.User) (*models.Organization, error) {
	org := models.Organization{
		Name:              strings.TrimSpace(req.Name),
		Subdomain:         strings.ToLower(strings.TrimSpace(req.Subdomain)),
		Description:       req.Description,
		Website:           req.Website,
		Logo:              req.Logo,
		AutoVerify:        req.AutoVerify,
		AutoVerifyDomains: req.AutoVerifyDomains,
		PublicAccess:      req.PublicAccess,
		SlackWebhookURL:   req.SlackWebhookURL,
	}
	if err := validationError(org.Validate()); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := subdomainTaken(tx, org.Subdomain, 0)
		if err != nil {
			return err
		}
		if taken {
			return errSubdomainTaken
		}
		if err := tx.Create(&org).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errSubdomainTaken
			}
			return err
		}
		return addCreator(tx, org.ID, creator.ID)
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Uint("organization_id", org.ID).Str("subdomain", org.Subdomain).
		Uint("creator_id", creator.ID).Msg("organization created")
	return &org, nil
}

// AddCreator grants user a verified admin membership.
func (s *OrganizationService) AddCreator(ctx context.Context, orgID uint, user *models.User) error {
	return addCreator(s.db.WithContext(ctx), orgID, user.ID)
}

func addCreator(db *gorm.DB, orgID, userID uint) error {
	m := models.OrganizationUser{OrganizationID: orgID, UserID: userID, Admin: true, Verified: true}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"admin": true, "verified": true}),
	}).Create(&m).Error
}

func subdomainTaken(db *gorm.DB, subdomain string, exceptID uint) (bool, error) {
	var count int64
	q := db.Model(&models.Organization{}).Where("subdomain = ?", subdomain)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *OrganizationService) Update(ctx context.Context, id uint, req *UpdateOrganizationRequest) (*models.Organization, error) {
	org, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		org.Name = strings.TrimSpace(*req.Name)
	}
	if req.Subdomain != nil {
		org.Subdomain = strings.ToLower(strings.TrimSpace(*req.Subdomain))
	}
	if req.Description != nil {
		org.Description = *req.Description
	}
	if req.Website != nil {
		org.Website = *req.Website
	}
	if req.Logo != nil {
		org.Logo = *req.Logo
	}
	if req.AutoVerify != nil {
		org.AutoVerify = *req.AutoVerify
	}
	if req.AutoVerifyDomains != nil {
		org.AutoVerifyDomains = req.AutoVerifyDomains
	}
	if req.PublicAccess != nil {
		org.PublicAccess = *req.PublicAccess
	}
	if req.SlackWebhookURL != nil {
		org.SlackWebhookURL = *req.SlackWebhookURL
	}

	if err := validationError(org.Validate()); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := subdomainTaken(tx, org.Subdomain, org.ID)
		if err != nil {
			return err
		}
		if taken {
			return errSubdomainTaken
		}
		if err := tx.Save(org).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errSubdomainTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (s *OrganizationService) GetByID(ctx context.Context, id uint) (*models.Organization, error) {
	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}
	return &org, nil
}

func (s *OrganizationService) GetBySubdomain(ctx context.Context, subdomain string) (*models.Organization, error) {
	var org models.Organization
	err := s.db.WithContext(ctx).Where("subdomain = ?", strings.ToLower(subdomain)).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}
	return &org, nil
}

// ListPublic returns organizations whose projects anyone may browse.
func (s *OrganizationService) ListPublic(ctx context.Context) ([]models.Organization, error) {
	var orgs []models.Organization
	err := s.db.WithContext(ctx).Where("public_access = ?", true).Order("name ASC").Find(&orgs).Error
	return orgs, err
}

// ListForUser returns the organizations userID belongs to.
func (s *OrganizationService) ListForUser(ctx context.Context, userID uint) ([]models.Organization, error) {
	var orgs []models.Organization
	err := s.db.WithContext(ctx).
		Joins("JOIN organization_users ON organization_users.organization_id = organizations.id").
		Where("organization_users.user_id = ?", userID).
		Order("organizations.name ASC").
		Find(&orgs).Error
	return orgs, err
}

// membership looks up the row fresh on every call. A missing row is a
// normal outcome; other failures are logged and treated as missing.
func (s *OrganizationService) membership(ctx context.Context, orgID, userID uint) *models.OrganizationUser {
	var m models.OrganizationUser
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&m).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn().Err(err).Uint("organization_id", orgID).Uint("user_id", userID).
				Msg("membership lookup failed")
		}
		return nil
	}
	return &m
}

// IsAdmin is true for global super-admins and for members flagged admin.
func (s *OrganizationService) IsAdmin(ctx context.Context, orgID uint, user *models.User) bool {
	if user == nil {
		return false
	}
	if user.Admin {
		return true
	}
	m := s.membership(ctx, orgID, user.ID)
	return m != nil && m.Admin
}

func (s *OrganizationService) IsVerified(ctx context.Context, orgID uint, user *models.User) bool {
	if user == nil {
		return false
	}
	m := s.membership(ctx, orgID, user.ID)
	return m != nil && m.Verified
}

func (s *OrganizationService) IsMember(ctx context.Context, orgID uint, user *models.User) bool {
	if user == nil {
		return false
	}
	return s.membership(ctx, orgID, user.ID) != nil
}

// MembershipOf reports all three flags with a single lookup.
func (s *OrganizationService) MembershipOf(ctx context.Context, orgID uint, user *models.User) Membership {
	if user == nil {
		return Membership{}
	}
	m := s.membership(ctx, orgID, user.ID)
	if m == nil {
		return Membership{Admin: user.Admin}
	}
	return Membership{Member: true, Verified: m.Verified, Admin: m.Admin || user.Admin}
}

// Join makes user a member of org. Users whose email domain is on the
// organization's auto-verify list start out verified. Joining twice returns
// the existing membership unchanged.
func (s *OrganizationService) Join(ctx context.Context, org *models.Organization, user *models.User) (*models.OrganizationUser, error) {
	m := models.OrganizationUser{
		OrganizationID: org.ID,
		UserID:         user.ID,
		Verified:       org.AutoVerifies(user.EmailDomain()),
	}
	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
		return nil, err
	}

	var existing models.OrganizationUser
	if err := db.Where("organization_id = ? AND user_id = ?", org.ID, user.ID).First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

type UpdateMemberRequest struct {
	Admin    *bool `json:"admin"`
	Verified *bool `json:"verified"`
}

// UpdateMember changes a member's flags.
func (s *OrganizationService) UpdateMember(ctx context.Context, orgID, userID uint, req *UpdateMemberRequest) (*models.OrganizationUser, error) {
	updates := map[string]interface{}{}
	if req.Admin != nil {
		updates["admin"] = *req.Admin
	}
	if req.Verified != nil {
		updates["verified"] = *req.Verified
	}

	db := s.db.WithContext(ctx)
	if len(updates) > 0 {
		res := db.Model(&models.OrganizationUser{}).
			Where("organization_id = ? AND user_id = ?", orgID, userID).
			Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}

	var m models.OrganizationUser
	if err := db.Preload("User").Where("organization_id = ? AND user_id = ?", orgID, userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Members lists memberships with their users, ordered by name.
func (s *OrganizationService) Members(ctx context.Context, orgID uint) ([]models.OrganizationUser, error) {
	var members []models.OrganizationUser
	err := s.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN users ON users.id = organization_users.user_id").
		Where("organization_users.organization_id = ?", orgID).
		Order("users.name ASC").
		Find(&members).Error
	return members, err
}
