package models

import (
	"regexp"
	"strings"
	"time"

	"gorm.io/datatypes"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Organization is the tenant root. Subdomain is globally unique.
type Organization struct {
	ID                uint                        `gorm:"primaryKey" json:"id"`
	Name              string                      `gorm:"size:200;not null" json:"name"`
	Subdomain         string                      `gorm:"size:63;not null;uniqueIndex" json:"subdomain"`
	Description       string                      `gorm:"type:text" json:"description"`
	Website           string                      `gorm:"size:500" json:"website"`
	Logo              string                      `gorm:"size:500" json:"logo"` // storage key owned by the upload integration
	AutoVerify        bool                        `gorm:"default:false" json:"auto_verify"`
	AutoVerifyDomains datatypes.JSONSlice[string] `json:"auto_verify_domains"`
	PublicAccess      bool                        `gorm:"default:false;index" json:"public_access"`
	SlackWebhookURL   string                      `gorm:"size:500" json:"-"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}

func (Organization) TableName() string { return "organizations" }

// Validate returns field-level messages; an empty map means valid.
// Subdomain uniqueness needs the database and is checked by the service.
func (o *Organization) Validate() map[string][]string {
	errs := map[string][]string{}
	if strings.TrimSpace(o.Name) == "" {
		errs["name"] = append(errs["name"], "can't be blank")
	}
	if o.Subdomain == "" {
		errs["subdomain"] = append(errs["subdomain"], "can't be blank")
	} else if !subdomainPattern.MatchString(o.Subdomain) {
		errs["subdomain"] = append(errs["subdomain"], "is invalid")
	}
	return errs
}

// AutoVerifies reports whether a user with the given email domain is
// verified on join.
func (o *Organization) AutoVerifies(domain string) bool {
	if !o.AutoVerify || domain == "" {
		return false
	}
	for _, d := range o.AutoVerifyDomains {
		if strings.EqualFold(strings.TrimPrefix(strings.TrimSpace(d), "@"), domain) {
			return true
		}
	}
	return false
}

// OrganizationUser is a membership: a user's role within one organization.
type OrganizationUser struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"not null;uniqueIndex:idx_org_user" json:"organization_id"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_org_user" json:"user_id"`
	User           *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Admin          bool      `gorm:"default:false" json:"admin"`
	Verified       bool      `gorm:"default:false" json:"verified"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (OrganizationUser) TableName() string { return "organization_users" }
