package models

import (
	"strings"
	"time"
)

// User is a person signed in through an identity provider. Admin marks a
// global super-admin, who passes every organization admin check.
type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:200;not null;index" json:"name"`
	Email     string     `gorm:"size:255;index" json:"email"`
	Avatar    string     `gorm:"size:500" json:"avatar"`
	Provider  string     `gorm:"size:50;not null;uniqueIndex:idx_users_provider_uid" json:"provider"` // google_oauth2, facebook, meetup, local
	UID       string     `gorm:"size:255;not null;uniqueIndex:idx_users_provider_uid" json:"-"`
	Password  string     `gorm:"size:255" json:"-"` // bcrypt hash, local accounts only
	Admin     bool       `gorm:"default:false" json:"admin"`
	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// EmailDomain returns the lowercase part after '@', or "" when there is none.
func (u *User) EmailDomain() string {
	at := strings.LastIndex(u.Email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(u.Email[at+1:]))
}
