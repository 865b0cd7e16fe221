package models

import "time"

// Event is a hackathon hosted by an organization. Its flags gate voting,
// volunteering and whether likes are announced anonymously.
type Event struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	OrganizationID      uint           `gorm:"index;not null" json:"organization_id"`
	Title               string         `gorm:"size:200;not null" json:"title"`
	Description         string         `gorm:"type:text" json:"description"`
	StartsAt            *time.Time     `json:"starts_at"`
	VotingEnabled       bool           `gorm:"default:false" json:"voting_enabled"`
	VolunteeringEnabled bool           `gorm:"default:false" json:"volunteering_enabled"`
	AnonymousSocial     bool           `gorm:"default:false" json:"anonymous_social"`
	Registrations       []Registration `gorm:"foreignKey:EventID" json:"-"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

func (Event) TableName() string { return "events" }

// Registration records that a user signed up for an event.
type Registration struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   uint      `gorm:"not null;uniqueIndex:idx_registration_event_user" json:"event_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_registration_event_user" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Registration) TableName() string { return "registrations" }
