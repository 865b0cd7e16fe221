package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/internal/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventService struct {
	db *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{db: db}
}

type EventRequest struct {
	Title               *string    `json:"title"`
	Description         *string    `json:"description"`
	StartsAt            *time.Time `json:"starts_at"`
	VotingEnabled       *bool      `json:"voting_enabled"`
	VolunteeringEnabled *bool      `json:"volunteering_enabled"`
	AnonymousSocial     *bool      `json:"anonymous_social"`
}

func (r *EventRequest) apply(ev *models.Event) {
	if r.Title != nil {
		ev.Title = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		ev.Description = *r.Description
	}
	if r.StartsAt != nil {
		ev.StartsAt = r.StartsAt
	}
	if r.VotingEnabled != nil {
		ev.VotingEnabled = *r.VotingEnabled
	}
	if r.VolunteeringEnabled != nil {
		ev.VolunteeringEnabled = *r.VolunteeringEnabled
	}
	if r.AnonymousSocial != nil {
		ev.AnonymousSocial = *r.AnonymousSocial
	}
}

func validateEvent(ev *models.Event) error {
	if ev.Title == "" {
		return &ValidationError{Fields: map[string][]string{"title": {"can't be blank"}}}
	}
	return nil
}

func (s *EventService) Create(ctx context.Context, orgID uint, req *EventRequest) (*models.Event, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	ev := models.Event{OrganizationID: orgID}
	req.apply(&ev)
	if err := validateEvent(&ev); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&ev).Error; err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *EventService) Update(ctx context.Context, orgID, id uint, req *EventRequest) (*models.Event, error) {
	ev, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	req.apply(ev)
	if err := validateEvent(ev); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(ev).Error; err != nil {
		return nil, err
	}
	return ev, nil
}

func (s *EventService) Get(ctx context.Context, orgID, id uint) (*models.Event, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	var ev models.Event
	if err := s.db.WithContext(ctx).Scopes(tenant.Scope(orgID)).First(&ev, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &ev, nil
}

// List returns the organization's events, most recent first.
func (s *EventService) List(ctx context.Context, orgID uint) ([]models.Event, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	var events []models.Event
	err := s.db.WithContext(ctx).Scopes(tenant.Scope(orgID)).
		Order("starts_at DESC, id DESC").Find(&events).Error
	return events, err
}

// Register signs user up for the event. Registering twice is a no-op.
func (s *EventService) Register(ctx context.Context, orgID, eventID uint, user *models.User) error {
	ev, err := s.Get(ctx, orgID, eventID)
	if err != nil {
		return err
	}
	reg := models.Registration{EventID: ev.ID, UserID: user.ID}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&reg).Error
}

func (s *EventService) Unregister(ctx context.Context, orgID, eventID uint, user *models.User) error {
	ev, err := s.Get(ctx, orgID, eventID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Where("event_id = ? AND user_id = ?", ev.ID, user.ID).
		Delete(&models.Registration{}).Error
}

// Registrants lists users registered for the event ordered by name.
func (s *EventService) Registrants(ctx context.Context, orgID, eventID uint) ([]models.User, error) {
	ev, err := s.Get(ctx, orgID, eventID)
	if err != nil {
		return nil, err
	}
	var users []models.User
	err = s.db.WithContext(ctx).
		Joins("JOIN registrations ON registrations.user_id = users.id").
		Where("registrations.event_id = ?", ev.ID).
		Order("users.name ASC").Find(&users).Error
	return users, err
}
