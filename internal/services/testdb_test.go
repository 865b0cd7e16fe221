package services

import (
	"context"
	"sync"
	"testing"

	"github.com/huangang/hackfest/internal/config"
	"github.com/huangang/hackfest/internal/models"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	u := models.User{Name: name, Email: email, Provider: "google_oauth2", UID: "uid-" + name}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return &u
}

func createOrg(t *testing.T, svc *OrganizationService, subdomain string, creator *models.User) *models.Organization {
	t.Helper()
	org, err := svc.Create(context.Background(), &CreateOrganizationRequest{Name: "Org " + subdomain, Subdomain: subdomain}, creator)
	if err != nil {
		t.Fatalf("create org %s: %v", subdomain, err)
	}
	return org
}

func createEvent(t *testing.T, db *gorm.DB, orgID uint, voting, volunteering bool) *models.Event {
	t.Helper()
	ev := models.Event{OrganizationID: orgID, Title: "Hack Day", VotingEnabled: voting, VolunteeringEnabled: volunteering}
	if err := db.Create(&ev).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}
	return &ev
}

// recordingNotifier keeps every message it receives.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []NotificationTask
}

func (n *recordingNotifier) Notify(_ context.Context, orgID uint, kind, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, NotificationTask{OrganizationID: orgID, Kind: kind, Text: text})
}

func (n *recordingNotifier) all() []NotificationTask {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]NotificationTask(nil), n.messages...)
}

type fixture struct {
	db       *gorm.DB
	orgs     *OrganizationService
	projects *ProjectService
	events   *EventService
	notifier *recordingNotifier
	owner    *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	orgs := NewOrganizationService(db)
	notifier := &recordingNotifier{}
	links := &Links{Scheme: "https", BaseDomain: "hackfest.test"}
	return &fixture{
		db:       db,
		orgs:     orgs,
		projects: NewProjectService(db, orgs, notifier, links),
		events:   NewEventService(db),
		notifier: notifier,
		owner:    createUser(t, db, "Owner", "owner@example.com"),
	}
}

func (f *fixture) project(t *testing.T, orgID uint, eventID *uint, title string) *models.Project {
	t.Helper()
	p, err := f.projects.Create(context.Background(), orgID, &CreateProjectRequest{
		Title:       title,
		Description: "A project",
		EventID:     eventID,
	}, f.owner)
	if err != nil {
		t.Fatalf("create project %q: %v", title, err)
	}
	return p
}
