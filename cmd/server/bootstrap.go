package main

import (
	"context"
	"fmt"

	"github.com/huangang/hackfest/internal/config"
	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/internal/oauth"
	"github.com/huangang/hackfest/internal/services"
	"github.com/huangang/hackfest/internal/utils"
	"github.com/huangang/hackfest/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	cfg           *config.Config
	db            *gorm.DB
	orgs          *services.OrganizationService
	projects      *services.ProjectService
	events        *services.EventService
	auth          *services.AuthService
	notifications *services.NotificationService
	links         *services.Links
	providers     *oauth.Registry
	taskQueue     services.TaskQueue
	worker        *services.Worker
	hotness       *services.HotnessScheduler
}

// bootstrap connects the database and builds every service. Background
// work is started separately by startBackground.
func bootstrap(cfg *config.Config) (*appServices, error) {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	db := models.GetDB()
	if err := models.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	app := newAppServices(cfg, db, services.InitTaskQueue(cfg))
	if err := app.auth.CreateAdminIfNotExists(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}
	return app, nil
}

// newAppServices wires services over an open database and task queue.
func newAppServices(cfg *config.Config, db *gorm.DB, taskQueue services.TaskQueue) *appServices {
	notifications := services.NewNotificationService(db)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(notifications.Deliver)
	}

	orgs := services.NewOrganizationService(db)
	links := services.NewLinks(&cfg.App)
	projects := services.NewProjectService(db, orgs, services.NewQueueNotifier(taskQueue), links)

	return &appServices{
		cfg:           cfg,
		db:            db,
		orgs:          orgs,
		projects:      projects,
		events:        services.NewEventService(db),
		auth:          services.NewAuthService(db, &cfg.JWT, &cfg.Admin),
		notifications: notifications,
		links:         links,
		providers:     oauth.NewRegistry(&cfg.OAuth),
		taskQueue:     taskQueue,
		hotness:       services.NewHotnessScheduler(db, projects),
	}
}

// startBackground runs the notification worker and the hotness scheduler.
func (s *appServices) startBackground() error {
	if s.taskQueue.IsAsync() {
		s.worker = services.InitWorker(&s.cfg.Redis)
		if s.worker != nil {
			s.worker.SetProcessor(s.notifications.Deliver)
			if err := s.worker.Start(); err != nil {
				return err
			}
		}
	}
	if s.cfg.App.HotnessCron != "" {
		if err := s.hotness.Start(s.cfg.App.HotnessCron); err != nil {
			return fmt.Errorf("hotness schedule %q: %w", s.cfg.App.HotnessCron, err)
		}
	}
	return nil
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.hotness.Stop()
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("task queue close failed")
		}
	}
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info().Msg("All services stopped")
}
