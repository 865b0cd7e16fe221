package services

import (
	"context"
	"errors"
	"math"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// HotnessFunc scores a project for the "hottest" ordering.
type HotnessFunc func(p *models.Project) float64

var hotnessEpoch = time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC)

// Hotness weighs engagement logarithmically and adds one point per 12.5
// hours of age, so fresh projects outrank older ones with similar activity.
// Volunteers count double; comments count half.
func Hotness(p *models.Project) float64 {
	points := float64(p.RatingsCount) + 2*float64(p.VolunteersCount) + 0.5*float64(p.CommentsCount)
	order := math.Log10(math.Max(points, 1))
	seconds := float64(p.CreatedAt.Unix() - hotnessEpoch.Unix())
	return round(order+seconds/45000, 7)
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

const hotnessLockName = "hotness"

// HotnessScheduler rescores all projects on a cron schedule. When several
// instances share a database, a SchedulerLock row per tick lets only one of
// them do the work.
type HotnessScheduler struct {
	db         *gorm.DB
	projects   *ProjectService
	instanceID string
	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.Mutex
}

func NewHotnessScheduler(db *gorm.DB, projects *ProjectService) *HotnessScheduler {
	host, _ := os.Hostname()
	return &HotnessScheduler{
		db:         db,
		projects:   projects,
		instanceID: host + "-" + strconv.Itoa(os.Getpid()),
	}
}

// Start schedules RunOnce with a standard 5-field cron expression.
func (s *HotnessScheduler) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}
	c := cron.New()
	id, err := c.AddFunc(spec, func() {
		tick := time.Now().UTC().Truncate(time.Minute)
		if _, err := s.RunOnce(context.Background(), tick); err != nil {
			logger.Errorf("[Hotness] run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron = c
	s.entryID = id
	c.Start()
	logger.Infof("[Hotness] Scheduler started (cron: %s)", spec)
	return nil
}

func (s *HotnessScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron = nil
	logger.Infof("[Hotness] Scheduler stopped")
}

// RunOnce rescores every organization's projects for the given tick. It
// returns the number of projects updated, or 0 when another instance holds
// the tick.
func (s *HotnessScheduler) RunOnce(ctx context.Context, tick time.Time) (int, error) {
	ok, err := s.acquire(ctx, tick)
	if err != nil {
		return 0, err
	}
	if !ok {
		logger.Debug().Time("tick", tick).Msg("[Hotness] tick claimed by another instance")
		return 0, nil
	}

	var orgIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.Organization{}).Order("id").Pluck("id", &orgIDs).Error; err != nil {
		return 0, err
	}

	total := 0
	for _, orgID := range orgIDs {
		n, err := s.projects.RecalculateAll(ctx, orgID)
		total += n
		if err != nil {
			logger.Error().Err(err).Uint("organization_id", orgID).Msg("[Hotness] recalculation failed")
			continue
		}
	}
	logger.Info().Int("projects", total).Int("organizations", len(orgIDs)).Msg("[Hotness] recalculated")
	return total, nil
}

func (s *HotnessScheduler) acquire(ctx context.Context, tick time.Time) (bool, error) {
	db := s.db.WithContext(ctx)
	now := time.Now().UTC()

	if err := db.Where("lock_name = ? AND expires_at < ?", hotnessLockName, now).
		Delete(&models.SchedulerLock{}).Error; err != nil {
		logger.Warnf("[Hotness] failed to clean expired locks: %v", err)
	}

	lock := models.SchedulerLock{
		LockName:  hotnessLockName,
		LockKey:   tick.UTC().Format(time.RFC3339),
		LockedBy:  s.instanceID,
		LockedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(&lock).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
