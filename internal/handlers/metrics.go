package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/internal/services"
	"gorm.io/gorm"
)

var startTime = time.Now()

// MetricsHandler renders Prometheus text-format gauges.
type MetricsHandler struct {
	db    *gorm.DB
	queue services.TaskQueue
}

func NewMetricsHandler(db *gorm.DB, queue services.TaskQueue) *MetricsHandler {
	return &MetricsHandler{db: db, queue: queue}
}

// Metrics returns runtime, database and domain gauges
// GET /metrics
func (h *MetricsHandler) Metrics(c *gin.Context) {
	var b strings.Builder

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "hackfest_uptime_seconds", "Time since server start in seconds", time.Since(startTime).Seconds())
	writeGauge(&b, "hackfest_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "hackfest_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))

	if sqlDB, err := h.db.DB(); err == nil {
		stats := sqlDB.Stats()
		writeGauge(&b, "hackfest_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
		writeGauge(&b, "hackfest_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
	}

	queueAsync := 0.0
	if h.queue != nil && h.queue.IsAsync() {
		queueAsync = 1.0
	}
	writeGauge(&b, "hackfest_queue_async_enabled", "Whether the Redis notification queue is enabled (1=yes, 0=no)", queueAsync)

	db := h.db.WithContext(c.Request.Context())
	counts := []struct {
		name, help string
		model      interface{}
		where      string
	}{
		{"hackfest_organizations_total", "Number of organizations", &models.Organization{}, ""},
		{"hackfest_users_total", "Number of users", &models.User{}, ""},
		{"hackfest_projects_total", "Number of projects", &models.Project{}, ""},
		{"hackfest_projects_backlog", "Number of projects without an event", &models.Project{}, "event_id IS NULL"},
		{"hackfest_votes_total", "Number of project likes", &models.ProjectRating{}, ""},
		{"hackfest_volunteers_total", "Number of project volunteers", &models.ProjectVolunteer{}, ""},
	}
	for _, cnt := range counts {
		var n int64
		q := db.Model(cnt.model)
		if cnt.where != "" {
			q = q.Where(cnt.where)
		}
		if err := q.Count(&n).Error; err != nil {
			continue
		}
		writeGauge(&b, cnt.name, cnt.help, float64(n))
	}

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
