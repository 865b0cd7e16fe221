package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/internal/tenant"
	"github.com/huangang/hackfest/pkg/logger"
	"gorm.io/gorm"
)

// Notification kinds carried on tasks.
const (
	NotificationProjectSubmitted = "project_submitted"
	NotificationProjectLiked     = "project_liked"
)

// Notifier accepts a message for an organization's chat channel. Delivery
// is best effort: failures are logged and never surface to the caller.
type Notifier interface {
	Notify(ctx context.Context, orgID uint, kind, text string)
}

// NopNotifier drops every message.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, uint, string, string) {}

// QueueNotifier hands messages to a TaskQueue. The organization id travels
// inside the task, so the worker never depends on request state.
type QueueNotifier struct {
	queue TaskQueue
}

func NewQueueNotifier(queue TaskQueue) *QueueNotifier {
	return &QueueNotifier{queue: queue}
}

func (n *QueueNotifier) Notify(ctx context.Context, orgID uint, kind, text string) {
	task := &NotificationTask{OrganizationID: orgID, Kind: kind, Text: text}
	if err := n.queue.Enqueue(ctx, task); err != nil {
		logger.Warn().Err(err).Uint("organization_id", orgID).Str("kind", kind).
			Msg("[Notification] failed to enqueue")
	}
}

// NotificationService delivers queued messages to Slack incoming webhooks.
type NotificationService struct {
	db     *gorm.DB
	client *http.Client
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db, client: &http.Client{Timeout: 10 * time.Second}}
}

type slackPayload struct {
	Text string `json:"text"`
}

// Deliver posts task.Text to the organization's Slack webhook. Organizations
// without a webhook are skipped silently.
func (s *NotificationService) Deliver(ctx context.Context, task *NotificationTask) error {
	if task.OrganizationID == 0 {
		return tenant.ErrNoTenant
	}

	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, task.OrganizationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn().Uint("organization_id", task.OrganizationID).
				Msg("[Notification] organization gone, dropping message")
			return nil
		}
		return err
	}

	if org.SlackWebhookURL == "" {
		logger.Debug().Uint("organization_id", org.ID).Msg("[Notification] no slack webhook configured")
		return nil
	}

	if err := postJSON(ctx, s.client, org.SlackWebhookURL, slackPayload{Text: task.Text}); err != nil {
		logger.Error().Err(err).Uint("organization_id", org.ID).Str("kind", task.Kind).
			Msg("[Notification] slack delivery failed")
		return err
	}

	logger.Info().Uint("organization_id", org.ID).Str("kind", task.Kind).Msg("[Notification] sent")
	return nil
}

func postJSON(ctx context.Context, client *http.Client, webhookURL string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
