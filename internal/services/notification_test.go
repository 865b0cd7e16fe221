package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/internal/tenant"
)

func TestNotificationService_DeliverPostsToSlack(t *testing.T) {
	var (
		mu       sync.Mutex
		received []slackPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		var p slackPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode: %v", err)
		}
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	db := newTestDB(t)
	org := models.Organization{Name: "Acme", Subdomain: "acme", SlackWebhookURL: srv.URL}
	silent := models.Organization{Name: "Quiet", Subdomain: "quiet"}
	db.Create(&org)
	db.Create(&silent)

	svc := NewNotificationService(db)
	ctx := context.Background()

	if err := svc.Deliver(ctx, &NotificationTask{OrganizationID: org.ID, Kind: NotificationProjectLiked, Text: "hello"}); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if err := svc.Deliver(ctx, &NotificationTask{OrganizationID: silent.ID, Text: "dropped"}); err != nil {
		t.Errorf("Deliver() without webhook error = %v", err)
	}
	if err := svc.Deliver(ctx, &NotificationTask{Text: "nowhere"}); !errors.Is(err, tenant.ErrNoTenant) {
		t.Errorf("Deliver() without organization err = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0].Text != "hello" {
		t.Errorf("received = %+v", received)
	}
}

func TestNotificationService_DeliverReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer srv.Close()

	db := newTestDB(t)
	org := models.Organization{Name: "Acme", Subdomain: "acme", SlackWebhookURL: srv.URL}
	db.Create(&org)

	err := NewNotificationService(db).Deliver(context.Background(), &NotificationTask{OrganizationID: org.ID, Text: "x"})
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestQueueNotifier_EnqueuesWithOrganization(t *testing.T) {
	queue := NewSyncQueue()
	done := make(chan *NotificationTask, 1)
	queue.SetProcessor(func(_ context.Context, task *NotificationTask) error {
		done <- task
		return nil
	})

	NewQueueNotifier(queue).Notify(context.Background(), 7, NotificationProjectSubmitted, "msg")

	select {
	case task := <-done:
		if task.OrganizationID != 7 || task.Kind != NotificationProjectSubmitted || task.Text != "msg" {
			t.Errorf("task = %+v", task)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task was not processed")
	}
	queue.Close()
}
