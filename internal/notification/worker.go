package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"rlis-backend/internal/inventory"
	"rlis-backend/internal/logger"
	"rlis-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Job announces one completed facility.
type Job struct {
	EntityID string
	Name     string
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Job
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size*16),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	logger.Debugf(ctx, "notification worker %d started", id)
	for {
		select {
		case job := <-wp.jobs:
			logger.Infof(ctx, "notification worker %d processing facility %s", id, job.EntityID)
			wp.sendNotificationsForFacility(ctx, job)
		case <-ctx.Done():
			logger.Debugf(ctx, "notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a job. It never blocks; when the queue is full the job is
// dropped and logged.
func (wp *WorkerPool) Dispatch(job Job) {
	select {
	case wp.jobs <- job:
	default:
		logger.Warnf(context.Background(), "notification queue full, dropping facility %s", job.EntityID)
	}
}

// Watch dispatches a job whenever a facility of reg becomes complete.
func (wp *WorkerPool) Watch(reg *inventory.Registry) func() {
	return reg.Subscribe(func(ev inventory.Event) {
		if ev.Kind != inventory.EventFacilityCompleted {
			return
		}
		job := Job{EntityID: ev.EntityID}
		if ms := reg.ListByFacility(ev.EntityID); len(ms) > 0 {
			job.Name = ms[0].RegistrantName
		}
		wp.Dispatch(job)
	})
}

func (wp *WorkerPool) sendNotificationsForFacility(ctx context.Context, job Job) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_facility_mapping sfm ON sfm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sfm.watched_facility_entity_id = ?", job.EntityID).
		Find(&subscriptions).Error
	if err != nil {
		logger.Errorf(ctx, "error fetching subscriptions for facility %s: %v", job.EntityID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	logger.Infof(ctx, "sending %d notifications for facility %s", len(subscriptions), job.EntityID)

	label := job.EntityID
	if job.Name != "" {
		label = fmt.Sprintf("%s (%s)", job.Name, job.EntityID)
	}
	message := fmt.Sprintf("All machines at %s are inspected.", label)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		logger.Errorf(ctx, "error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		logger.Infof(ctx, "subscription for endpoint %s is expired, deleting", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			logger.Errorf(ctx, "failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
