package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

// Publisher delivers one notification to the external notification service
type Publisher interface {
	Publish(ctx context.Context, recipientID uuid.UUID, message string, metadata map[string]interface{}) error
}

// Notifier accepts notifications without making the caller wait for delivery
type Notifier interface {
	Dispatch(recipientID uuid.UUID, message string, metadata map[string]interface{})
}

type notification struct {
	recipientID uuid.UUID
	message     string
	metadata    map[string]interface{}
}

// NotificationDispatcher queues notifications and publishes them from a
// background worker. A full queue drops the notification; failures are only
// logged and never reach the caller.
type NotificationDispatcher struct {
	publisher Publisher
	log       *logrus.Logger
	queue     chan notification

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

func NewNotificationDispatcher(publisher Publisher, log *logrus.Logger, queueSize int) *NotificationDispatcher {
	if queueSize <= 0 {
		queueSize = 100
	}
	d := &NotificationDispatcher{
		publisher: publisher,
		log:       log,
		queue:     make(chan notification, queueSize),
		stopChan:  make(chan struct{}),
	}

	d.wg.Add(1)
	go d.worker()

	return d
}

// Dispatch never blocks
func (d *NotificationDispatcher) Dispatch(recipientID uuid.UUID, message string, metadata map[string]interface{}) {
	if d.stopped.Load() {
		d.log.Warnf("Notification dispatcher stopped, dropping notification for %s", recipientID)
		return
	}

	select {
	case d.queue <- notification{recipientID: recipientID, message: message, metadata: metadata}:
	default:
		d.log.Warnf("Notification queue full, dropping notification for %s", recipientID)
	}
}

// Stop drains what is already queued and waits for the worker.
// Safe to call multiple times.
func (d *NotificationDispatcher) Stop() {
	if d.stopped.CompareAndSwap(false, true) {
		close(d.stopChan)
		d.wg.Wait()
		d.log.Info("NotificationDispatcher stopped")
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.queue:
			d.publish(n)
		case <-d.stopChan:
			for {
				select {
				case n := <-d.queue:
					d.publish(n)
				default:
					return
				}
			}
		}
	}
}

func (d *NotificationDispatcher) publish(n notification) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, n.recipientID, n.message, n.metadata); err != nil {
		d.log.Warnf("Failed to publish notification for %s: %+v", n.recipientID, err)
		return
	}
	d.log.Debugf("Published notification for %s", n.recipientID)
}
