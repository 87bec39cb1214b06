package services

import (
	"context"
	"sync"
	"time"

	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/notification"
	"offScreenAPI/internal/store"
	"offScreenAPI/internal/types/participant"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []participant.DeviceToken, title, body string, data map[string]string) error
}

const (
	defaultDispatchWorkers = 5
	dispatchQueueSize      = 100
	dispatchEnqueueTimeout = 2 * time.Second
	dispatchSendTimeout    = 10 * time.Second
)

// NotificationDispatcher pushes outcome messages from a bounded queue with
// a fixed pool of workers.
type NotificationDispatcher struct {
	devices      store.Devices
	pushProvider PushNotificationProvider
	log          *logger.Logger
	workers      int
	jobQueue     chan *notification.Message
	stopChan     chan struct{}
	stopOnce     sync.Once
	startOnce    sync.Once
	wg           sync.WaitGroup
}

func NewNotificationDispatcher(devices store.Devices, log *logger.Logger, workers int) *NotificationDispatcher {
	if workers <= 0 {
		workers = defaultDispatchWorkers
	}
	log = log.With("service", "NotificationDispatcher")
	return &NotificationDispatcher{
		devices:      devices,
		pushProvider: &LogPushProvider{log: log},
		log:          log,
		workers:      workers,
		jobQueue:     make(chan *notification.Message, dispatchQueueSize),
		stopChan:     make(chan struct{}),
	}
}

// SetPushProvider swaps the log-only provider for a real one. Call before
// Start.
func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.pushProvider = provider
}

func (d *NotificationDispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}
	})
}

// Run starts the workers and stops them when ctx is done.
func (d *NotificationDispatcher) Run(ctx context.Context) error {
	d.Start()
	<-ctx.Done()
	d.Stop()
	return nil
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processJob(msg *notification.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchSendTimeout)
	defer cancel()

	tokens, err := d.devices.DeviceTokens(ctx, msg.Recipients)
	if err != nil {
		d.log.Warn("failed to load device tokens", "kind", msg.Kind, "error", err)
		return
	}
	if len(tokens) == 0 {
		d.log.Debug("skipping push without devices", "kind", msg.Kind, "recipients", len(msg.Recipients))
		return
	}
	if err := d.pushProvider.SendPush(ctx, tokens, msg.Title, msg.Body, msg.Data); err != nil {
		d.log.Warn("push failed", "kind", msg.Kind, "error", err)
	}
}

// Notify queues msg. A full queue drops the message after a short wait.
func (d *NotificationDispatcher) Notify(ctx context.Context, msg notification.Message) {
	if len(msg.Recipients) == 0 {
		return
	}
	timer := time.NewTimer(dispatchEnqueueTimeout)
	defer timer.Stop()

	select {
	case d.jobQueue <- &msg:
	case <-d.stopChan:
		d.log.Debug("dispatcher stopped, dropping notification", "kind", msg.Kind)
	case <-ctx.Done():
	case <-timer.C:
		d.log.Warn("notification queue full, dropping", "kind", msg.Kind)
	}
}

func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopChan)
		d.wg.Wait()
		d.log.Info("notification dispatcher stopped")
	})
}

// LogPushProvider only logs. It is used when FCM is not configured.
type LogPushProvider struct {
	log *logger.Logger
}

func (m *LogPushProvider) SendPush(ctx context.Context, tokens []participant.DeviceToken, title, body string, data map[string]string) error {
	m.log.Info("push (log only)", "devices", len(tokens), "title", title, "body", body)
	return nil
}
