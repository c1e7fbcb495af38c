package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Freeeeeet/mentorbook/internal/model"
	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

// Dispatcher принимает события переходов и рассылает уведомления пулом воркеров.
// Publish никогда не блокирует вызывающего: при переполненной очереди событие теряется.
type Dispatcher struct {
	queue     chan model.TransitionEvent
	workers   int
	directory *Directory
	sender    Sender
	logger    *zap.Logger

	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	failed  atomic.Int64
}

func NewDispatcher(directory *Directory, sender Sender, workers, queueSize int, logger *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		queue:     make(chan model.TransitionEvent, queueSize),
		workers:   workers,
		directory: directory,
		sender:    sender,
		logger:    logger,
	}
}

// Start запускает воркеров. ctx используется для отправки уведомлений.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting notification workers",
		zap.Int("workers", d.workers),
		zap.Int("queue_size", cap(d.queue)),
		zap.String("sender", d.sender.Name()),
	)

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Publish ставит событие в очередь без ожидания
func (d *Dispatcher) Publish(_ context.Context, event model.TransitionEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher stopped")
		return
	}

	select {
	case d.queue <- event:
	default:
		d.drop(event, "queue full")
	}
}

// Shutdown закрывает очередь и ждёт, пока воркеры разберут оставшиеся события
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("Notification workers stopped",
		zap.Int64("dropped", d.dropped.Load()),
		zap.Int64("failed", d.failed.Load()),
	)
}

// Dropped возвращает число событий, не попавших в очередь
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Failed возвращает число уведомлений, которые не удалось собрать или отправить
func (d *Dispatcher) Failed() int64 {
	return d.failed.Load()
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()

	for event := range d.queue {
		d.handle(ctx, id, event)
	}
}

func (d *Dispatcher) handle(ctx context.Context, workerID int, event model.TransitionEvent) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	notice, err := d.directory.Build(ctx, event)
	if err != nil {
		d.failed.Add(1)
		d.logger.Error("Failed to build notice",
			zap.Int("worker", workerID),
			zap.String("event_id", event.ID.String()),
			zap.Int64("booking_id", event.BookingID),
			zap.Error(err),
		)
		return
	}

	if err := d.sender.Send(ctx, notice); err != nil {
		d.failed.Add(1)
		d.logger.Error("Failed to send notice",
			zap.Int("worker", workerID),
			zap.String("sender", d.sender.Name()),
			zap.Int64("booking_id", notice.BookingID),
			zap.Int64("recipient_id", notice.RecipientID),
			zap.String("template", notice.TemplateKey),
			zap.Error(err),
		)
		return
	}

	d.logger.Debug("Notice sent",
		zap.Int("worker", workerID),
		zap.Int64("booking_id", notice.BookingID),
		zap.Int64("recipient_id", notice.RecipientID),
		zap.String("template", notice.TemplateKey),
	)
}

func (d *Dispatcher) drop(event model.TransitionEvent, reason string) {
	d.dropped.Add(1)
	d.logger.Warn("Notification dropped",
		zap.String("reason", reason),
		zap.String("event_id", event.ID.String()),
		zap.Int64("booking_id", event.BookingID),
		zap.String("transition", string(event.Transition)),
	)
}
