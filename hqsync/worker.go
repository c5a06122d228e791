package hqsync

import (
	"context"
	"math"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/gamercodedev-jpg/smartpos-inventory/config"
	"github.com/gamercodedev-jpg/smartpos-inventory/ledger"
)

type retryConfig struct {
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	queueSize   int
}

func getRetryConfig() retryConfig {
	cfg := retryConfig{
		maxAttempts: 10,
		baseBackoff: 5 * time.Second,
		maxBackoff:  10 * time.Minute,
		queueSize:   1024,
	}

	if v := os.Getenv("HQ_SYNC_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.maxAttempts = n
		}
	}
	if v := os.Getenv("HQ_SYNC_BASE_BACKOFF_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.baseBackoff = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("HQ_SYNC_MAX_BACKOFF_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.maxBackoff = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("HQ_SYNC_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.queueSize = n
		}
	}

	return cfg
}

func pushBackoff(attempt int, cfg retryConfig) time.Duration {
	if attempt <= 0 {
		return cfg.baseBackoff
	}
	// base * 2^(attempt-1), capped.
	exp := float64(attempt - 1)
	delay := time.Duration(float64(cfg.baseBackoff) * math.Pow(2, exp))
	if delay > cfg.maxBackoff {
		return cfg.maxBackoff
	}
	return delay
}

// Worker drains queued mirror events to every target. Failed events wait
// out an exponential backoff; events past maxAttempts are parked dead and
// only leave via the periodic sweep or RequeueDead.
type Worker struct {
	targets []Target
	logger  *logrus.Logger
	cfg     retryConfig

	queue chan MirrorEvent
	cron  *cron.Cron

	mu   sync.Mutex
	dead []MirrorEvent

	stop     chan struct{}
	stopOnce sync.Once
	done     sync.WaitGroup
}

func NewWorker(targets []Target, logger *logrus.Logger) *Worker {
	cfg := getRetryConfig()
	return &Worker{
		targets: targets,
		logger:  logger,
		cfg:     cfg,
		queue:   make(chan MirrorEvent, cfg.queueSize),
		cron:    cron.New(),
		stop:    make(chan struct{}),
	}
}

// Enqueue accepts a mirror event without blocking the caller. When the
// queue is full the event is dropped with a warning; head office catches
// up from the next full sweep, not from this stream.
func (w *Worker) Enqueue(event MirrorEvent) {
	select {
	case w.queue <- event:
	default:
		config.LogWarn(w.logger, "hqsync", "Enqueue", "queue full", "dropped event "+event.ID+" ("+event.Kind+")")
	}
}

// Attach subscribes the worker to the ledger's post-commit events.
func (w *Worker) Attach(led *ledger.Service) {
	led.Subscribe(func(ev ledger.Event) {
		w.Enqueue(FromLedgerEvent(ev))
	})
}

func (w *Worker) Start() {
	w.done.Add(1)
	go w.run()

	// every 15 minutes, give parked events another round
	if _, err := w.cron.AddFunc("*/15 * * * *", w.RequeueDead); err != nil {
		config.LogError(w.logger, "hqsync", "Start", "schedule dead sweep", nil, err)
	}
	w.cron.Start()
}

func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		ctx := w.cron.Stop()
		<-ctx.Done()
		close(w.stop)
	})
	w.done.Wait()
}

// RequeueDead puts parked events back on the queue with a fresh attempt
// counter.
func (w *Worker) RequeueDead() {
	w.mu.Lock()
	parked := w.dead
	w.dead = nil
	w.mu.Unlock()

	for _, event := range parked {
		event.Attempts = 0
		w.Enqueue(event)
	}
}

// DeadCount reports how many events are parked.
func (w *Worker) DeadCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dead)
}

func (w *Worker) run() {
	defer w.done.Done()
	for {
		select {
		case <-w.stop:
			return
		case event := <-w.queue:
			w.deliver(event)
		}
	}
}

func (w *Worker) deliver(event MirrorEvent) {
	ctx := context.Background()
	for {
		err := w.pushAll(ctx, event)
		if err == nil {
			return
		}
		event.Attempts++
		if event.Attempts >= w.cfg.maxAttempts {
			config.LogError(w.logger, "hqsync", "deliver", "event parked dead after "+strconv.Itoa(event.Attempts)+" attempts", event.ID, err)
			w.mu.Lock()
			w.dead = append(w.dead, event)
			w.mu.Unlock()
			return
		}
		delay := pushBackoff(event.Attempts, w.cfg)
		select {
		case <-w.stop:
			// park so a restart can pick it up from the sweep
			w.mu.Lock()
			w.dead = append(w.dead, event)
			w.mu.Unlock()
			return
		case <-time.After(delay):
		}
	}
}

func (w *Worker) pushAll(ctx context.Context, event MirrorEvent) error {
	var lastErr error
	for _, target := range w.targets {
		if err := target.Push(ctx, event); err != nil {
			config.LogError(w.logger, "hqsync", "pushAll", "push to "+target.Name(), event.ID, err)
			lastErr = err
		}
	}
	return lastErr
}
