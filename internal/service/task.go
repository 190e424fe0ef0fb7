package service

import (
	"context"
	"time"

	"github.com/errwatch/errwatch-backend/pkg/logger"
)

// RepeatingTask runs a function on a fixed interval with clean shutdown.
// A panicking iteration is recovered and logged; the task keeps running
// and retries on the next tick.
type RepeatingTask struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context)
	stop     chan struct{}
	done     chan struct{}
}

// NewRepeatingTask creates a task; Start must be called to begin ticking
func NewRepeatingTask(name string, interval time.Duration, fn func(ctx context.Context)) *RepeatingTask {
	return &RepeatingTask{
		name:     name,
		interval: interval,
		fn:       fn,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the task loop
func (t *RepeatingTask) Start() {
	go t.loop()
}

func (t *RepeatingTask) loop() {
	defer close(t.done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.runOnce()
		case <-t.stop:
			return
		}
	}
}

func (t *RepeatingTask) runOnce() {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task %s panicked: %v (will retry next tick)", t.name, r)
		}
	}()
	t.fn(context.Background())
}

// Stop signals the loop to exit and waits for the in-flight iteration
// to finish
func (t *RepeatingTask) Stop() {
	close(t.stop)
	<-t.done
}
