package background

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Background tracks long-lived goroutines so the server can wait for
// them during shutdown. Task functions must honor their context.
type Background struct {
	log    logrus.FieldLogger
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func New(log logrus.FieldLogger) *Background {
	ctx, cancel := context.WithCancel(context.Background())
	return &Background{
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run launches fn on a tracked goroutine. A panic in fn is logged and
// absorbed instead of crashing the server.
func (b *Background) Run(name string, fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				b.log.WithFields(logrus.Fields{
					"task":    name,
					"message": rec,
				}).Error("background task panicked")
			}
		}()

		fn(b.ctx)
	}()
}

// Shutdown cancels all tasks and waits for them to return, giving up
// when ctx expires.
func (b *Background) Shutdown(ctx context.Context) error {
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
