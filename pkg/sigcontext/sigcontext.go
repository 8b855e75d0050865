package sigcontext

import (
	"context"
	"os"
	"os/signal"
	"sync"
)

// WithSignalCancel derives a context that cancels itself when one of the
// given signals is delivered to the process. The returned cancel releases
// the signal handlers and must be called; once released, a repeated signal
// (a second ^C for instance) falls back to the runtime's default handling
// and terminates the process.
func WithSignalCancel(ctx context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	sigctx, ctxcancel := context.WithCancel(ctx)

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, sigs...)

	var once sync.Once
	cancel := func() {
		ctxcancel()
		once.Do(func() {
			signal.Stop(sigchan)
			close(sigchan)
		})
	}

	go func() {
		for {
			select {
			case <-sigctx.Done():
				ctxcancel()
				return
			case _, ok := <-sigchan:
				if !ok {
					continue
				}
				ctxcancel()
			}
		}
	}()

	return sigctx, cancel
}

// OnSignal invokes fn each time one of the given signals arrives, until the
// context is done. Used for advisory runtime controls (eg. SIGUSR1 forcing
// an immediate update check) that should not tear the process down.
func OnSignal(ctx context.Context, fn func(os.Signal), sigs ...os.Signal) {
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, sigs...)

	go func() {
		defer signal.Stop(sigchan)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-sigchan:
				if !ok {
					return
				}
				fn(sig)
			}
		}
	}()
}
