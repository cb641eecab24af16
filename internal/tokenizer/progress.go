package tokenizer

import (
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/born-ml/tokenforge/internal/bpe"
)

// NonBlocking wraps observer so that reporting progress never waits for it.
//
// The returned observer only records the latest (done, total) and wakes a delivery goroutine.
// Updates that arrive while observer is still busy are coalesced; the latest one wins. stop
// delivers any pending update, waits for the goroutine and is safe to call more than once.
func NonBlocking(observer bpe.Observer) (notify bpe.Observer, stop func()) {
	if observer == nil {
		return func(int, int) {}, func() {}
	}

	var (
		mu          sync.Mutex
		done, total int
		pending     bool
	)
	wake := make(chan struct{}, 1)
	quit := make(chan struct{})

	deliver := func() {
		mu.Lock()
		d, t, ok := done, total, pending
		pending = false
		mu.Unlock()
		if ok {
			observer(d, t)
		}
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		for {
			select {
			case <-wake:
				deliver()
			case <-quit:
				deliver()
				return
			}
		}
	})

	notify = func(d, t int) {
		mu.Lock()
		done, total, pending = d, t, true
		mu.Unlock()
		select {
		case wake <- struct{}{}:
		default:
		}
	}

	var once sync.Once
	stop = func() {
		once.Do(func() {
			close(quit)
			wg.Wait()
		})
	}
	return notify, stop
}
