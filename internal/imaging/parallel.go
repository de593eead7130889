package imaging

import (
	"runtime"
	"sync"
)

// workerPool runs submitted jobs on a fixed number of goroutines. With a
// single worker jobs run inline on the caller's goroutine.
type workerPool struct {
	wg     sync.WaitGroup
	work   chan func()
	inline bool
	close  func()
}

func startPool(numWorkers int) *workerPool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &workerPool{inline: numWorkers == 1, close: func() {}}
	if p.inline {
		return p
	}

	p.work = make(chan func(), numWorkers)
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for f := range p.work {
				f()
			}
		}()
	}
	p.close = sync.OnceFunc(func() { close(p.work) })
	return p
}

// Do schedules f. It blocks while all workers are busy and the queue is full.
func (p *workerPool) Do(f func()) {
	if p.inline {
		f()
		return
	}
	p.work <- f
}

// Wait stops accepting work and blocks until every scheduled job has finished.
func (p *workerPool) Wait() {
	p.close()
	p.wg.Wait()
}

// forEachBand calls fn for every band index in [0, bands) using up to
// GOMAXPROCS workers. fn must only touch pixels owned by its band.
func forEachBand(bands int, fn func(band int)) {
	pool := startPool(min(bands, runtime.GOMAXPROCS(0)))
	for band := 0; band < bands; band++ {
		band := band // per-iteration copy (go 1.22 loopvar semantics under go 1.21)
		pool.Do(func() { fn(band) })
	}
	pool.Wait()
}
