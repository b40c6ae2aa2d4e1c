// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     session
// Description: Bounded worker pool for pipeline cycles
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package session

import (
	"context"
	"sync"
)

// Pool runs submitted tasks on a fixed set of worker goroutines
type Pool struct {
	tasks chan func(context.Context)
	wg    sync.WaitGroup
	once  sync.Once
}

// NewPool starts workers that run until ctx is cancelled or Close is called
func NewPool(ctx context.Context, workers, queue int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < 1 {
		queue = 1
	}
	p := &Pool{tasks: make(chan func(context.Context), queue)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.work(ctx)
	}
	return p
}

func (p *Pool) work(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Submit queues a task without blocking and reports whether it was accepted
func (p *Pool) Submit(task func(context.Context)) bool {
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Close stops accepting tasks and waits for running ones
func (p *Pool) Close() {
	p.once.Do(func() { close(p.tasks) })
	p.wg.Wait()
}
