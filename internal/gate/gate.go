package gate

import (
	"context"
	"sync"
)

// Gate serializes tasks that share a key. Tasks for the same key run one at a
// time in the order they reached the gate; tasks for different keys never wait
// on each other.
type Gate struct {
	mu    sync.Mutex
	tails map[string]*turn
}

// turn is one queued task. done is closed once the task has finished (or,
// for a cancelled waiter, once its predecessor has finished). prev is the
// turn it waits on and is cleared on release.
type turn struct {
	done chan struct{}
	prev *turn
}

func New() *Gate {
	return &Gate{tails: make(map[string]*turn)}
}

// Do runs task once every earlier task for key has completed.
// If ctx ends before the task's turn comes up, Do returns ctx.Err() and the
// task is never started.
func (g *Gate) Do(ctx context.Context, key string, task func(ctx context.Context) error) error {
	mine := g.enqueue(key)

	if prev := mine.prev; prev != nil {
		select {
		case <-prev.done:
		case <-ctx.Done():
			// Successors wait on our turn, so hand it on only after prev finishes.
			go func() {
				<-prev.done
				g.release(key, mine)
			}()
			return ctx.Err()
		}
	}

	defer g.release(key, mine)
	return task(ctx)
}

// Exclusive is Do for tasks that produce a value.
func Exclusive[R any](ctx context.Context, g *Gate, key string, task func(ctx context.Context) (R, error)) (R, error) {
	var result R
	err := g.Do(ctx, key, func(ctx context.Context) error {
		var err error
		result, err = task(ctx)
		return err
	})
	return result, err
}

// Pending returns the number of keys that currently have a running or queued task.
func (g *Gate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tails)
}

func (g *Gate) enqueue(key string) *turn {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tails == nil {
		g.tails = make(map[string]*turn)
	}
	mine := &turn{done: make(chan struct{}), prev: g.tails[key]}
	g.tails[key] = mine
	return mine
}

func (g *Gate) release(key string, t *turn) {
	g.mu.Lock()
	defer g.mu.Unlock()

	close(t.done)
	t.prev = nil
	// Prune the key when nobody queued behind us.
	if g.tails[key] == t {
		delete(g.tails, key)
	}
}
