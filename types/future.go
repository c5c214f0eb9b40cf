/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"context"
	"sync"
)

// Future is the pending result of a single asynchronous load.
//
// The load function runs on its own goroutine. The optional settle function
// runs exactly once, on the goroutine that first observes completion through
// Wait, so it may touch state that is not safe for concurrent use.
type Future[T any] struct {
	done   chan struct{}
	val    T
	err    error
	settle func(T, error) (T, error)
	once   sync.Once
}

// Async starts load on a new goroutine and returns its Future.
func Async[T any](load func() (T, error), settle func(T, error) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), settle: settle}
	go func() {
		defer close(f.done)
		f.val, f.err = load()
	}()
	return f
}

// Completed returns a Future that is already resolved with val and err.
func Completed[T any](val T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: val, err: err}
	close(f.done)
	return f
}

// Done is closed once the load has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the load finishes or ctx is done. A cancelled Wait leaves
// the Future intact; it can be waited on again.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-f.done:
	}
	f.once.Do(func() {
		if f.settle != nil {
			f.val, f.err = f.settle(f.val, f.err)
		}
	})
	return f.val, f.err
}
