// Package tasks provides supervised goroutine spawning. A failure or panic
// inside a spawned task is logged and contained; it never unwinds into the
// goroutine that spawned it.
package tasks

import (
	"fmt"
	"sync"

	"dotdns/internal/dns/common/log"
)

// Supervisor spawns fire-and-forget tasks and reports task-local failures.
type Supervisor struct {
	logger log.Logger
	wg     sync.WaitGroup
}

// NewSupervisor creates a Supervisor that reports failures to logger.
func NewSupervisor(logger log.Logger) *Supervisor {
	return &Supervisor{logger: logger}
}

// Go runs fn in its own goroutine. A returned error or a recovered panic is
// logged under the given task name.
func (s *Supervisor) Go(name string, fn func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error(map[string]any{
					"task":  name,
					"panic": fmt.Sprintf("%v", r),
				}, "Task panicked")
			}
		}()

		if err := fn(); err != nil {
			s.logger.Error(map[string]any{
				"task":  name,
				"error": err.Error(),
			}, "Task failed")
		}
	}()
}

// Wait blocks until all spawned tasks have finished.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}
