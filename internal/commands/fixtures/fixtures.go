// Package fixtures holds recording doubles for the command registration
// hooks exposed by the container.
package fixtures

import (
	"fmt"
	"sync"

	"github.com/goliatone/go-contractor/internal/di"
	command "github.com/goliatone/go-command"
)

// Registry records handlers passed to di.CommandRegistry.
type Registry struct {
	mu       sync.Mutex
	handlers []any
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) RegisterCommand(handler any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, handler)
	return nil
}

// Handlers returns a copy of the recorded handlers in registration order.
func (r *Registry) Handlers() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.handlers...)
}

// CronEntry is one scheduled closure.
type CronEntry struct {
	Expression string
	Run        func() error
}

// Cron records cron registrations and can trigger them on demand.
type Cron struct {
	mu       sync.Mutex
	entries  []CronEntry
	failWith error
}

func NewCron() *Cron {
	return &Cron{}
}

// FailWith makes every later registration return err.
func (c *Cron) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWith = err
}

// Registrar adapts the recorder to di.CronRegistrar. Handlers must be
// func() error closures.
func (c *Cron) Registrar() di.CronRegistrar {
	return func(cfg command.HandlerConfig, handler any) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.failWith != nil {
			return c.failWith
		}
		run, ok := handler.(func() error)
		if !ok {
			return fmt.Errorf("fixtures: cron handler %T is not func() error", handler)
		}
		c.entries = append(c.entries, CronEntry{Expression: cfg.Expression, Run: run})
		return nil
	}
}

func (c *Cron) Entries() []CronEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CronEntry(nil), c.entries...)
}

// Trigger runs every closure registered under expression.
func (c *Cron) Trigger(expression string) error {
	var matched []CronEntry
	for _, entry := range c.Entries() {
		if entry.Expression == expression {
			matched = append(matched, entry)
		}
	}
	if len(matched) == 0 {
		return fmt.Errorf("fixtures: no cron entry for %q", expression)
	}
	for _, entry := range matched {
		if err := entry.Run(); err != nil {
			return err
		}
	}
	return nil
}

// Dispatcher records di.CommandDispatcher subscriptions.
type Dispatcher struct {
	mu       sync.Mutex
	subs     []*Subscription
	failWith error
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// FailWith makes every later subscription attempt return err.
func (d *Dispatcher) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failWith = err
}

func (d *Dispatcher) RegisterCommand(handler any) (di.CommandSubscription, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWith != nil {
		return nil, d.failWith
	}
	sub := &Subscription{Handler: handler}
	d.subs = append(d.subs, sub)
	return sub, nil
}

func (d *Dispatcher) Subscriptions() []*Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Subscription(nil), d.subs...)
}

// Active counts subscriptions that have not been released.
func (d *Dispatcher) Active() int {
	active := 0
	for _, sub := range d.Subscriptions() {
		if !sub.Released() {
			active++
		}
	}
	return active
}

type Subscription struct {
	Handler  any
	mu       sync.Mutex
	released bool
}

func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
}

func (s *Subscription) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
