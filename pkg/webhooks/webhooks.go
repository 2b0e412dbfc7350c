// Package webhooks implements the pluggable notification registry
// referenced by spec.md §2 ("a pluggable notification (webhook) registry
// with per-kind handlers") and the `webhook` rule action (§3, §6). An
// unknown kind is logged and swallowed by the caller, never by this
// package, which only reports whether a handler exists.
package webhooks

import (
	"sync"

	"adsbactions/pkg/flight"
)

// Handler sends one notification of a given kind to recipient, carrying an
// optional free-form message and the triggering Flight for context.
// Implementations (Slack, email, PagerDuty, ...) are external
// collaborators; the core only resolves kind -> Handler and calls it.
type Handler func(recipient, message string, f *flight.Flight) error

// Registry maps a notification kind (e.g. "slack", "email") to its Handler.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register installs the handler for kind, overwriting any previous one.
func (r *Registry) Register(kind string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Dispatch resolves kind and calls its handler. ok is false when kind has
// no registered handler; the caller (rule engine) is responsible for
// logging that case per spec.md §7.
func (r *Registry) Dispatch(kind, recipient, message string, f *flight.Flight) (ok bool, err error) {
	r.mu.RLock()
	h, found := r.handlers[kind]
	r.mu.RUnlock()
	if !found {
		return false, nil
	}
	return true, h(recipient, message, f)
}
