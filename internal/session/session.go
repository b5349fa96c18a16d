// Package session holds the authenticated user context and its storage.
package session

import (
	"context"
	"sync"
)

// Profile is the user identity shown by the client.
type Profile struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

type Session struct {
	Token         string  `json:"-"`
	UserID        string  `json:"user_id"`
	Authenticated bool    `json:"authenticated"`
	Profile       Profile `json:"profile"`
}

// Valid reports whether the session identifies a signed-in user.
func (s Session) Valid() bool {
	return s.Authenticated && s.UserID != ""
}

type contextKey struct{}

// ContextWithSession attaches s to ctx.
func ContextWithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}

// Listener is called after every session transition.
type Listener func(ctx context.Context, s Session)

// Provider tracks the current session of one client and broadcasts changes.
type Provider struct {
	mu        sync.RWMutex
	current   Session
	nextID    int
	listeners map[int]Listener
}

func NewProvider() *Provider {
	return &Provider{listeners: map[int]Listener{}}
}

// Current returns the active session; the zero value means signed out.
func (p *Provider) Current() Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Login replaces the current session and notifies listeners.
func (p *Provider) Login(ctx context.Context, s Session) {
	s.Authenticated = s.UserID != ""
	if s.Profile.UserID == "" {
		s.Profile.UserID = s.UserID
	}
	p.set(ctx, s)
}

// Logout clears the session and notifies listeners.
func (p *Provider) Logout(ctx context.Context) {
	p.set(ctx, Session{})
}

// Subscribe registers l and returns a function that removes it.
func (p *Provider) Subscribe(l Listener) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

func (p *Provider) set(ctx context.Context, s Session) {
	p.mu.Lock()
	p.current = s
	ls := make([]Listener, 0, len(p.listeners))
	for i := 0; i < p.nextID; i++ {
		if l, ok := p.listeners[i]; ok {
			ls = append(ls, l)
		}
	}
	p.mu.Unlock()

	// listeners run outside the lock so they may call Current
	for _, l := range ls {
		l(ctx, s)
	}
}
