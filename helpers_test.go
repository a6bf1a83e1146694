package accounts_test

import (
	"context"
	"sync"

	accounts "github.com/goliatone/go-accounts"
)

type testConfig struct {
	projectsLimit  int
	canCreateGroup bool
	canCreateTeam  bool
	themeID        int
	reservedPaths  []string
}

func (c testConfig) GetDefaultProjectsLimit() int   { return c.projectsLimit }
func (c testConfig) GetDefaultCanCreateGroup() bool { return c.canCreateGroup }
func (c testConfig) GetDefaultCanCreateTeam() bool  { return c.canCreateTeam }
func (c testConfig) GetDefaultThemeID() int         { return c.themeID }
func (c testConfig) GetReservedPaths() []string     { return c.reservedPaths }

type capturingSink struct {
	mu     sync.Mutex
	events []accounts.ActivityEvent
	err    error
}

func (s *capturingSink) Record(_ context.Context, event accounts.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *capturingSink) Events() []accounts.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]accounts.ActivityEvent, len(s.events))
	copy(out, s.events)
	return out
}

type capturingHooks struct {
	mu     sync.Mutex
	events []accounts.HookEvent
	err    error
}

func (h *capturingHooks) Dispatch(_ context.Context, event accounts.HookEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *capturingHooks) Events() []accounts.HookEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]accounts.HookEvent, len(h.events))
	copy(out, h.events)
	return out
}

type silentLogger struct{}

func (silentLogger) Debug(string, ...any) {}
func (silentLogger) Info(string, ...any)  {}
func (silentLogger) Warn(string, ...any)  {}
func (silentLogger) Error(string, ...any) {}
