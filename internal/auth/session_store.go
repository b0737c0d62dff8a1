// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"sync"

	"golang.org/x/text/language"
)

// # Preferences

// Preferences is the per-user settings record kept beside the machine.
type Preferences struct {
	// Language is resolved once, at first contact, and cached.
	Language language.Tag
	resolved bool
}

// LanguageResolver maps a raw client language code onto a supported tag.
type LanguageResolver func(code string) language.Tag

// # Entries

// Job is the handle of a recurring task registered for a user.
type Job interface {
	ID() string
	Stop()
}

// Entry is one user's slot in the [Store].
//
// The machine and its session may only be touched between [Entry.Acquire] and
// [Entry.Release]. This serialises a user's handshake steps, digest runs and
// scheduled firings without blocking other users.
type Entry struct {
	userID  int64
	sem     chan struct{}
	machine *Machine

	jobsMu sync.Mutex
	jobs   []Job
}

func newEntry(userID int64) *Entry {
	return &Entry{
		userID:  userID,
		sem:     make(chan struct{}, 1),
		machine: NewMachine(),
	}
}

// UserID returns the identity the entry belongs to.
func (e *Entry) UserID() int64 { return e.userID }

// Acquire takes exclusive ownership of the entry, waiting until the current
// owner releases it or ctx is done.
func (e *Entry) Acquire(ctx context.Context) error {
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes ownership only when the entry is free.
func (e *Entry) TryAcquire() bool {
	select {
	case e.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release gives up ownership taken by [Entry.Acquire].
func (e *Entry) Release() {
	<-e.sem
}

// Machine returns the user's handshake. Callers must hold the entry.
func (e *Entry) Machine() *Machine { return e.machine }

// AddJob records a recurring job started for the user.
// Jobs stack: adding a second job does not stop the first.
func (e *Entry) AddJob(job Job) {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	e.jobs = append(e.jobs, job)
}

// Jobs returns the recurring jobs registered for the user.
func (e *Entry) Jobs() []Job {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	out := make([]Job, len(e.jobs))
	copy(out, e.jobs)
	return out
}

// # Store

// Store maps user identity to (Entry, Preferences).
//
// # Lock Order
//
// The state table and the preferences table each have their own mutex. Any
// operation needing both acquires the state table first, then preferences.
// Neither mutex is held across a call that can block on the network; waiting
// for a user happens on the entry semaphore, outside the tables.
type Store struct {
	stateMu sync.Mutex
	states  map[int64]*Entry

	prefsMu sync.Mutex
	prefs   map[int64]*Preferences

	resolve LanguageResolver
}

// NewStore creates an empty store. A nil resolver uses [language.Make].
func NewStore(resolve LanguageResolver) *Store {
	if resolve == nil {
		resolve = func(code string) language.Tag { return language.Make(code) }
	}
	return &Store{
		states:  make(map[int64]*Entry),
		prefs:   make(map[int64]*Preferences),
		resolve: resolve,
	}
}

// lockTables takes both table locks in the fixed order and returns the unlock func.
func (s *Store) lockTables() func() {
	s.stateMu.Lock()
	s.prefsMu.Lock()
	return func() {
		s.prefsMu.Unlock()
		s.stateMu.Unlock()
	}
}

// GetOrCreate returns the user's entry and preferences, inserting defaults on
// first access. The language hint is resolved only once per user; later hints
// are ignored.
func (s *Store) GetOrCreate(userID int64, languageHint string) (*Entry, Preferences) {
	unlock := s.lockTables()
	defer unlock()

	entry, ok := s.states[userID]
	if !ok {
		entry = newEntry(userID)
		s.states[userID] = entry
	}

	prefs, ok := s.prefs[userID]
	if !ok {
		prefs = &Preferences{}
		s.prefs[userID] = prefs
	}
	if !prefs.resolved {
		prefs.Language = s.resolve(languageHint)
		prefs.resolved = true
	}

	return entry, *prefs
}

// Lookup returns an existing entry and its preferences without inserting.
func (s *Store) Lookup(userID int64) (*Entry, Preferences, bool) {
	unlock := s.lockTables()
	defer unlock()

	entry, ok := s.states[userID]
	if !ok {
		return nil, Preferences{}, false
	}

	var prefs Preferences
	if p, found := s.prefs[userID]; found {
		prefs = *p
	}
	return entry, prefs, true
}

// Preferences returns the cached preferences of a user, zero if unknown.
func (s *Store) Preferences(userID int64) Preferences {
	s.prefsMu.Lock()
	defer s.prefsMu.Unlock()

	if p, ok := s.prefs[userID]; ok {
		return *p
	}
	return Preferences{}
}

// Len returns the number of known users.
func (s *Store) Len() int {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return len(s.states)
}

// Range calls fn for every entry. fn runs outside the table locks.
func (s *Store) Range(fn func(entry *Entry) bool) {
	s.stateMu.Lock()
	entries := make([]*Entry, 0, len(s.states))
	for _, entry := range s.states {
		entries = append(entries, entry)
	}
	s.stateMu.Unlock()

	for _, entry := range entries {
		if !fn(entry) {
			return
		}
	}
}
