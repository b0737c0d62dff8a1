// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the account-linking core of News Wizard.

A chat user links an external messaging account through a phone number, login
code and optional second-factor handshake. This package holds the per-user state
of that handshake, the concurrent store shared by the message path and the digest
scheduler, and the controller deciding each step.

Architecture:

  - Machine: One handshake per user, a single [Phase] guarded by a transition table.
  - Controller: Maps (phase, inbound text) to a provider call, a new phase and a reply.
  - Store: user id -> (Entry, Preferences), two tables locked state-then-preferences.
  - BlobStorage: Durable session blobs (file, Redis or PostgreSQL), optionally sealed.
*/
package auth

import (
	"time"

	"github.com/taibuivan/newswizard/internal/platform/apperr"
)

// # State Machine

// Machine captures where one user's handshake stands and the transient data
// collected so far.
//
// The transient fields follow the phase: a login token exists only while
// awaiting the code, a password challenge only while awaiting the second factor.
// All mutation goes through the transition methods below, never field writes.
type Machine struct {
	phase       Phase
	phoneNumber string
	loginToken  LoginToken
	code        string
	challenge   *PasswordChallenge
	session     CredentialSession
	updatedAt   time.Time
	now         func() time.Time
}

// Snapshot is a read-only copy of a machine for logging and inspection.
type Snapshot struct {
	Phase        Phase
	PhoneNumber  string
	Code         string
	HasToken     bool
	HasChallenge bool
	Hint         string
	HasSession   bool
	UpdatedAt    time.Time
}

// NewMachine returns a machine in [PhaseIdle].
func NewMachine() *Machine {
	return &Machine{phase: PhaseIdle, now: time.Now}
}

// Phase returns the active phase.
func (m *Machine) Phase() Phase { return m.phase }

// Session returns the credential session owned by the machine, or nil.
func (m *Machine) Session() CredentialSession { return m.session }

// Snapshot copies the observable state.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		Phase:       m.phase,
		PhoneNumber: m.phoneNumber,
		Code:        m.code,
		HasToken:    m.loginToken != nil,
		HasSession:  m.session != nil,
		UpdatedAt:   m.updatedAt,
	}
	if m.challenge != nil {
		s.HasChallenge = true
		s.Hint = m.challenge.Hint
	}
	return s
}

// attach hands ownership of a session to the machine.
func (m *Machine) attach(session CredentialSession) {
	m.session = session
}

// detach gives up a dead session. Any handshake in progress was bound to it.
func (m *Machine) detach() CredentialSession {
	session := m.session
	m.session = nil
	m.abort()
	return session
}

// # Transitions

func (m *Machine) transition(to Phase) error {
	if !canTransition(m.phase, to) {
		return apperr.InvalidTransition(m.phase.String(), to.String())
	}
	m.phase = to
	m.updatedAt = m.now()
	return nil
}

func (m *Machine) clearTransient() {
	m.loginToken = nil
	m.code = ""
	m.challenge = nil
}

// awaitPhoneNumber starts (or restarts) a handshake.
func (m *Machine) awaitPhoneNumber() error {
	if err := m.transition(PhaseAwaitingPhoneNumber); err != nil {
		return err
	}
	m.clearTransient()
	return nil
}

// awaitCode records the phone number and the token of the requested code.
func (m *Machine) awaitCode(phone string, token LoginToken) error {
	if err := m.transition(PhaseAwaitingCode); err != nil {
		return err
	}
	m.phoneNumber = phone
	m.loginToken = token
	return nil
}

// awaitSecondFactor drops the spent login token and keeps the challenge.
func (m *Machine) awaitSecondFactor(code string, challenge PasswordChallenge) error {
	if err := m.transition(PhaseAwaitingSecondFactor); err != nil {
		return err
	}
	m.code = code
	m.loginToken = nil
	m.challenge = &challenge
	return nil
}

// authorize ends the handshake successfully.
func (m *Machine) authorize() error {
	if err := m.transition(PhaseAuthorized); err != nil {
		return err
	}
	m.clearTransient()
	return nil
}

// abort ends the handshake without authorization. The user restarts from Idle.
func (m *Machine) abort() {
	// Every phase may return to Idle.
	_ = m.transition(PhaseIdle)
	m.clearTransient()
}
