// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Handshake Phases

// Phase is the current step of one user's login handshake.
// Exactly one phase is active at a time.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingPhoneNumber
	PhaseAwaitingCode
	PhaseAwaitingSecondFactor
	PhaseAuthorized
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingPhoneNumber:
		return "awaiting_phone_number"
	case PhaseAwaitingCode:
		return "awaiting_code"
	case PhaseAwaitingSecondFactor:
		return "awaiting_second_factor"
	case PhaseAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// IsAwaiting reports whether the phase waits for user input.
func (p Phase) IsAwaiting() bool {
	return p == PhaseAwaitingPhoneNumber || p == PhaseAwaitingCode || p == PhaseAwaitingSecondFactor
}

// transitions lists, for each phase, the phases it may move to.
// Staying in the same phase is always allowed and is not listed.
var transitions = map[Phase]map[Phase]struct{}{
	PhaseIdle: {
		PhaseAwaitingPhoneNumber: {},
		PhaseAuthorized:          {},
	},
	PhaseAwaitingPhoneNumber: {
		PhaseAwaitingCode: {},
		PhaseAuthorized:   {},
		PhaseIdle:         {},
	},
	PhaseAwaitingCode: {
		PhaseAuthorized:           {},
		PhaseAwaitingSecondFactor: {},
		PhaseAwaitingPhoneNumber:  {},
		PhaseIdle:                 {},
	},
	PhaseAwaitingSecondFactor: {
		PhaseAuthorized:          {},
		PhaseAwaitingPhoneNumber: {},
		PhaseIdle:                {},
	},
	PhaseAuthorized: {
		PhaseAwaitingPhoneNumber: {},
		PhaseIdle:                {},
	},
}

func canTransition(from, to Phase) bool {
	if from == to {
		return true
	}
	if allowed, ok := transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}
