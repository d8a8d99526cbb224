// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdb

// State packs a block's confirmation status and validation status
// into one byte, following block_database.cpp's update_validation_state
// and update_confirmation_state: the low bits track confirmation
// (missing/candidate/confirmed), the high bits track validation
// (pending/valid/failed). The exact bit positions are this module's
// own choice — the original's block_state.hpp enum values were not
// part of the retrieved source, only its call sites were — but the
// state machine it implements (validate xor fail; at most one of
// candidate/confirmed) is lifted directly from those call sites.
// Promotion does not look at the validation bits: a failed block can
// still be made a candidate.
type State uint8

const (
	stateCandidateBit State = 1 << iota
	stateConfirmedBit
	stateValidBit
	stateFailedBit
)

const (
	confirmationMask = stateCandidateBit | stateConfirmedBit
	validationMask   = stateValidBit | stateFailedBit
)

func (s State) IsCandidate() bool { return s&stateCandidateBit != 0 }
func (s State) IsConfirmed() bool { return s&stateConfirmedBit != 0 }
func (s State) IsValid() bool     { return s&stateValidBit != 0 }
func (s State) IsFailed() bool    { return s&stateFailedBit != 0 }

func (s State) String() string {
	confirmation := "pooled"
	switch {
	case s.IsConfirmed():
		confirmation = "confirmed"
	case s.IsCandidate():
		confirmation = "candidate"
	}
	validation := "pending"
	switch {
	case s.IsValid():
		validation = "valid"
	case s.IsFailed():
		validation = "failed"
	}
	return confirmation + "/" + validation
}

// updateConfirmationState merges a candidate/confirmed transition into
// original, preserving its validation bits. positive selects
// confirm/candidate vs. unconfirm/uncandidate.
func updateConfirmationState(original State, positive, candidate bool) State {
	validationState := original & validationMask

	positiveState := stateConfirmedBit
	if candidate {
		positiveState = stateCandidateBit
	}

	confirmationState := State(0)
	if positive {
		confirmationState = positiveState
	}

	return confirmationState | validationState
}

// updateValidationState merges a valid/failed transition into
// original, preserving its confirmation bits.
func updateValidationState(original State, positive bool) State {
	confirmationState := original & confirmationMask

	validationState := stateFailedBit
	if positive {
		validationState = stateValidBit
	}

	return confirmationState | validationState
}
