package domain

import "errors"

var (
	// ErrNoValidMembers means participant resolution yielded nobody to
	// let into the room. With the initiator force-included this only
	// happens when the initiator itself cannot be resolved.
	ErrNoValidMembers = errors.New("no valid members for room")

	// ErrRoomCreationFailed wraps the platform's diagnostic when the
	// room itself could not be created. No partial state exists after
	// this error.
	ErrRoomCreationFailed = errors.New("room creation failed")

	// Vote-kick eligibility errors, rejected before any session starts.
	ErrIneligibleRoom      = errors.New("initiator is not in an ephemeral room")
	ErrVoteInProgress      = errors.New("a vote is already running in this room")
	ErrTargetNotPresent    = errors.New("target is not in the room")
	ErrSelfTargetForbidden = errors.New("cannot start a vote against yourself")
)
