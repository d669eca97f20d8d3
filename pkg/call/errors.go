package call

import "errors"

var (
	// ErrInvalidPeer marks a descriptor that fails validation before any
	// external call is made.
	ErrInvalidPeer = errors.New("invalid peer descriptor")

	// ErrChannelMismatch marks a credential issued for a different channel
	// than the one requested. Joining with it would cross-talk into a
	// stranger's channel, so the attempt is aborted.
	ErrChannelMismatch = errors.New("credential channel does not match requested channel")

	// ErrStaleInvite marks an inbound invite older than the pending-call
	// cutoff; the caller has long since given up.
	ErrStaleInvite = errors.New("invite is too old to answer")

	// ErrInvalidInvite marks an inbound invite without a channel.
	ErrInvalidInvite = errors.New("invite is missing a channel id")

	// ErrAnswerFailed is returned when answering an invite did not reach an
	// active call.
	ErrAnswerFailed = errors.New("could not join the inviting channel")
)
