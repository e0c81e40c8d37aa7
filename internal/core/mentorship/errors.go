package mentorship

import "errors"

// メンタリング関連の業務エラーです。
var (
	ErrMentorNotFound    = errors.New("mentor not found")
	ErrMenteeNotFound    = errors.New("mentee not found")
	ErrProgramNotFound   = errors.New("mentorship program profile not found")
	ErrRosterNotFound    = errors.New("roster entry not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrStatusConflict    = errors.New("mentor status changed concurrently")
	ErrInvalidCommitment = errors.New("invalid commitment level")
	ErrInvalidCapacity   = errors.New("capacity must be positive")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrInvalidDuration   = errors.New("duration must be positive")
	ErrInvalidID         = errors.New("invalid id")
	ErrNoRoleSelected    = errors.New("select mentor, mentee or both")
	ErrMentorNotActive   = errors.New("mentor is not active")
	ErrMentorAtCapacity  = errors.New("mentor has no remaining capacity")
	ErrAlreadyPaired     = errors.New("mentor and mentee are already paired")
	ErrNotRosterMember   = errors.New("reviewer is not the mentee of this pairing")
	ErrInvalidPageSize   = errors.New("invalid page size")
	ErrInvalidPageToken  = errors.New("invalid page token")
)
