package mentorship

import "fmt"

// Status はメンターの審査・活動状態です。
type Status string

const (
	StatusSubmitted      Status = "submitted"
	StatusInterviewing   Status = "interviewing"
	StatusActive         Status = "active"
	StatusPaused         Status = "paused"
	StatusRejected       Status = "rejected"
	StatusRemovedByAdmin Status = "removed_by_admin"
	StatusRemovedConduct Status = "removed_code_of_conduct"
)

// Valid は既知の状態かどうかを返します。
func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusInterviewing, StatusActive, StatusPaused,
		StatusRejected, StatusRemovedByAdmin, StatusRemovedConduct:
		return true
	default:
		return false
	}
}

// Event はメンターの状態遷移を引き起こす操作です。
type Event string

const (
	EventInterview        Event = "interview"
	EventApprove          Event = "approve"
	EventReject           Event = "reject"
	EventPause            Event = "pause"
	EventResume           Event = "resume"
	EventRemove           Event = "remove"
	EventRemoveForConduct Event = "remove_for_conduct"
)

type edge struct {
	from  Status
	event Event
}

var transitions = map[edge]Status{
	{StatusSubmitted, EventInterview}:     StatusInterviewing,
	{StatusSubmitted, EventReject}:        StatusRejected,
	{StatusInterviewing, EventApprove}:    StatusActive,
	{StatusInterviewing, EventReject}:     StatusRejected,
	{StatusActive, EventPause}:            StatusPaused,
	{StatusPaused, EventResume}:           StatusActive,
	{StatusActive, EventRemove}:           StatusRemovedByAdmin,
	{StatusPaused, EventRemove}:           StatusRemovedByAdmin,
	{StatusActive, EventRemoveForConduct}: StatusRemovedConduct,
	{StatusPaused, EventRemoveForConduct}: StatusRemovedConduct,
}

// Transition は from に event を適用した後の状態を返します。
func Transition(from Status, event Event) (Status, error) {
	to, ok := transitions[edge{from, event}]
	if !ok {
		return "", fmt.Errorf("%s --%s-->: %w", from, event, ErrInvalidTransition)
	}
	return to, nil
}
