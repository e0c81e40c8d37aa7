package job

import "fmt"

// Event は状態遷移を引き起こす操作です。
type Event string

const (
	EventSubmit  Event = "submit"
	EventApprove Event = "approve"
	EventReject  Event = "reject"
	EventPause   Event = "pause"
	EventResume  Event = "resume"
	EventClose   Event = "close"
	EventExpire  Event = "expire"
	EventRepost  Event = "repost"
)

type edge struct {
	from  Status
	event Event
}

var transitions = map[edge]Status{
	{StatusDraft, EventSubmit}:    StatusPending,
	{StatusPending, EventApprove}: StatusActive,
	{StatusPending, EventReject}:  StatusRejected,
	{StatusActive, EventPause}:    StatusPaused,
	{StatusPaused, EventResume}:   StatusActive,
	{StatusActive, EventClose}:    StatusClosed,
	{StatusPaused, EventClose}:    StatusClosed,
	{StatusActive, EventExpire}:   StatusExpired,
	{StatusClosed, EventRepost}:   StatusPending,
	{StatusExpired, EventRepost}:  StatusPending,
}

// Transition は from に event を適用した後の状態を返します。遷移表にない組み合わせは ErrInvalidTransition です。
func Transition(from Status, event Event) (Status, error) {
	to, ok := transitions[edge{from, event}]
	if !ok {
		return "", fmt.Errorf("%s --%s-->: %w", from, event, ErrInvalidTransition)
	}
	return to, nil
}

// StaffOnly は管理者のみが実行できるイベントかどうかを返します。
func (e Event) StaffOnly() bool {
	switch e {
	case EventApprove, EventReject, EventExpire:
		return true
	default:
		return false
	}
}
