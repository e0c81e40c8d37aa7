package mentorship

import (
	"context"
	"time"
)

// Repository はメンタリング関連の永続化を行うインターフェースです。
type Repository interface {
	SaveProgramProfile(ctx context.Context, profile *ProgramProfile) error
	FindProgramProfile(ctx context.Context, personID string) (*ProgramProfile, error)

	CreateMentor(ctx context.Context, mentor *MentorProfile) (*MentorProfile, error)
	FindMentor(ctx context.Context, id string) (*MentorProfile, error)
	FindMentorByPerson(ctx context.Context, personID string) (*MentorProfile, error)
	// UpdateMentorStatus は現在の状態が from の場合に限り更新します。一致しなければ ErrStatusConflict です。
	UpdateMentorStatus(ctx context.Context, id string, from, to Status, at time.Time) error
	ListMentors(ctx context.Context, filter ListMentorsFilter) ([]*MentorProfile, string, error)

	CreateMentee(ctx context.Context, mentee *MenteeProfile) (*MenteeProfile, error)
	FindMentee(ctx context.Context, id string) (*MenteeProfile, error)
	FindMenteeByPerson(ctx context.Context, personID string) (*MenteeProfile, error)

	// CountOpenRoster は終了していない組の数を返します。lock が true の場合はメンター行をロックします。
	CountOpenRoster(ctx context.Context, mentorID string, lock bool) (int, error)
	CreateRosterEntry(ctx context.Context, entry *RosterEntry) (*RosterEntry, error)
	FindRosterEntry(ctx context.Context, id string) (*RosterEntry, error)

	CreateSession(ctx context.Context, session *Session) (*Session, error)
	ListSessions(ctx context.Context, rosterID string) ([]*Session, error)
	CreateReview(ctx context.Context, review *Review) (*Review, error)
}

// ListMentorsFilter は一覧取得時の検索条件です。
type ListMentorsFilter struct {
	Limit  int
	Offset int
	Status *Status
}
