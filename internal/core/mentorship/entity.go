package mentorship

import "time"

// Commitment はメンタリングプログラムへの参加頻度です。
type Commitment string

const (
	CommitmentLow    Commitment = "low"
	CommitmentMedium Commitment = "medium"
	CommitmentHigh   Commitment = "high"
)

// Valid は既知の頻度かどうかを返します。
func (c Commitment) Valid() bool {
	switch c {
	case CommitmentLow, CommitmentMedium, CommitmentHigh:
		return true
	default:
		return false
	}
}

// ProgramProfile はプログラム参加者としてのプロフィールです。
type ProgramProfile struct {
	PersonID   string
	Commitment Commitment
	Mentor     bool
	Mentee     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MentorProfile はメンターのプロフィールです。
type MentorProfile struct {
	ID        string
	PersonID  string
	Status    Status
	Capacity  int
	Bio       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MenteeProfile はメンティーのプロフィールです。
type MenteeProfile struct {
	ID        string
	PersonID  string
	Goals     string
	CreatedAt time.Time
}

// RosterEntry はメンターとメンティーの組です。
type RosterEntry struct {
	ID        string
	MentorID  string
	MenteeID  string
	StartedAt time.Time
	EndedAt   *time.Time
}

// Session は組ごとの面談記録です。
type Session struct {
	ID              string
	RosterID        string
	OccurredAt      time.Time
	DurationMinutes int
	Notes           string
	CreatedAt       time.Time
}

// Review はメンティーによるメンターの評価です。
type Review struct {
	ID         string
	RosterID   string
	ReviewerID string
	Rating     int
	Comment    string
	CreatedAt  time.Time
}

// Enrollment は Apply の結果です。参加しなかった役割は nil です。
type Enrollment struct {
	Program *ProgramProfile
	Mentor  *MentorProfile
	Mentee  *MenteeProfile
}
