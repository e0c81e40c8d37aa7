package mentorship

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
	defaultCapacity     = 2
)

// Service はメンタリングプログラムのユースケースをまとめます。
type Service struct {
	repo  Repository
	clock Clock
	tx    TransactionManager
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, clock: clock, tx: tx}
}

// ApplyInput はプログラム参加申込の入力です。
type ApplyInput struct {
	PersonID   string
	Commitment Commitment
	Mentor     bool
	Mentee     bool
	Capacity   int
	Bio        string
	Goals      string
}

// Apply はプログラムプロフィールを保存し、希望した役割のプロフィールを作成します。
// 既にある役割のプロフィールはそのまま返すため、再申込しても重複しません。
func (s *Service) Apply(ctx context.Context, in ApplyInput) (*Enrollment, error) {
	if strings.TrimSpace(in.PersonID) == "" {
		return nil, fmt.Errorf("person id: %w", ErrInvalidID)
	}
	if !in.Mentor && !in.Mentee {
		return nil, ErrNoRoleSelected
	}
	commitment := in.Commitment
	if commitment == "" {
		commitment = CommitmentMedium
	}
	if !commitment.Valid() {
		return nil, fmt.Errorf("%q: %w", in.Commitment, ErrInvalidCommitment)
	}
	capacity := in.Capacity
	if capacity == 0 {
		capacity = defaultCapacity
	}
	if capacity < 0 {
		return nil, ErrInvalidCapacity
	}

	var out Enrollment
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()

		program, err := s.repo.FindProgramProfile(txCtx, in.PersonID)
		switch {
		case errors.Is(err, ErrProgramNotFound):
			program = &ProgramProfile{PersonID: in.PersonID, CreatedAt: now}
		case err != nil:
			return err
		}
		program.Commitment = commitment
		program.Mentor = program.Mentor || in.Mentor
		program.Mentee = program.Mentee || in.Mentee
		program.UpdatedAt = now
		if err := s.repo.SaveProgramProfile(txCtx, program); err != nil {
			return err
		}
		out.Program = program

		if in.Mentor {
			mentor, err := s.repo.FindMentorByPerson(txCtx, in.PersonID)
			if errors.Is(err, ErrMentorNotFound) {
				mentor, err = s.repo.CreateMentor(txCtx, &MentorProfile{
					PersonID:  in.PersonID,
					Status:    StatusSubmitted,
					Capacity:  capacity,
					Bio:       strings.TrimSpace(in.Bio),
					CreatedAt: now,
					UpdatedAt: now,
				})
			}
			if err != nil {
				return err
			}
			out.Mentor = mentor
		}

		if in.Mentee {
			mentee, err := s.repo.FindMenteeByPerson(txCtx, in.PersonID)
			if errors.Is(err, ErrMenteeNotFound) {
				mentee, err = s.repo.CreateMentee(txCtx, &MenteeProfile{
					PersonID:  in.PersonID,
					Goals:     strings.TrimSpace(in.Goals),
					CreatedAt: now,
				})
			}
			if err != nil {
				return err
			}
			out.Mentee = mentee
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplyEvent はメンターの状態を遷移させます。
func (s *Service) ApplyEvent(ctx context.Context, mentorID string, event Event) (*MentorProfile, error) {
	if strings.TrimSpace(mentorID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var out *MentorProfile
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		mentor, err := s.repo.FindMentor(txCtx, mentorID)
		if err != nil {
			return err
		}
		next, err := Transition(mentor.Status, event)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if err := s.repo.UpdateMentorStatus(txCtx, mentorID, mentor.Status, next, now); err != nil {
			return err
		}
		mentor.Status = next
		mentor.UpdatedAt = now
		out = mentor
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMentorsInput は一覧取得時の入力です。
type ListMentorsInput struct {
	PageSize  int
	PageToken string
	Status    *Status
}

// ListMentorsResult は一覧取得結果を表します。
type ListMentorsResult struct {
	Mentors       []*MentorProfile
	NextPageToken string
}

// ListActiveMentors は活動中のメンターのみを返します。
func (s *Service) ListActiveMentors(ctx context.Context, in ListMentorsInput) (*ListMentorsResult, error) {
	active := StatusActive
	in.Status = &active
	return s.ListMentors(ctx, in)
}

// ListMentors はメンターの一覧を返します。
func (s *Service) ListMentors(ctx context.Context, in ListMentorsInput) (*ListMentorsResult, error) {
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}
	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, fmt.Errorf("%q: %w", *in.Status, ErrInvalidStatus)
	}

	var out ListMentorsResult
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		mentors, token, err := s.repo.ListMentors(txCtx, ListMentorsFilter{Limit: limit, Offset: offset, Status: in.Status})
		if err != nil {
			return err
		}
		out = ListMentorsResult{Mentors: mentors, NextPageToken: token}
		return nil
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMentor は ID でメンターを取得します。
func (s *Service) GetMentor(ctx context.Context, id string) (*MentorProfile, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	return s.repo.FindMentor(ctx, id)
}

// AddToRoster はメンターとメンティーを組にします。メンターは active で、受け入れ枠が残っている必要があります。
func (s *Service) AddToRoster(ctx context.Context, mentorID, menteeID string) (*RosterEntry, error) {
	if strings.TrimSpace(mentorID) == "" || strings.TrimSpace(menteeID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var out *RosterEntry
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		mentor, err := s.repo.FindMentor(txCtx, mentorID)
		if err != nil {
			return err
		}
		if mentor.Status != StatusActive {
			return ErrMentorNotActive
		}
		if _, err := s.repo.FindMentee(txCtx, menteeID); err != nil {
			return err
		}
		open, err := s.repo.CountOpenRoster(txCtx, mentorID, true)
		if err != nil {
			return err
		}
		if open >= mentor.Capacity {
			return ErrMentorAtCapacity
		}
		entry, err := s.repo.CreateRosterEntry(txCtx, &RosterEntry{
			MentorID:  mentorID,
			MenteeID:  menteeID,
			StartedAt: s.clock.Now(),
		})
		if err != nil {
			return err
		}
		out = entry
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// LogSessionInput は面談記録の入力です。
type LogSessionInput struct {
	RosterID        string
	OccurredAt      time.Time
	DurationMinutes int
	Notes           string
}

// LogSession は面談を記録します。
func (s *Service) LogSession(ctx context.Context, in LogSessionInput) (*Session, error) {
	if strings.TrimSpace(in.RosterID) == "" {
		return nil, fmt.Errorf("roster id: %w", ErrInvalidID)
	}
	if in.DurationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}

	var out *Session
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindRosterEntry(txCtx, in.RosterID); err != nil {
			return err
		}
		now := s.clock.Now()
		occurred := in.OccurredAt
		if occurred.IsZero() {
			occurred = now
		}
		session, err := s.repo.CreateSession(txCtx, &Session{
			RosterID:        in.RosterID,
			OccurredAt:      occurred,
			DurationMinutes: in.DurationMinutes,
			Notes:           strings.TrimSpace(in.Notes),
			CreatedAt:       now,
		})
		if err != nil {
			return err
		}
		out = session
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// Sessions は組ごとの面談記録を返します。
func (s *Service) Sessions(ctx context.Context, rosterID string) ([]*Session, error) {
	if strings.TrimSpace(rosterID) == "" {
		return nil, fmt.Errorf("roster id: %w", ErrInvalidID)
	}
	return s.repo.ListSessions(ctx, rosterID)
}

// ReviewInput はメンター評価の入力です。
type ReviewInput struct {
	RosterID   string
	ReviewerID string
	Rating     int
	Comment    string
}

// Review は組のメンティー本人によるメンター評価を記録します。
func (s *Service) Review(ctx context.Context, in ReviewInput) (*Review, error) {
	if strings.TrimSpace(in.RosterID) == "" || strings.TrimSpace(in.ReviewerID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidRating
	}

	var out *Review
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		entry, err := s.repo.FindRosterEntry(txCtx, in.RosterID)
		if err != nil {
			return err
		}
		mentee, err := s.repo.FindMentee(txCtx, entry.MenteeID)
		if err != nil {
			return err
		}
		if mentee.PersonID != in.ReviewerID {
			return ErrNotRosterMember
		}
		review, err := s.repo.CreateReview(txCtx, &Review{
			RosterID:   in.RosterID,
			ReviewerID: in.ReviewerID,
			Rating:     in.Rating,
			Comment:    strings.TrimSpace(in.Comment),
			CreatedAt:  s.clock.Now(),
		})
		if err != nil {
			return err
		}
		out = review
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
