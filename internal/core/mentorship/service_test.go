package mentorship

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeRepo struct {
	programs map[string]*ProgramProfile
	mentors  map[string]*MentorProfile
	mentees  map[string]*MenteeProfile
	roster   map[string]*RosterEntry
	sessions []*Session
	reviews  []*Review
	order    []string
	seq      int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		programs: make(map[string]*ProgramProfile),
		mentors:  make(map[string]*MentorProfile),
		mentees:  make(map[string]*MenteeProfile),
		roster:   make(map[string]*RosterEntry),
	}
}

func (r *fakeRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *fakeRepo) SaveProgramProfile(_ context.Context, p *ProgramProfile) error {
	clone := *p
	r.programs[p.PersonID] = &clone
	return nil
}

func (r *fakeRepo) FindProgramProfile(_ context.Context, personID string) (*ProgramProfile, error) {
	p, ok := r.programs[personID]
	if !ok {
		return nil, ErrProgramNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakeRepo) CreateMentor(_ context.Context, m *MentorProfile) (*MentorProfile, error) {
	clone := *m
	clone.ID = r.nextID("mentor")
	r.mentors[clone.ID] = &clone
	r.order = append(r.order, clone.ID)
	out := clone
	return &out, nil
}

func (r *fakeRepo) FindMentor(_ context.Context, id string) (*MentorProfile, error) {
	m, ok := r.mentors[id]
	if !ok {
		return nil, ErrMentorNotFound
	}
	clone := *m
	return &clone, nil
}

func (r *fakeRepo) FindMentorByPerson(_ context.Context, personID string) (*MentorProfile, error) {
	for _, m := range r.mentors {
		if m.PersonID == personID {
			clone := *m
			return &clone, nil
		}
	}
	return nil, ErrMentorNotFound
}

func (r *fakeRepo) UpdateMentorStatus(_ context.Context, id string, from, to Status, at time.Time) error {
	m, ok := r.mentors[id]
	if !ok {
		return ErrMentorNotFound
	}
	if m.Status != from {
		return ErrStatusConflict
	}
	m.Status = to
	m.UpdatedAt = at
	return nil
}

func (r *fakeRepo) ListMentors(_ context.Context, filter ListMentorsFilter) ([]*MentorProfile, string, error) {
	var filtered []*MentorProfile
	for _, id := range r.order {
		m := r.mentors[id]
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		clone := *m
		filtered = append(filtered, &clone)
	}
	if filter.Offset > len(filtered) {
		return []*MentorProfile{}, "", nil
	}
	end := filter.Offset + filter.Limit
	if end > len(filtered) {
		end = len(filtered)
	}
	var next string
	if end < len(filtered) {
		next = strconv.Itoa(end)
	}
	return filtered[filter.Offset:end], next, nil
}

func (r *fakeRepo) CreateMentee(_ context.Context, m *MenteeProfile) (*MenteeProfile, error) {
	clone := *m
	clone.ID = r.nextID("mentee")
	r.mentees[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeRepo) FindMentee(_ context.Context, id string) (*MenteeProfile, error) {
	m, ok := r.mentees[id]
	if !ok {
		return nil, ErrMenteeNotFound
	}
	clone := *m
	return &clone, nil
}

func (r *fakeRepo) FindMenteeByPerson(_ context.Context, personID string) (*MenteeProfile, error) {
	for _, m := range r.mentees {
		if m.PersonID == personID {
			clone := *m
			return &clone, nil
		}
	}
	return nil, ErrMenteeNotFound
}

func (r *fakeRepo) CountOpenRoster(_ context.Context, mentorID string, _ bool) (int, error) {
	n := 0
	for _, e := range r.roster {
		if e.MentorID == mentorID && e.EndedAt == nil {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) CreateRosterEntry(_ context.Context, e *RosterEntry) (*RosterEntry, error) {
	for _, existing := range r.roster {
		if existing.MentorID == e.MentorID && existing.MenteeID == e.MenteeID && existing.EndedAt == nil {
			return nil, ErrAlreadyPaired
		}
	}
	clone := *e
	clone.ID = r.nextID("roster")
	r.roster[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeRepo) FindRosterEntry(_ context.Context, id string) (*RosterEntry, error) {
	e, ok := r.roster[id]
	if !ok {
		return nil, ErrRosterNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *fakeRepo) CreateSession(_ context.Context, s *Session) (*Session, error) {
	clone := *s
	clone.ID = r.nextID("session")
	r.sessions = append(r.sessions, &clone)
	out := clone
	return &out, nil
}

func (r *fakeRepo) ListSessions(_ context.Context, rosterID string) ([]*Session, error) {
	var out []*Session
	for _, s := range r.sessions {
		if s.RosterID == rosterID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateReview(_ context.Context, rv *Review) (*Review, error) {
	clone := *rv
	clone.ID = r.nextID("review")
	r.reviews = append(r.reviews, &clone)
	out := clone
	return &out, nil
}

var epoch = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

func activeMentor(t *testing.T, svc *Service, personID string, capacity int) *MentorProfile {
	t.Helper()
	enrolled, err := svc.Apply(context.Background(), ApplyInput{PersonID: personID, Mentor: true, Capacity: capacity})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	for _, ev := range []Event{EventInterview, EventApprove} {
		if _, err := svc.ApplyEvent(context.Background(), enrolled.Mentor.ID, ev); err != nil {
			t.Fatalf("ApplyEvent(%s) returned error: %v", ev, err)
		}
	}
	return enrolled.Mentor
}

func TestService_Apply(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, &stubClock{now: epoch}, nil)

	enrolled, err := svc.Apply(context.Background(), ApplyInput{PersonID: "p-1", Mentor: true, Mentee: true, Bio: " hi "})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if enrolled.Mentor == nil || enrolled.Mentee == nil {
		t.Fatalf("expected both roles, got %+v", enrolled)
	}
	if enrolled.Mentor.Status != StatusSubmitted {
		t.Fatalf("expected submitted, got %s", enrolled.Mentor.Status)
	}
	if enrolled.Mentor.Capacity != defaultCapacity || enrolled.Mentor.Bio != "hi" {
		t.Fatalf("unexpected mentor %+v", enrolled.Mentor)
	}
	if enrolled.Program.Commitment != CommitmentMedium {
		t.Fatalf("expected default commitment, got %s", enrolled.Program.Commitment)
	}

	again, err := svc.Apply(context.Background(), ApplyInput{PersonID: "p-1", Mentor: true, Commitment: CommitmentHigh})
	if err != nil {
		t.Fatalf("second Apply returned error: %v", err)
	}
	if again.Mentor.ID != enrolled.Mentor.ID || len(repo.mentors) != 1 {
		t.Fatal("re-applying must not create another mentor profile")
	}
	if !repo.programs["p-1"].Mentee || repo.programs["p-1"].Commitment != CommitmentHigh {
		t.Fatalf("unexpected program profile %+v", repo.programs["p-1"])
	}
}

func TestService_Apply_Validation(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	if _, err := svc.Apply(context.Background(), ApplyInput{PersonID: "p"}); !errors.Is(err, ErrNoRoleSelected) {
		t.Fatalf("expected ErrNoRoleSelected, got %v", err)
	}
	if _, err := svc.Apply(context.Background(), ApplyInput{PersonID: "p", Mentee: true, Commitment: "always"}); !errors.Is(err, ErrInvalidCommitment) {
		t.Fatalf("expected ErrInvalidCommitment, got %v", err)
	}
	if _, err := svc.Apply(context.Background(), ApplyInput{PersonID: "p", Mentor: true, Capacity: -1}); !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("expected ErrInvalidCapacity, got %v", err)
	}
}

func TestTransition(t *testing.T) {
	t.Parallel()

	if to, err := Transition(StatusInterviewing, EventApprove); err != nil || to != StatusActive {
		t.Fatalf("interviewing/approve: got %s, %v", to, err)
	}
	if to, err := Transition(StatusPaused, EventRemoveForConduct); err != nil || to != StatusRemovedConduct {
		t.Fatalf("paused/remove_for_conduct: got %s, %v", to, err)
	}
	for _, tc := range []struct {
		from  Status
		event Event
	}{
		{StatusSubmitted, EventApprove},
		{StatusRejected, EventResume},
		{StatusRemovedByAdmin, EventResume},
		{StatusActive, EventInterview},
	} {
		if _, err := Transition(tc.from, tc.event); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s/%s: expected ErrInvalidTransition, got %v", tc.from, tc.event, err)
		}
	}
}

func TestService_ListActiveMentors(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, &stubClock{now: epoch}, nil)
	active := activeMentor(t, svc, "p-1", 1)
	if _, err := svc.Apply(context.Background(), ApplyInput{PersonID: "p-2", Mentor: true}); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	result, err := svc.ListActiveMentors(context.Background(), ListMentorsInput{})
	if err != nil {
		t.Fatalf("ListActiveMentors returned error: %v", err)
	}
	if len(result.Mentors) != 1 || result.Mentors[0].ID != active.ID {
		t.Fatalf("expected only the active mentor, got %+v", result.Mentors)
	}
}

func TestService_AddToRoster_Capacity(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, &stubClock{now: epoch}, nil)
	mentor := activeMentor(t, svc, "mentor-person", 1)

	first, _ := svc.Apply(context.Background(), ApplyInput{PersonID: "m-1", Mentee: true})
	second, _ := svc.Apply(context.Background(), ApplyInput{PersonID: "m-2", Mentee: true})

	if _, err := svc.AddToRoster(context.Background(), mentor.ID, first.Mentee.ID); err != nil {
		t.Fatalf("AddToRoster returned error: %v", err)
	}
	if _, err := svc.AddToRoster(context.Background(), mentor.ID, second.Mentee.ID); !errors.Is(err, ErrMentorAtCapacity) {
		t.Fatalf("expected ErrMentorAtCapacity, got %v", err)
	}
}

func TestService_AddToRoster_InactiveMentor(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, &stubClock{now: epoch}, nil)
	enrolled, _ := svc.Apply(context.Background(), ApplyInput{PersonID: "p", Mentor: true})
	mentee, _ := svc.Apply(context.Background(), ApplyInput{PersonID: "q", Mentee: true})

	if _, err := svc.AddToRoster(context.Background(), enrolled.Mentor.ID, mentee.Mentee.ID); !errors.Is(err, ErrMentorNotActive) {
		t.Fatalf("expected ErrMentorNotActive, got %v", err)
	}
}

func TestService_SessionsAndReviews(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, &stubClock{now: epoch}, nil)
	mentor := activeMentor(t, svc, "mentor-person", 2)
	mentee, _ := svc.Apply(context.Background(), ApplyInput{PersonID: "mentee-person", Mentee: true})
	entry, err := svc.AddToRoster(context.Background(), mentor.ID, mentee.Mentee.ID)
	if err != nil {
		t.Fatalf("AddToRoster returned error: %v", err)
	}

	session, err := svc.LogSession(context.Background(), LogSessionInput{RosterID: entry.ID, DurationMinutes: 45, Notes: " intro "})
	if err != nil {
		t.Fatalf("LogSession returned error: %v", err)
	}
	if !session.OccurredAt.Equal(epoch) || session.Notes != "intro" {
		t.Fatalf("unexpected session %+v", session)
	}
	if _, err := svc.LogSession(context.Background(), LogSessionInput{RosterID: entry.ID}); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	sessions, err := svc.Sessions(context.Background(), entry.ID)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("expected one session, got %d (%v)", len(sessions), err)
	}

	if _, err := svc.Review(context.Background(), ReviewInput{RosterID: entry.ID, ReviewerID: "mentee-person", Rating: 6}); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating, got %v", err)
	}
	if _, err := svc.Review(context.Background(), ReviewInput{RosterID: entry.ID, ReviewerID: "someone-else", Rating: 4}); !errors.Is(err, ErrNotRosterMember) {
		t.Fatalf("expected ErrNotRosterMember, got %v", err)
	}
	review, err := svc.Review(context.Background(), ReviewInput{RosterID: entry.ID, ReviewerID: "mentee-person", Rating: 5})
	if err != nil {
		t.Fatalf("Review returned error: %v", err)
	}
	if review.Rating != 5 || len(repo.reviews) != 1 {
		t.Fatalf("unexpected review %+v", review)
	}
}
