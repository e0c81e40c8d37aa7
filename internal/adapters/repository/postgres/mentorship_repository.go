package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/talent-board/internal/core/mentorship"
	"github.com/ogurasousui/talent-board/internal/core/person"
	pgdb "github.com/ogurasousui/talent-board/internal/platform/db/postgres"
)

const (
	mentorColumns  = `id, person_id, status, capacity, bio, created_at, updated_at`
	menteeColumns  = `id, person_id, goals, created_at`
	rosterColumns  = `id, mentor_id, mentee_id, started_at, ended_at`
	sessionColumns = `id, roster_id, occurred_at, duration_minutes, notes, created_at`
)

var (
	programErrors = pgErrorMapping{noRows: mentorship.ErrProgramNotFound, foreignKey: person.ErrPersonNotFound}
	mentorErrors  = pgErrorMapping{noRows: mentorship.ErrMentorNotFound, foreignKey: person.ErrPersonNotFound}
	menteeErrors  = pgErrorMapping{noRows: mentorship.ErrMenteeNotFound, foreignKey: person.ErrPersonNotFound}
	rosterErrors  = pgErrorMapping{noRows: mentorship.ErrRosterNotFound, unique: mentorship.ErrAlreadyPaired, foreignKey: mentorship.ErrRosterNotFound}
)

// MentorshipRepository はメンタリングプログラムの永続化の実装です。
type MentorshipRepository struct {
	pool pgdb.Queryer
}

// NewMentorshipRepository は MentorshipRepository を生成します。
func NewMentorshipRepository(pool pgdb.Queryer) *MentorshipRepository {
	return &MentorshipRepository{pool: pool}
}

// SaveProgramProfile はプログラムプロフィールを作成または更新します。
func (r *MentorshipRepository) SaveProgramProfile(ctx context.Context, p *mentorship.ProgramProfile) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO mentorship_programs (person_id, commitment, mentor, mentee, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (person_id) DO UPDATE
           SET commitment = EXCLUDED.commitment,
               mentor = EXCLUDED.mentor,
               mentee = EXCLUDED.mentee,
               updated_at = EXCLUDED.updated_at
    `, p.PersonID, string(p.Commitment), p.Mentor, p.Mentee, p.CreatedAt, p.UpdatedAt)
	return programErrors.translate(err)
}

// FindProgramProfile はプログラムプロフィールを取得します。
func (r *MentorshipRepository) FindProgramProfile(ctx context.Context, personID string) (*mentorship.ProgramProfile, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT person_id, commitment, mentor, mentee, created_at, updated_at
          FROM mentorship_programs
         WHERE person_id = $1
    `, personID)

	var (
		p          mentorship.ProgramProfile
		commitment string
	)
	if err := row.Scan(&p.PersonID, &commitment, &p.Mentor, &p.Mentee, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, programErrors.translate(err)
	}
	p.Commitment = mentorship.Commitment(commitment)
	return &p, nil
}

// CreateMentor はメンタープロフィールを作成します。
func (r *MentorshipRepository) CreateMentor(ctx context.Context, m *mentorship.MentorProfile) (*mentorship.MentorProfile, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO mentors (person_id, status, capacity, bio, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+mentorColumns,
		m.PersonID, string(m.Status), m.Capacity, m.Bio, m.CreatedAt, m.UpdatedAt)

	created, err := scanMentor(row)
	if err != nil {
		return nil, mentorErrors.translate(err)
	}
	return created, nil
}

// FindMentor は ID でメンターを取得します。
func (r *MentorshipRepository) FindMentor(ctx context.Context, id string) (*mentorship.MentorProfile, error) {
	return r.findMentor(ctx, "id", id)
}

// FindMentorByPerson は人物 ID でメンターを取得します。
func (r *MentorshipRepository) FindMentorByPerson(ctx context.Context, personID string) (*mentorship.MentorProfile, error) {
	return r.findMentor(ctx, "person_id", personID)
}

func (r *MentorshipRepository) findMentor(ctx context.Context, column, value string) (*mentorship.MentorProfile, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+mentorColumns+` FROM mentors WHERE `+column+` = $1`, value)

	found, err := scanMentor(row)
	if err != nil {
		return nil, mentorErrors.translate(err)
	}
	return found, nil
}

// UpdateMentorStatus は現在の状態が from の場合に限り to へ更新します。
func (r *MentorshipRepository) UpdateMentorStatus(ctx context.Context, id string, from, to mentorship.Status, at time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE mentors SET status = $1, updated_at = $2
         WHERE id = $3 AND status = $4
    `, string(to), at, id, string(from))
	if err != nil {
		return mentorErrors.translate(err)
	}
	if tag.RowsAffected() == 0 {
		return mentorship.ErrStatusConflict
	}
	return nil
}

// ListMentors はメンターを登録順に返します。論理削除済みの人物は除外します。
func (r *MentorshipRepository) ListMentors(ctx context.Context, filter mentorship.ListMentorsFilter) ([]*mentorship.MentorProfile, string, error) {
	if filter.Limit <= 0 {
		return nil, "", mentorship.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", mentorship.ErrInvalidPageToken
	}

	var ph placeholders
	conditions := []string{"p.deleted_at IS NULL"}
	if filter.Status != nil {
		conditions = append(conditions, "m.status = "+ph.add(string(*filter.Status)))
	}
	limit := ph.add(filter.Limit + 1)
	offset := ph.add(filter.Offset)

	query := `
        SELECT m.id, m.person_id, m.status, m.capacity, m.bio, m.created_at, m.updated_at
          FROM mentors m
          JOIN people p ON p.id = m.person_id
         WHERE ` + strings.Join(conditions, " AND ") + `
         ORDER BY m.created_at, m.id
         LIMIT ` + limit + `
        OFFSET ` + offset + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, ph.args...)
	if err != nil {
		return nil, "", mentorErrors.translate(err)
	}
	defer rows.Close()

	var mentors []*mentorship.MentorProfile
	for rows.Next() {
		m, err := scanMentor(rows)
		if err != nil {
			return nil, "", err
		}
		mentors = append(mentors, m)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	mentors, next := nextPageToken(mentors, filter.Limit, filter.Offset)
	return mentors, next, nil
}

// CreateMentee はメンティープロフィールを作成します。
func (r *MentorshipRepository) CreateMentee(ctx context.Context, m *mentorship.MenteeProfile) (*mentorship.MenteeProfile, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO mentees (person_id, goals, created_at)
        VALUES ($1, $2, $3)
        RETURNING `+menteeColumns,
		m.PersonID, m.Goals, m.CreatedAt)

	created, err := scanMentee(row)
	if err != nil {
		return nil, menteeErrors.translate(err)
	}
	return created, nil
}

// FindMentee は ID でメンティーを取得します。
func (r *MentorshipRepository) FindMentee(ctx context.Context, id string) (*mentorship.MenteeProfile, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	found, err := scanMentee(exec.QueryRow(ctx, `SELECT `+menteeColumns+` FROM mentees WHERE id = $1`, id))
	if err != nil {
		return nil, menteeErrors.translate(err)
	}
	return found, nil
}

// FindMenteeByPerson は人物 ID でメンティーを取得します。
func (r *MentorshipRepository) FindMenteeByPerson(ctx context.Context, personID string) (*mentorship.MenteeProfile, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	found, err := scanMentee(exec.QueryRow(ctx, `SELECT `+menteeColumns+` FROM mentees WHERE person_id = $1`, personID))
	if err != nil {
		return nil, menteeErrors.translate(err)
	}
	return found, nil
}

// CountOpenRoster は終了していない組の数を返します。
// lock が true の場合はメンター行をロックし、定員判定と組の追加を直列化します。
func (r *MentorshipRepository) CountOpenRoster(ctx context.Context, mentorID string, lock bool) (int, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	if lock {
		var id string
		if err := exec.QueryRow(ctx, `SELECT id FROM mentors WHERE id = $1 FOR UPDATE`, mentorID).Scan(&id); err != nil {
			return 0, mentorErrors.translate(err)
		}
	}

	var n int
	if err := exec.QueryRow(ctx, `
        SELECT count(*) FROM mentorship_roster WHERE mentor_id = $1 AND ended_at IS NULL
    `, mentorID).Scan(&n); err != nil {
		return 0, mentorErrors.translate(err)
	}
	return n, nil
}

// CreateRosterEntry は組を作成します。終了していない同じ組がある場合は ErrAlreadyPaired です。
func (r *MentorshipRepository) CreateRosterEntry(ctx context.Context, e *mentorship.RosterEntry) (*mentorship.RosterEntry, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO mentorship_roster (mentor_id, mentee_id, started_at)
        VALUES ($1, $2, $3)
        RETURNING `+rosterColumns,
		e.MentorID, e.MenteeID, e.StartedAt)

	created, err := scanRoster(row)
	if err != nil {
		return nil, rosterErrors.translate(err)
	}
	return created, nil
}

// FindRosterEntry は組を取得します。
func (r *MentorshipRepository) FindRosterEntry(ctx context.Context, id string) (*mentorship.RosterEntry, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	found, err := scanRoster(exec.QueryRow(ctx, `SELECT `+rosterColumns+` FROM mentorship_roster WHERE id = $1`, id))
	if err != nil {
		return nil, rosterErrors.translate(err)
	}
	return found, nil
}

// CreateSession は面談記録を作成します。
func (r *MentorshipRepository) CreateSession(ctx context.Context, s *mentorship.Session) (*mentorship.Session, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO mentorship_sessions (roster_id, occurred_at, duration_minutes, notes, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+sessionColumns,
		s.RosterID, s.OccurredAt, s.DurationMinutes, s.Notes, s.CreatedAt)

	var out mentorship.Session
	if err := row.Scan(&out.ID, &out.RosterID, &out.OccurredAt, &out.DurationMinutes, &out.Notes, &out.CreatedAt); err != nil {
		return nil, rosterErrors.translate(err)
	}
	return &out, nil
}

// ListSessions は組の面談記録を実施日時順に返します。
func (r *MentorshipRepository) ListSessions(ctx context.Context, rosterID string) ([]*mentorship.Session, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+sessionColumns+`
          FROM mentorship_sessions
         WHERE roster_id = $1
         ORDER BY occurred_at, id
    `, rosterID)
	if err != nil {
		return nil, rosterErrors.translate(err)
	}
	defer rows.Close()

	var out []*mentorship.Session
	for rows.Next() {
		var s mentorship.Session
		if err := rows.Scan(&s.ID, &s.RosterID, &s.OccurredAt, &s.DurationMinutes, &s.Notes, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// CreateReview は評価を作成します。
func (r *MentorshipRepository) CreateReview(ctx context.Context, rv *mentorship.Review) (*mentorship.Review, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO mentorship_reviews (roster_id, reviewer_id, rating, comment, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, roster_id, reviewer_id, rating, comment, created_at
    `, rv.RosterID, rv.ReviewerID, rv.Rating, rv.Comment, rv.CreatedAt)

	var out mentorship.Review
	if err := row.Scan(&out.ID, &out.RosterID, &out.ReviewerID, &out.Rating, &out.Comment, &out.CreatedAt); err != nil {
		return nil, rosterErrors.translate(err)
	}
	return &out, nil
}

func scanMentor(row pgx.Row) (*mentorship.MentorProfile, error) {
	var (
		m      mentorship.MentorProfile
		status string
	)
	if err := row.Scan(&m.ID, &m.PersonID, &status, &m.Capacity, &m.Bio, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Status = mentorship.Status(status)
	return &m, nil
}

func scanMentee(row pgx.Row) (*mentorship.MenteeProfile, error) {
	var m mentorship.MenteeProfile
	if err := row.Scan(&m.ID, &m.PersonID, &m.Goals, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func scanRoster(row pgx.Row) (*mentorship.RosterEntry, error) {
	var (
		e       mentorship.RosterEntry
		endedAt sql.NullTime
	)
	if err := row.Scan(&e.ID, &e.MentorID, &e.MenteeID, &e.StartedAt, &endedAt); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		at := endedAt.Time
		e.EndedAt = &at
	}
	return &e, nil
}
