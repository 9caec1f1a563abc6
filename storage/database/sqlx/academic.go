package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
)

var (
	sortableCourseColumns = map[string]string{
		"name":       "name",
		"created_at": "created_at",
	}
	sortableSessionColumns = map[string]string{
		"start_date": "start_date",
		"end_date":   "end_date",
	}
	sortableSubjectColumns = sortableCourseColumns
)

type academicRepository struct {
	db *sqlx.DB
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *sqlx.DB) academic.Repository {
	return &academicRepository{db: db}
}

// trapNoRowsErr maps sql "no rows" err to `notFound`
func trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func orderBy(ordering []core.DBOrdering) string {
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	orderList = append(orderList, "id ASC")
	return " ORDER BY " + strings.Join(orderList, ", ")
}

func (repo academicRepository) insert(ctx context.Context, msg, q string, args ...interface{}) (int, error) {
	var id int
	if err := repo.db.QueryRowxContext(ctx, repo.db.Rebind(q+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, errors.Wrap(err, msg)
	}
	return id, nil
}

// execOne runs q and returns `notFound` if no row was affected.
func (repo academicRepository) execOne(ctx context.Context, notFound error, msg, q string, args ...interface{}) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (repo academicRepository) exists(ctx context.Context, table string, id int) (bool, error) {
	var cnt int
	if err := repo.db.GetContext(ctx, &cnt, repo.db.Rebind("SELECT COUNT(*) FROM "+table+" WHERE id = ?"), id); err != nil {
		return false, errors.Wrap(err, "checking "+table)
	}
	return cnt > 0, nil
}

// Courses

func (repo academicRepository) CreateCourse(ctx context.Context, course academic.Course) (academic.Course, error) {
	id, err := repo.insert(ctx, "inserting course",
		"INSERT INTO course (name, created_at, updated_at) VALUES (?, ?, ?)",
		course.Name, course.CreatedAt.UTC(), course.UpdatedAt.UTC())
	if err != nil {
		return academic.Course{}, err
	}
	return repo.GetCourse(ctx, id)
}

func (repo academicRepository) QueryCourses(ctx context.Context, filter *academic.QueryFilter, ordering []core.DBOrdering) ([]academic.Course, error) {
	q := "SELECT id, name, created_at, updated_at FROM course"
	var args []interface{}
	if filter != nil && filter.Search != "" {
		q += " WHERE LOWER(name) LIKE ?"
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	q += orderBy(core.WithoutUnknownFields(ordering, sortableCourseColumns))

	courses := make([]academic.Course, 0)
	if err := repo.db.SelectContext(ctx, &courses, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	for i := range courses {
		courses[i].CreatedAt = courses[i].CreatedAt.UTC()
		courses[i].UpdatedAt = courses[i].UpdatedAt.UTC()
	}
	return courses, nil
}

func (repo academicRepository) GetCourse(ctx context.Context, id int) (academic.Course, error) {
	var course academic.Course
	q := repo.db.Rebind("SELECT id, name, created_at, updated_at FROM course WHERE id = ?")
	if err := repo.db.GetContext(ctx, &course, q, id); err != nil {
		return academic.Course{}, trapNoRowsErr(err, academic.ErrCourseNotFound, "finding course")
	}
	course.CreatedAt = course.CreatedAt.UTC()
	course.UpdatedAt = course.UpdatedAt.UTC()
	return course, nil
}

func (repo academicRepository) UpdateCourse(ctx context.Context, course academic.Course) (academic.Course, error) {
	err := repo.execOne(ctx, academic.ErrCourseNotFound, "updating course",
		"UPDATE course SET name = ?, updated_at = ? WHERE id = ?",
		course.Name, course.UpdatedAt.UTC(), course.ID)
	if err != nil {
		return academic.Course{}, err
	}
	return repo.GetCourse(ctx, course.ID)
}

func (repo academicRepository) DeleteCourse(ctx context.Context, id int) error {
	return repo.execOne(ctx, academic.ErrCourseNotFound, "deleting course", "DELETE FROM course WHERE id = ?", id)
}

func (repo academicRepository) CourseExists(ctx context.Context, id int) (bool, error) {
	return repo.exists(ctx, "course", id)
}

// Sessions

func (repo academicRepository) CreateSession(ctx context.Context, sess academic.Session) (academic.Session, error) {
	id, err := repo.insert(ctx, "inserting session",
		"INSERT INTO academic_session (start_date, end_date, created_at, updated_at) VALUES (?, ?, ?, ?)",
		sess.StartDate.UTC(), sess.EndDate.UTC(), sess.CreatedAt.UTC(), sess.UpdatedAt.UTC())
	if err != nil {
		return academic.Session{}, err
	}
	return repo.GetSession(ctx, id)
}

func utcSession(sess *academic.Session) {
	sess.StartDate = sess.StartDate.UTC()
	sess.EndDate = sess.EndDate.UTC()
	sess.CreatedAt = sess.CreatedAt.UTC()
	sess.UpdatedAt = sess.UpdatedAt.UTC()
}

func (repo academicRepository) QuerySessions(ctx context.Context, ordering []core.DBOrdering) ([]academic.Session, error) {
	q := "SELECT id, start_date, end_date, created_at, updated_at FROM academic_session" +
		orderBy(core.WithoutUnknownFields(ordering, sortableSessionColumns))

	sessions := make([]academic.Session, 0)
	if err := repo.db.SelectContext(ctx, &sessions, q); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	for i := range sessions {
		utcSession(&sessions[i])
	}
	return sessions, nil
}

func (repo academicRepository) GetSession(ctx context.Context, id int) (academic.Session, error) {
	var sess academic.Session
	q := repo.db.Rebind("SELECT id, start_date, end_date, created_at, updated_at FROM academic_session WHERE id = ?")
	if err := repo.db.GetContext(ctx, &sess, q, id); err != nil {
		return academic.Session{}, trapNoRowsErr(err, academic.ErrSessionNotFound, "finding session")
	}
	utcSession(&sess)
	return sess, nil
}

func (repo academicRepository) UpdateSession(ctx context.Context, sess academic.Session) (academic.Session, error) {
	err := repo.execOne(ctx, academic.ErrSessionNotFound, "updating session",
		"UPDATE academic_session SET start_date = ?, end_date = ?, updated_at = ? WHERE id = ?",
		sess.StartDate.UTC(), sess.EndDate.UTC(), sess.UpdatedAt.UTC(), sess.ID)
	if err != nil {
		return academic.Session{}, err
	}
	return repo.GetSession(ctx, sess.ID)
}

func (repo academicRepository) DeleteSession(ctx context.Context, id int) error {
	return repo.execOne(ctx, academic.ErrSessionNotFound, "deleting session", "DELETE FROM academic_session WHERE id = ?", id)
}

func (repo academicRepository) SessionExists(ctx context.Context, id int) (bool, error) {
	return repo.exists(ctx, "academic_session", id)
}

// Subjects

const subjectColumns = "id, name, staff_id, course_id, created_at, updated_at"

func (repo academicRepository) CreateSubject(ctx context.Context, subj academic.Subject) (academic.Subject, error) {
	id, err := repo.insert(ctx, "inserting subject",
		"INSERT INTO subject (name, staff_id, course_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		subj.Name, subj.StaffID, subj.CourseID, subj.CreatedAt.UTC(), subj.UpdatedAt.UTC())
	if err != nil {
		return academic.Subject{}, err
	}
	return repo.GetSubject(ctx, id)
}

func (repo academicRepository) QuerySubjects(ctx context.Context, filter *academic.SubjectFilter, ordering []core.DBOrdering) ([]academic.Subject, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		if filter.Search != "" {
			where = append(where, "LOWER(name) LIKE ?")
			args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		}
		if filter.StaffID != 0 {
			where = append(where, "staff_id = ?")
			args = append(args, filter.StaffID)
		}
		if filter.CourseID != 0 {
			where = append(where, "course_id = ?")
			args = append(args, filter.CourseID)
		}
	}

	q := "SELECT " + subjectColumns + " FROM subject"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += orderBy(core.WithoutUnknownFields(ordering, sortableSubjectColumns))

	subjects := make([]academic.Subject, 0)
	if err := repo.db.SelectContext(ctx, &subjects, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	for i := range subjects {
		subjects[i].CreatedAt = subjects[i].CreatedAt.UTC()
		subjects[i].UpdatedAt = subjects[i].UpdatedAt.UTC()
	}
	return subjects, nil
}

func (repo academicRepository) GetSubject(ctx context.Context, id int) (academic.Subject, error) {
	var subj academic.Subject
	q := repo.db.Rebind("SELECT " + subjectColumns + " FROM subject WHERE id = ?")
	if err := repo.db.GetContext(ctx, &subj, q, id); err != nil {
		return academic.Subject{}, trapNoRowsErr(err, academic.ErrSubjectNotFound, "finding subject")
	}
	subj.CreatedAt = subj.CreatedAt.UTC()
	subj.UpdatedAt = subj.UpdatedAt.UTC()
	return subj, nil
}

func (repo academicRepository) UpdateSubject(ctx context.Context, subj academic.Subject) (academic.Subject, error) {
	err := repo.execOne(ctx, academic.ErrSubjectNotFound, "updating subject",
		"UPDATE subject SET name = ?, staff_id = ?, course_id = ?, updated_at = ? WHERE id = ?",
		subj.Name, subj.StaffID, subj.CourseID, subj.UpdatedAt.UTC(), subj.ID)
	if err != nil {
		return academic.Subject{}, err
	}
	return repo.GetSubject(ctx, subj.ID)
}

func (repo academicRepository) DeleteSubject(ctx context.Context, id int) error {
	return repo.execOne(ctx, academic.ErrSubjectNotFound, "deleting subject", "DELETE FROM subject WHERE id = ?", id)
}
