package academic

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrCourseNotFound  = errors.New("course not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrSubjectNotFound = errors.New("subject not found")
	ErrStaffNotFound   = errors.New("staff not found")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, course Course) (Course, error)
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetCourse(ctx context.Context, id int) (Course, error)
		UpdateCourse(ctx context.Context, course Course) (Course, error)
		DeleteCourse(ctx context.Context, id int) error
		CourseExists(ctx context.Context, id int) (bool, error)

		CreateSession(ctx context.Context, sess Session) (Session, error)
		QuerySessions(ctx context.Context, ordering []core.DBOrdering) ([]Session, error)
		GetSession(ctx context.Context, id int) (Session, error)
		UpdateSession(ctx context.Context, sess Session) (Session, error)
		DeleteSession(ctx context.Context, id int) error
		SessionExists(ctx context.Context, id int) (bool, error)

		CreateSubject(ctx context.Context, subj Subject) (Subject, error)
		QuerySubjects(ctx context.Context, filter *SubjectFilter, ordering []core.DBOrdering) ([]Subject, error)
		GetSubject(ctx context.Context, id int) (Subject, error)
		UpdateSubject(ctx context.Context, subj Subject) (Subject, error)
		DeleteSubject(ctx context.Context, id int) error
	}

	// StaffDirectory tells whether a Staff profile exists.
	StaffDirectory interface {
		StaffExists(ctx context.Context, staffID int) (bool, error)
	}

	Service interface {
		CreateCourse(ctx context.Context, nc NewCourse) (Course, error)
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetCourse(ctx context.Context, id int) (Course, error)
		UpdateCourse(ctx context.Context, course Course, uc UpdateCourse) (Course, error)
		DeleteCourse(ctx context.Context, id int) error

		CreateSession(ctx context.Context, ns NewSession) (Session, error)
		QuerySessions(ctx context.Context, ordering []core.DBOrdering) ([]Session, error)
		GetSession(ctx context.Context, id int) (Session, error)
		UpdateSession(ctx context.Context, sess Session, us UpdateSession) (Session, error)
		DeleteSession(ctx context.Context, id int) error

		CreateSubject(ctx context.Context, ns NewSubject) (Subject, error)
		QuerySubjects(ctx context.Context, filter *SubjectFilter, ordering []core.DBOrdering) ([]Subject, error)
		GetSubject(ctx context.Context, id int) (Subject, error)
		UpdateSubject(ctx context.Context, subj Subject, us UpdateSubject) (Subject, error)
		DeleteSubject(ctx context.Context, id int) error
	}

	service struct {
		repo  Repository
		staff StaffDirectory
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, staff StaffDirectory) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(staff, "staff"),
	).CheckAndPanic()

	return &service{repo: repo, staff: staff}
}

// Courses

func (svc *service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	course, err := svc.repo.CreateCourse(ctx, Course{Name: nc.Name, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	return course, nil
}

func (svc *service) QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

func (svc *service) GetCourse(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) UpdateCourse(ctx context.Context, course Course, uc UpdateCourse) (Course, error) {
	course.Name = uc.Name
	course.UpdatedAt = time.Now().UTC()
	course, err := svc.repo.UpdateCourse(ctx, course)
	if err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	return course, nil
}

func (svc *service) DeleteCourse(ctx context.Context, id int) error {
	return svc.repo.DeleteCourse(ctx, id)
}

// Sessions

func (svc *service) CreateSession(ctx context.Context, ns NewSession) (Session, error) {
	now := time.Now().UTC()
	start, end := ns.Dates()
	sess, err := svc.repo.CreateSession(ctx, Session{StartDate: start, EndDate: end, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		return Session{}, errors.Wrap(err, "creating session")
	}
	return sess, nil
}

func (svc *service) QuerySessions(ctx context.Context, ordering []core.DBOrdering) ([]Session, error) {
	return svc.repo.QuerySessions(ctx, ordering)
}

func (svc *service) GetSession(ctx context.Context, id int) (Session, error) {
	return svc.repo.GetSession(ctx, id)
}

func (svc *service) UpdateSession(ctx context.Context, sess Session, us UpdateSession) (Session, error) {
	sess.StartDate, sess.EndDate = us.Dates()
	sess.UpdatedAt = time.Now().UTC()
	sess, err := svc.repo.UpdateSession(ctx, sess)
	if err != nil {
		return Session{}, errors.Wrap(err, "updating session")
	}
	return sess, nil
}

func (svc *service) DeleteSession(ctx context.Context, id int) error {
	return svc.repo.DeleteSession(ctx, id)
}

// Subjects

// checkSubjectRefs checks that the staff and course a Subject points to exist.
func (svc *service) checkSubjectRefs(ctx context.Context, staffID, courseID int) error {
	var fldErrs []core.FieldError

	exists, err := svc.staff.StaffExists(ctx, staffID)
	if err != nil {
		return errors.Wrap(err, "checking staff")
	}
	if !exists {
		fldErrs = append(fldErrs, core.FieldError{Field: "staff_id", Error: ErrStaffNotFound.Error()})
	}

	if exists, err = svc.repo.CourseExists(ctx, courseID); err != nil {
		return errors.Wrap(err, "checking course")
	}
	if !exists {
		fldErrs = append(fldErrs, core.FieldError{Field: "course_id", Error: ErrCourseNotFound.Error()})
	}

	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

func (svc *service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	if err := svc.checkSubjectRefs(ctx, ns.StaffID, ns.CourseID); err != nil {
		return Subject{}, err
	}

	now := time.Now().UTC()
	subj, err := svc.repo.CreateSubject(ctx, Subject{
		Name:      ns.Name,
		StaffID:   ns.StaffID,
		CourseID:  ns.CourseID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Subject{}, errors.Wrap(err, "creating subject")
	}
	return subj, nil
}

func (svc *service) QuerySubjects(ctx context.Context, filter *SubjectFilter, ordering []core.DBOrdering) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, filter, ordering)
}

func (svc *service) GetSubject(ctx context.Context, id int) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *service) UpdateSubject(ctx context.Context, subj Subject, us UpdateSubject) (Subject, error) {
	if us.StaffID != subj.StaffID || us.CourseID != subj.CourseID {
		if err := svc.checkSubjectRefs(ctx, us.StaffID, us.CourseID); err != nil {
			return Subject{}, err
		}
	}

	subj.Name = us.Name
	subj.StaffID = us.StaffID
	subj.CourseID = us.CourseID
	subj.UpdatedAt = time.Now().UTC()
	subj, err := svc.repo.UpdateSubject(ctx, subj)
	if err != nil {
		return Subject{}, errors.Wrap(err, "updating subject")
	}
	return subj, nil
}

func (svc *service) DeleteSubject(ctx context.Context, id int) error {
	return svc.repo.DeleteSubject(ctx, id)
}
