package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
)

type academicRepository struct {
	db *DB
}

var _ academic.Repository = (*academicRepository)(nil)

func NewAcademicRepository(db *DB) academic.Repository {
	return &academicRepository{db: db}
}

// Courses

func (repo *academicRepository) CreateCourse(_ context.Context, course academic.Course) (academic.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	course.ID = repo.db.nextID("course")
	stored := course
	repo.db.courses[course.ID] = &stored
	return course, nil
}

func (repo *academicRepository) QueryCourses(_ context.Context, filter *academic.QueryFilter, ordering []core.DBOrdering) ([]academic.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]academic.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		if filter != nil && filter.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Search)) {
			continue
		}
		courses = append(courses, *c)
	}
	sort.SliceStable(courses, func(i, j int) bool {
		for _, ord := range ordering {
			var c int
			switch ord.Field {
			case "name":
				c = strings.Compare(courses[i].Name, courses[j].Name)
			case "created_at":
				c = compareTimes(courses[i].CreatedAt, courses[j].CreatedAt)
			}
			if c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

func (repo *academicRepository) GetCourse(_ context.Context, id int) (academic.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return academic.Course{}, academic.ErrCourseNotFound
}

func (repo *academicRepository) UpdateCourse(_ context.Context, course academic.Course) (academic.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[course.ID]; !ok {
		return academic.Course{}, academic.ErrCourseNotFound
	}
	stored := course
	repo.db.courses[course.ID] = &stored
	return course, nil
}

func (repo *academicRepository) DeleteCourse(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return academic.ErrCourseNotFound
	}
	delete(repo.db.courses, id)
	for subjID, subj := range repo.db.subjects {
		if subj.CourseID == id {
			delete(repo.db.subjects, subjID)
		}
	}
	for _, p := range repo.db.staff {
		if p.CourseID != nil && *p.CourseID == id {
			p.CourseID = nil
		}
	}
	for _, p := range repo.db.students {
		if p.CourseID != nil && *p.CourseID == id {
			p.CourseID = nil
		}
	}
	return nil
}

func (repo *academicRepository) CourseExists(_ context.Context, id int) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	_, ok := repo.db.courses[id]
	return ok, nil
}

// Sessions

func (repo *academicRepository) CreateSession(_ context.Context, sess academic.Session) (academic.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sess.ID = repo.db.nextID("academic_session")
	stored := sess
	repo.db.sessions[sess.ID] = &stored
	return sess, nil
}

func (repo *academicRepository) QuerySessions(_ context.Context, ordering []core.DBOrdering) ([]academic.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sessions := make([]academic.Session, 0, len(repo.db.sessions))
	for _, s := range repo.db.sessions {
		sessions = append(sessions, *s)
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		for _, ord := range ordering {
			var c int
			switch ord.Field {
			case "start_date":
				c = compareTimes(sessions[i].StartDate, sessions[j].StartDate)
			case "end_date":
				c = compareTimes(sessions[i].EndDate, sessions[j].EndDate)
			}
			if c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

func (repo *academicRepository) GetSession(_ context.Context, id int) (academic.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.sessions[id]; ok {
		return *s, nil
	}
	return academic.Session{}, academic.ErrSessionNotFound
}

func (repo *academicRepository) UpdateSession(_ context.Context, sess academic.Session) (academic.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.sessions[sess.ID]; !ok {
		return academic.Session{}, academic.ErrSessionNotFound
	}
	stored := sess
	repo.db.sessions[sess.ID] = &stored
	return sess, nil
}

func (repo *academicRepository) DeleteSession(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.sessions[id]; !ok {
		return academic.ErrSessionNotFound
	}
	delete(repo.db.sessions, id)
	for _, p := range repo.db.students {
		if p.SessionID != nil && *p.SessionID == id {
			p.SessionID = nil
		}
	}
	return nil
}

func (repo *academicRepository) SessionExists(_ context.Context, id int) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	_, ok := repo.db.sessions[id]
	return ok, nil
}

// Subjects

func (repo *academicRepository) CreateSubject(_ context.Context, subj academic.Subject) (academic.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	subj.ID = repo.db.nextID("subject")
	stored := subj
	repo.db.subjects[subj.ID] = &stored
	return subj, nil
}

func (repo *academicRepository) QuerySubjects(_ context.Context, filter *academic.SubjectFilter, ordering []core.DBOrdering) ([]academic.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subjects := make([]academic.Subject, 0, len(repo.db.subjects))
	for _, s := range repo.db.subjects {
		if filter != nil {
			if filter.Search != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(filter.Search)) {
				continue
			}
			if filter.StaffID != 0 && s.StaffID != filter.StaffID {
				continue
			}
			if filter.CourseID != 0 && s.CourseID != filter.CourseID {
				continue
			}
		}
		subjects = append(subjects, *s)
	}
	sort.SliceStable(subjects, func(i, j int) bool {
		for _, ord := range ordering {
			var c int
			switch ord.Field {
			case "name":
				c = strings.Compare(subjects[i].Name, subjects[j].Name)
			case "created_at":
				c = compareTimes(subjects[i].CreatedAt, subjects[j].CreatedAt)
			}
			if c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return subjects[i].ID < subjects[j].ID
	})
	return subjects, nil
}

func (repo *academicRepository) GetSubject(_ context.Context, id int) (academic.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.subjects[id]; ok {
		return *s, nil
	}
	return academic.Subject{}, academic.ErrSubjectNotFound
}

func (repo *academicRepository) UpdateSubject(_ context.Context, subj academic.Subject) (academic.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.subjects[subj.ID]; !ok {
		return academic.Subject{}, academic.ErrSubjectNotFound
	}
	stored := subj
	repo.db.subjects[subj.ID] = &stored
	return subj, nil
}

func (repo *academicRepository) DeleteSubject(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return academic.ErrSubjectNotFound
	}
	delete(repo.db.subjects, id)
	return nil
}
