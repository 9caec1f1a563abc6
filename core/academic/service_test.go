package academic_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/testutil"
)

type fixture struct {
	ctx      context.Context
	accRepo  account.Repository
	repo     academic.Repository
	svc      academic.Service
	validate *validator.Validate
}

func setup(t *testing.T) fixture {
	conf := testutil.NewConfig()
	validate, _ := testutil.NewValidator(t)

	db := inmemdb.Open()
	accRepo := inmemdb.NewAccountRepository(db)
	repo := inmemdb.NewAcademicRepository(db)
	accSvc := account.NewService(accRepo, repo, emailsvc.NewConsoleServiceMock(conf), conf)

	return fixture{
		ctx:      context.Background(),
		accRepo:  accRepo,
		repo:     repo,
		svc:      academic.NewService(repo, accSvc),
		validate: validate,
	}
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()

	res := make(map[string]string)
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		for _, fe := range vErrs {
			res[fe.Field()] = fe.Tag()
		}
		return res
	}
	var valErr *core.ValidationError
	if errors.As(err, &valErr) {
		for _, fe := range valErr.Fields {
			res[fe.Field] = fe.Error
		}
		return res
	}
	t.Fatalf("unexpected error type %T: %v", err, err)
	return nil
}

func TestNewSession_Validate(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name  string
		start string
		end   string
		want  map[string]string
	}{
		{name: "valid", start: "2021-01-01", end: "2021-12-31"},
		{name: "same day", start: "2021-01-01", end: "2021-01-01"},
		{name: "missing", want: map[string]string{"start_date": "required", "end_date": "required"}},
		{name: "bad format", start: "01/01/2021", end: "2021-12-31", want: map[string]string{"start_date": "datetime"}},
		{name: "ends before start", start: "2021-12-31", end: "2021-01-01", want: map[string]string{"end_date": "sessiondates"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := academic.NewSession{StartDate: tt.start, EndDate: tt.end}
			err := ns.Validate(f.validate)
			if tt.want == nil {
				require.NoError(t, err)
				start, end := ns.Dates()
				assert.Equal(t, tt.start, start.Format("2006-01-02"))
				assert.Equal(t, tt.end, end.Format("2006-01-02"))
				return
			}
			assert.Equal(t, tt.want, validationFields(t, err))
		})
	}
}

func TestService_Courses(t *testing.T) {
	f := setup(t)

	nc := academic.NewCourse{Name: "   "}
	assert.Equal(t, map[string]string{"name": "required"}, validationFields(t, nc.Validate(f.validate)))

	nc = academic.NewCourse{Name: "  Computer Science "}
	require.NoError(t, nc.Validate(f.validate))
	course, err := f.svc.CreateCourse(f.ctx, nc)
	require.NoError(t, err)
	assert.Equal(t, "Computer Science", course.Name)

	course, err = f.svc.UpdateCourse(f.ctx, course, academic.UpdateCourse{Name: "CS"})
	require.NoError(t, err)
	got, err := f.svc.GetCourse(f.ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, "CS", got.Name)

	courses, err := f.svc.QueryCourses(f.ctx, &academic.QueryFilter{Search: "cs"}, nil)
	require.NoError(t, err)
	assert.Len(t, courses, 1)

	require.NoError(t, f.svc.DeleteCourse(f.ctx, course.ID))
	assert.Equal(t, academic.ErrCourseNotFound, f.svc.DeleteCourse(f.ctx, course.ID))
}

func TestService_Subjects(t *testing.T) {
	f := setup(t)
	course := testutil.CreateCourse(t, f.repo, "Science")
	_, prof := testutil.CreateAccount(t, f.accRepo, "staff@x.com", "pw", account.RoleStaff)
	staffID := prof.(*account.StaffProfile).ID

	t.Run("unknown references", func(t *testing.T) {
		_, err := f.svc.CreateSubject(f.ctx, academic.NewSubject{Name: "Physics", StaffID: 404, CourseID: 404})
		assert.Equal(t, map[string]string{
			"staff_id":  academic.ErrStaffNotFound.Error(),
			"course_id": academic.ErrCourseNotFound.Error(),
		}, validationFields(t, err))
	})

	subj, err := f.svc.CreateSubject(f.ctx, academic.NewSubject{Name: "Physics", StaffID: staffID, CourseID: course.ID})
	require.NoError(t, err)

	t.Run("partial update", func(t *testing.T) {
		us := academic.UpdateSubject{Name: "Chemistry"}
		require.NoError(t, us.Validate(subj, f.validate))
		got, err := f.svc.UpdateSubject(f.ctx, subj, us)
		require.NoError(t, err)
		assert.Equal(t, "Chemistry", got.Name)
		assert.Equal(t, staffID, got.StaffID)
		assert.Equal(t, course.ID, got.CourseID)
	})

	t.Run("update to unknown course", func(t *testing.T) {
		us := academic.UpdateSubject{CourseID: 404}
		require.NoError(t, us.Validate(subj, f.validate))
		_, err := f.svc.UpdateSubject(f.ctx, subj, us)
		assert.Equal(t, map[string]string{"course_id": academic.ErrCourseNotFound.Error()}, validationFields(t, err))
	})

	t.Run("filter by staff", func(t *testing.T) {
		subjects, err := f.svc.QuerySubjects(f.ctx, &academic.SubjectFilter{StaffID: staffID}, nil)
		require.NoError(t, err)
		require.Len(t, subjects, 1)
		assert.Equal(t, subj.ID, subjects[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, f.svc.DeleteSubject(f.ctx, subj.ID))
		_, err := f.svc.GetSubject(f.ctx, subj.ID)
		assert.Equal(t, academic.ErrSubjectNotFound, err)
	})
}
