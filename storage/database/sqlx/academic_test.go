package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/storage/database/sqlboiler"
	"github.com/trezcool/academia/storage/database/sqlx"
	"github.com/trezcool/academia/testutil"
)

func setup(t *testing.T) (academic.Repository, account.Repository, context.Context) {
	db := testutil.PrepareDB(t)
	return sqlxrepos.NewAcademicRepository(db), boiledrepos.NewAccountRepository(db), context.Background()
}

func TestAcademicRepository_Courses(t *testing.T) {
	repo, _, ctx := setup(t)

	maths := testutil.CreateCourse(t, repo, "Mathematics")
	bio := testutil.CreateCourse(t, repo, "Biology")
	assert.NotZero(t, maths.ID)

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name     string
			filter   *academic.QueryFilter
			ordering []core.DBOrdering
			want     []int
		}{
			{name: "all", want: []int{maths.ID, bio.ID}},
			{name: "search", filter: &academic.QueryFilter{Search: "MATH"}, want: []int{maths.ID}},
			{name: "order by name", ordering: []core.DBOrdering{{Field: "name", Ascending: true}}, want: []int{bio.ID, maths.ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				courses, err := repo.QueryCourses(ctx, tt.filter, tt.ordering)
				require.NoError(t, err)
				got := make([]int, 0, len(courses))
				for _, c := range courses {
					got = append(got, c.ID)
				}
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("update", func(t *testing.T) {
		maths.Name = "Maths"
		got, err := repo.UpdateCourse(ctx, maths)
		require.NoError(t, err)
		assert.Equal(t, "Maths", got.Name)

		_, err = repo.UpdateCourse(ctx, academic.Course{ID: 404, Name: "x"})
		assert.Equal(t, academic.ErrCourseNotFound, err)
	})

	t.Run("exists & delete", func(t *testing.T) {
		exists, err := repo.CourseExists(ctx, bio.ID)
		require.NoError(t, err)
		assert.True(t, exists)

		require.NoError(t, repo.DeleteCourse(ctx, bio.ID))
		assert.Equal(t, academic.ErrCourseNotFound, repo.DeleteCourse(ctx, bio.ID))

		_, err = repo.GetCourse(ctx, bio.ID)
		assert.Equal(t, academic.ErrCourseNotFound, err)
	})
}

func TestAcademicRepository_Sessions(t *testing.T) {
	repo, _, ctx := setup(t)

	s2021 := testutil.CreateSession(t, repo, "2021-01-01", "2021-12-31")
	s2020 := testutil.CreateSession(t, repo, "2020-01-01", "2020-12-31")

	got, err := repo.GetSession(ctx, s2021.ID)
	require.NoError(t, err)
	assert.True(t, got.StartDate.Equal(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)), "StartDate = %v", got.StartDate)

	sessions, err := repo.QuerySessions(ctx, []core.DBOrdering{{Field: "start_date", Ascending: true}})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, s2020.ID, sessions[0].ID)

	s2020.EndDate = time.Date(2020, 6, 30, 0, 0, 0, 0, time.UTC)
	got, err = repo.UpdateSession(ctx, s2020)
	require.NoError(t, err)
	assert.True(t, got.EndDate.Equal(s2020.EndDate))

	require.NoError(t, repo.DeleteSession(ctx, s2020.ID))
	exists, err := repo.SessionExists(ctx, s2020.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAcademicRepository_Subjects(t *testing.T) {
	repo, accRepo, ctx := setup(t)

	course := testutil.CreateCourse(t, repo, "Science")
	other := testutil.CreateCourse(t, repo, "Arts")
	_, prof := testutil.CreateAccount(t, accRepo, "staff@x.com", "pw", account.RoleStaff)
	staffID := prof.(*account.StaffProfile).ID

	now := time.Now().UTC()
	physics, err := repo.CreateSubject(ctx, academic.Subject{
		Name: "Physics", StaffID: staffID, CourseID: course.ID, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	drawing, err := repo.CreateSubject(ctx, academic.Subject{
		Name: "Drawing", StaffID: staffID, CourseID: other.ID, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter *academic.SubjectFilter
		want   []int
	}{
		{name: "all", want: []int{physics.ID, drawing.ID}},
		{name: "by course", filter: &academic.SubjectFilter{CourseID: other.ID}, want: []int{drawing.ID}},
		{name: "by staff", filter: &academic.SubjectFilter{StaffID: staffID}, want: []int{physics.ID, drawing.ID}},
		{name: "search", filter: &academic.SubjectFilter{Search: "phy"}, want: []int{physics.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subjects, err := repo.QuerySubjects(ctx, tt.filter, nil)
			require.NoError(t, err)
			got := make([]int, 0, len(subjects))
			for _, s := range subjects {
				got = append(got, s.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("course deletion cascades", func(t *testing.T) {
		require.NoError(t, repo.DeleteCourse(ctx, other.ID))
		_, err := repo.GetSubject(ctx, drawing.ID)
		assert.Equal(t, academic.ErrSubjectNotFound, err)
	})

	t.Run("staff deletion cascades", func(t *testing.T) {
		_, err := accRepo.DeleteAccountsByID(ctx, prof.GetAccountID())
		require.NoError(t, err)
		_, err = repo.GetSubject(ctx, physics.ID)
		assert.Equal(t, academic.ErrSubjectNotFound, err)
	})
}
