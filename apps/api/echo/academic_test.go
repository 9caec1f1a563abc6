package echoapi

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/testutil"
)

func TestAcademicApi_Courses(t *testing.T) {
	f := setup(t)
	_, _, cookie := f.createAndLogin(t, "admin@x.com", account.RoleAdmin)
	testutil.CreateCourse(t, f.acadRepo, "Physics")

	var created academic.Course
	t.Run("create", func(t *testing.T) {
		rec := f.do(httpTest{method: http.MethodPost, path: "/admin/courses", body: []byte(`{"name": "  Applied Maths "}`), cookie: cookie})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarshall(t, rec, &created)
		assert.Equal(t, "Applied Maths", created.Name)
		assert.NotZero(t, created.ID)
	})
	path := "/admin/courses/" + strconv.Itoa(created.ID)

	t.Run("query", func(t *testing.T) {
		for query, want := range map[string][]string{
			"":                {"Physics", "Applied Maths"},
			"?search=MATH":    {"Applied Maths"},
			"?ordering=name":  {"Applied Maths", "Physics"},
			"?ordering=-name": {"Physics", "Applied Maths"},
			"?search=biology": {},
		} {
			rec := f.do(httpTest{method: http.MethodGet, path: "/admin/courses" + query, cookie: cookie})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var courses []academic.Course
			unmarshall(t, rec, &courses)
			names := make([]string, 0, len(courses))
			for _, c := range courses {
				names = append(names, c.Name)
			}
			assert.Equal(t, want, names, "query %q", query)
		}
	})

	tests := []httpTest{
		{name: "create blank", method: http.MethodPost, path: "/admin/courses", body: []byte(`{"name": "   "}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"name": "this field is required"}`)},
		{name: "retrieve", method: http.MethodGet, path: path, wantCode: http.StatusOK},
		{name: "update", method: http.MethodPut, path: path, body: []byte(`{"name": "Pure Maths"}`), wantCode: http.StatusOK},
		{name: "update blank", method: http.MethodPut, path: path, body: []byte(`{"name": ""}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"name": "this field is required"}`)},
		{name: "delete", method: http.MethodDelete, path: path, wantCode: http.StatusNoContent},
		{name: "deleted", method: http.MethodGet, path: path,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "not found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cookie = cookie
			checkCodeAndData(t, tt, f.do(tt))
		})
	}
}

func TestAcademicApi_Sessions(t *testing.T) {
	f := setup(t)
	_, _, cookie := f.createAndLogin(t, "admin@x.com", account.RoleAdmin)

	var created academic.Session
	t.Run("create", func(t *testing.T) {
		rec := f.do(httpTest{method: http.MethodPost, path: "/admin/sessions",
			body: []byte(`{"start_date": "2024-09-01", "end_date": "2025-06-30"}`), cookie: cookie})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarshall(t, rec, &created)
		assert.Equal(t, "2024-09-01", created.StartDate.Format("2006-01-02"))
		assert.Equal(t, "2025-06-30", created.EndDate.Format("2006-01-02"))
	})
	path := "/admin/sessions/" + strconv.Itoa(created.ID)

	t.Run("update", func(t *testing.T) {
		rec := f.do(httpTest{method: http.MethodPut, path: path,
			body: []byte(`{"start_date": "2024-09-02", "end_date": "2025-07-01"}`), cookie: cookie})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got academic.Session
		unmarshall(t, rec, &got)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "2024-09-02", got.StartDate.Format("2006-01-02"))
	})

	tests := []httpTest{
		{name: "end before start", method: http.MethodPost, path: "/admin/sessions",
			body:     []byte(`{"start_date": "2025-06-30", "end_date": "2024-09-01"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"end_date": "end date cannot precede start date"}`)},
		{name: "bad date format", method: http.MethodPost, path: "/admin/sessions",
			body:     []byte(`{"start_date": "01/09/2024", "end_date": "2025-06-30"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"start_date": "date must be formatted as YYYY-MM-DD"}`)},
		{name: "missing dates", method: http.MethodPost, path: "/admin/sessions", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"start_date": "this field is required", "end_date": "this field is required"}`)},
		{name: "retrieve", method: http.MethodGet, path: path, wantCode: http.StatusOK},
		{name: "delete", method: http.MethodDelete, path: path, wantCode: http.StatusNoContent},
		{name: "deleted", method: http.MethodGet, path: path,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "not found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cookie = cookie
			checkCodeAndData(t, tt, f.do(tt))
		})
	}
}

func TestAcademicApi_Subjects(t *testing.T) {
	f := setup(t)
	_, _, cookie := f.createAndLogin(t, "admin@x.com", account.RoleAdmin)
	_, prof := testutil.CreateAccount(t, f.accRepo, "staff@x.com", strongPwd, account.RoleStaff)
	_, otherProf := testutil.CreateAccount(t, f.accRepo, "other@x.com", strongPwd, account.RoleStaff)
	staffID := prof.(*account.StaffProfile).ID
	otherStaffID := otherProf.(*account.StaffProfile).ID
	course := testutil.CreateCourse(t, f.acadRepo, "Physics")

	newSubject := func(name string, staffID, courseID int) []byte {
		return marshallObj(t, academic.NewSubject{Name: name, StaffID: staffID, CourseID: courseID})
	}

	var created academic.Subject
	t.Run("create", func(t *testing.T) {
		rec := f.do(httpTest{method: http.MethodPost, path: "/admin/subjects", body: newSubject(" Optics ", staffID, course.ID), cookie: cookie})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarshall(t, rec, &created)
		assert.Equal(t, academic.Subject{
			ID:        created.ID,
			Name:      "Optics",
			StaffID:   staffID,
			CourseID:  course.ID,
			CreatedAt: created.CreatedAt,
			UpdatedAt: created.UpdatedAt,
		}, created)
	})
	path := "/admin/subjects/" + strconv.Itoa(created.ID)

	rec := f.do(httpTest{method: http.MethodPost, path: "/admin/subjects", body: newSubject("Mechanics", otherStaffID, course.ID), cookie: cookie})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	t.Run("query by staff", func(t *testing.T) {
		rec := f.do(httpTest{method: http.MethodGet, path: "/admin/subjects?staff_id=" + strconv.Itoa(staffID), cookie: cookie})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var subjects []academic.Subject
		unmarshall(t, rec, &subjects)
		require.Len(t, subjects, 1)
		assert.Equal(t, created.ID, subjects[0].ID)
	})

	t.Run("update keeps refs", func(t *testing.T) {
		rec := f.do(httpTest{method: http.MethodPut, path: path, body: []byte(`{"name": "Optics II"}`), cookie: cookie})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got academic.Subject
		unmarshall(t, rec, &got)
		assert.Equal(t, "Optics II", got.Name)
		assert.Equal(t, staffID, got.StaffID)
		assert.Equal(t, course.ID, got.CourseID)
	})

	unknownID := 999
	tests := []httpTest{
		{name: "unknown refs", method: http.MethodPost, path: "/admin/subjects", body: newSubject("Optics", unknownID, unknownID),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"staff_id": "staff not found", "course_id": "course not found"}`)},
		{name: "missing fields", method: http.MethodPost, path: "/admin/subjects", body: []byte(`{"name": "Optics"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"staff_id": "this field is required", "course_id": "this field is required"}`)},
		{name: "update to unknown staff", method: http.MethodPut, path: path, body: []byte(`{"staff_id": 999}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"staff_id": "staff not found"}`)},
		{name: "reassign", method: http.MethodPut, path: path, body: []byte(`{"staff_id": ` + strconv.Itoa(otherStaffID) + `}`),
			wantCode: http.StatusOK},
		{name: "delete", method: http.MethodDelete, path: path, wantCode: http.StatusNoContent},
		{name: "deleted", method: http.MethodGet, path: path,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "not found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cookie = cookie
			checkCodeAndData(t, tt, f.do(tt))
		})
	}
}
