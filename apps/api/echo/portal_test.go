package echoapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/testutil"
)

func TestPortal_Me(t *testing.T) {
	f := setup(t)
	acc, _, cookie := f.createAndLogin(t, "b@x.com", account.RoleStaff)

	rec := f.do(httpTest{method: http.MethodGet, path: "/me", cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res accountResult
	unmarshall(t, rec, &res)
	assert.Equal(t, acc.ID, res.Account.ID)
	assert.Equal(t, float64(acc.ID), res.Profile["account_id"])
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestPortal_PushToken(t *testing.T) {
	f := setup(t)
	acc, _, cookie := f.createAndLogin(t, "b@x.com", account.RoleStudent)

	tests := []httpTest{
		{name: "missing", body: []byte(`{"token": "  "}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"token": "this field is required"}`)},
		{name: "valid", body: []byte(`{"token": " fcm-123 "}`),
			wantCode: http.StatusOK, wantData: []byte(`{"success": "Push token updated."}`)},
		{name: "anonymous", body: []byte(`{"token": "fcm-456"}`), wantCode: http.StatusFound, wantLoc: "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/push-token"
			if tt.name != "anonymous" {
				tt.cookie = cookie
			}
			checkCodeAndData(t, tt, f.do(tt))
		})
	}

	got, err := f.accRepo.GetAccount(context.Background(), account.GetFilter{ID: acc.ID})
	require.NoError(t, err)
	assert.Equal(t, "fcm-123", got.PushToken)
}

func TestPortal_AdminHome(t *testing.T) {
	f := setup(t)
	_, _, cookie := f.createAndLogin(t, "admin@x.com", account.RoleAdmin)
	_, prof := testutil.CreateAccount(t, f.accRepo, "staff@x.com", strongPwd, account.RoleStaff)
	testutil.CreateAccount(t, f.accRepo, "s1@x.com", strongPwd, account.RoleStudent)
	testutil.CreateAccount(t, f.accRepo, "s2@x.com", strongPwd, account.RoleStudent)
	course := testutil.CreateCourse(t, f.acadRepo, "Physics")
	_, err := f.acadRepo.CreateSubject(context.Background(), academic.Subject{
		Name: "Optics", StaffID: prof.(*account.StaffProfile).ID, CourseID: course.ID,
	})
	require.NoError(t, err)

	rec := f.do(httpTest{method: http.MethodGet, path: "/admin/home", cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res AdminHomeResponse
	unmarshall(t, rec, &res)
	assert.Equal(t, access.EndpointAdminHome, res.Page)
	assert.Equal(t, "admin@x.com", res.Account.Email)
	assert.Equal(t, 1, res.Admins)
	assert.Equal(t, 1, res.Staff)
	assert.Equal(t, 2, res.Students)
	assert.Equal(t, 1, res.Courses)
	assert.Equal(t, 1, res.Subjects)
}

func TestPortal_Staff(t *testing.T) {
	f := setup(t)
	_, prof, cookie := f.createAndLogin(t, "staff@x.com", account.RoleStaff)
	_, otherProf := testutil.CreateAccount(t, f.accRepo, "other@x.com", strongPwd, account.RoleStaff)
	course := testutil.CreateCourse(t, f.acadRepo, "Physics")
	for _, subj := range []academic.Subject{
		{Name: "Optics", StaffID: prof.(*account.StaffProfile).ID, CourseID: course.ID},
		{Name: "Mechanics", StaffID: prof.(*account.StaffProfile).ID, CourseID: course.ID},
		{Name: "Chemistry", StaffID: otherProf.(*account.StaffProfile).ID, CourseID: course.ID},
	} {
		_, err := f.acadRepo.CreateSubject(context.Background(), subj)
		require.NoError(t, err)
	}
	subjectNames := func(subjects []academic.Subject) []string {
		names := make([]string, 0, len(subjects))
		for _, s := range subjects {
			names = append(names, s.Name)
		}
		return names
	}

	t.Run("home", func(t *testing.T) {
		rec := f.do(httpTest{method: http.MethodGet, path: "/staff/home", cookie: cookie})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res struct {
			Page     string             `json:"page"`
			Subjects []academic.Subject `json:"subjects"`
		}
		unmarshall(t, rec, &res)
		assert.Equal(t, access.EndpointStaffHome, res.Page)
		assert.Equal(t, []string{"Optics", "Mechanics"}, subjectNames(res.Subjects))
	})

	t.Run("subjects", func(t *testing.T) {
		rec := f.do(httpTest{method: http.MethodGet, path: "/staff/subjects?ordering=name", cookie: cookie})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var subjects []academic.Subject
		unmarshall(t, rec, &subjects)
		assert.Equal(t, []string{"Mechanics", "Optics"}, subjectNames(subjects))
	})
}

func TestPortal_StudentHome(t *testing.T) {
	f := setup(t)
	course := testutil.CreateCourse(t, f.acadRepo, "Physics")
	sess := testutil.CreateSession(t, f.acadRepo, "2024-09-01", "2025-06-30")
	_, _, err := f.srv.deps.AccountSvc.Register(context.Background(), account.NewAccount{
		Email:     "student@x.com",
		Password:  strongPwd,
		Role:      account.RoleStudent,
		FirstName: "Ann",
		LastName:  "Lee",
		Gender:    account.GenderFemale,
		CourseID:  &course.ID,
		SessionID: &sess.ID,
	})
	require.NoError(t, err)
	cookie := f.login(t, "student@x.com", strongPwd)

	rec := f.do(httpTest{method: http.MethodGet, path: "/student/home", cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Page    string            `json:"page"`
		Course  *academic.Course  `json:"course"`
		Session *academic.Session `json:"session"`
	}
	unmarshall(t, rec, &res)
	assert.Equal(t, access.EndpointStudentHome, res.Page)
	require.NotNil(t, res.Course)
	assert.Equal(t, "Physics", res.Course.Name)
	require.NotNil(t, res.Session)
	assert.Equal(t, sess.ID, res.Session.ID)

	t.Run("no course", func(t *testing.T) {
		_, _, cookie := f.createAndLogin(t, "new@x.com", account.RoleStudent)
		rec := f.do(httpTest{method: http.MethodGet, path: "/student/home", cookie: cookie})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res struct {
			Course  *academic.Course  `json:"course"`
			Session *academic.Session `json:"session"`
		}
		unmarshall(t, rec, &res)
		assert.Nil(t, res.Course)
		assert.Nil(t, res.Session)
	})
}

func TestPortal_UpdateProfile(t *testing.T) {
	f := setup(t)
	acc, _, cookie := f.createAndLogin(t, "staff@x.com", account.RoleStaff)
	newPwd := "N3w!Passw0rd"

	tests := []httpTest{
		{name: "bad gender", path: "/staff/profile", body: []byte(`{"gender": "X"}`), wantCode: http.StatusBadRequest},
		{name: "passwords mismatch", path: "/staff/profile",
			body: []byte(`{"password": "` + newPwd + `", "password_confirm": "nope"}`), wantCode: http.StatusBadRequest},
		{name: "wrong area", path: "/student/profile", body: []byte(`{"first_name": "Bob"}`),
			wantCode: http.StatusFound, wantLoc: "/staff/home"},
		{name: "valid", path: "/staff/profile",
			body:     []byte(`{"first_name": " Bob ", "password": "` + newPwd + `", "password_confirm": "` + newPwd + `"}`),
			wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPut
			tt.cookie = cookie
			checkCodeAndData(t, tt, f.do(tt))
		})
	}

	got, err := f.accRepo.GetAccount(context.Background(), account.GetFilter{ID: acc.ID})
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.FirstName)
	assert.Equal(t, acc.Email, got.Email)
	assert.Equal(t, account.RoleStaff, got.Role)
	assert.WithinDuration(t, time.Now(), got.UpdatedAt, time.Minute)

	f.login(t, "staff@x.com", newPwd)
}
