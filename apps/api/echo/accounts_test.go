package echoapi

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/testutil"
)

type accountResult struct {
	Account account.Account        `json:"account"`
	Profile map[string]interface{} `json:"profile"`
}

func TestAccountApi_Create(t *testing.T) {
	f := setup(t)
	_, _, cookie := f.createAndLogin(t, "admin@x.com", account.RoleAdmin)
	course := testutil.CreateCourse(t, f.acadRepo, "Physics")

	newAccount := func(email string, role account.Role, courseID *int) []byte {
		return marshallObj(t, account.NewAccount{
			Email:           email,
			Password:        strongPwd,
			PasswordConfirm: strongPwd,
			Role:            role,
			FirstName:       "Jane",
			LastName:        "Doe",
			Gender:          account.GenderFemale,
			CourseID:        courseID,
		})
	}
	unknownCourse := 999

	tests := []httpTest{
		{name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "duplicate email", body: newAccount(" ADMIN@x.com", account.RoleStaff, nil), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "an account with this email already exists"}`)},
		{name: "unknown course", body: newAccount("jane@x.com", account.RoleStaff, &unknownCourse), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"course_id": "course not found"}`)},
		{name: "course for admin", body: newAccount("jane@x.com", account.RoleAdmin, &course.ID), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"course_id": "this field is not allowed for this role"}`)},
		{name: "invalid role", body: newAccount("jane@x.com", account.Role(9), nil), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"role": "invalid role"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/admin/accounts"
			tt.cookie = cookie
			checkCodeAndData(t, tt, f.do(tt))
		})
	}

	t.Run("staff", func(t *testing.T) {
		rec := f.do(httpTest{
			method: http.MethodPost,
			path:   "/admin/accounts",
			body:   newAccount("Jane@X.com ", account.RoleStaff, &course.ID),
			cookie: cookie,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var res accountResult
		unmarshall(t, rec, &res)
		assert.Equal(t, "jane@x.com", res.Account.Email)
		assert.Equal(t, account.RoleStaff, res.Account.Role)
		assert.Equal(t, float64(course.ID), res.Profile["course_id"])

		prof, err := f.accRepo.GetProfile(context.Background(), res.Account)
		require.NoError(t, err)
		assert.IsType(t, &account.StaffProfile{}, prof)
		for _, role := range []account.Role{account.RoleAdmin, account.RoleStudent} {
			_, err = f.accRepo.GetProfile(context.Background(), account.Account{ID: res.Account.ID, Role: role})
			assert.Equal(t, account.ErrProfileNotFound, err, "no %s profile", role)
		}

		// the new account can log in
		f.login(t, "jane@x.com", strongPwd)
	})
}

func TestAccountApi_Query(t *testing.T) {
	f := setup(t)
	admin, _, cookie := f.createAndLogin(t, "admin@x.com", account.RoleAdmin)
	past := time.Date(2020, time.March, 10, 12, 0, 0, 0, time.UTC)
	staff, _ := testutil.CreateAccount(t, f.accRepo, "staff@x.com", strongPwd, account.RoleStaff, past)
	student, _ := testutil.CreateAccount(t, f.accRepo, "student@x.com", strongPwd, account.RoleStudent)

	ids := func(rec []account.Account) []int {
		res := make([]int, 0, len(rec))
		for _, acc := range rec {
			res = append(res, acc.ID)
		}
		return res
	}

	tests := []struct {
		name  string
		query string
		want  []int
	}{
		{name: "all", query: "", want: []int{admin.ID, staff.ID, student.ID}},
		{name: "role", query: "?role=2", want: []int{staff.ID}},
		{name: "roles", query: "?role=2&role=3", want: []int{staff.ID, student.ID}},
		{name: "search", query: "?search=STUD", want: []int{student.ID}},
		{name: "created to", query: "?created_to=2020-03-10", want: []int{staff.ID}},
		{name: "created from", query: "?created_from=2020-03-11", want: []int{admin.ID, student.ID}},
		{name: "ordering", query: "?ordering=-email", want: []int{student.ID, staff.ID, admin.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(httpTest{method: http.MethodGet, path: "/admin/accounts" + tt.query, cookie: cookie})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var got []account.Account
			unmarshall(t, rec, &got)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	t.Run("bad date", func(t *testing.T) {
		tt := httpTest{method: http.MethodGet, path: "/admin/accounts?created_from=10/03/2020", cookie: cookie,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"created_from": "expected format YYYY-MM-DD"}`)}
		checkCodeAndData(t, tt, f.do(tt))
	})
}

func TestAccountApi_Detail(t *testing.T) {
	f := setup(t)
	admin, _, cookie := f.createAndLogin(t, "admin@x.com", account.RoleAdmin)
	student, _ := testutil.CreateAccount(t, f.accRepo, "student@x.com", strongPwd, account.RoleStudent)
	testutil.CreateAccount(t, f.accRepo, "other@x.com", strongPwd, account.RoleStudent)
	course := testutil.CreateCourse(t, f.acadRepo, "Physics")
	path := "/admin/accounts/" + strconv.Itoa(student.ID)

	t.Run("retrieve", func(t *testing.T) {
		rec := f.do(httpTest{method: http.MethodGet, path: path, cookie: cookie})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res accountResult
		unmarshall(t, rec, &res)
		assert.Equal(t, student.ID, res.Account.ID)
		assert.Contains(t, res.Profile, "session_id")
	})

	t.Run("update", func(t *testing.T) {
		body := []byte(`{"first_name": "Janet", "role": 1, "course_id": ` + strconv.Itoa(course.ID) + `}`)
		rec := f.do(httpTest{method: http.MethodPut, path: path, body: body, cookie: cookie})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res accountResult
		unmarshall(t, rec, &res)
		assert.Equal(t, "Janet", res.Account.FirstName)
		assert.Equal(t, "student@x.com", res.Account.Email)
		assert.Equal(t, account.RoleStudent, res.Account.Role, "role is immutable")
		assert.Equal(t, float64(course.ID), res.Profile["course_id"])
	})

	tests := []httpTest{
		{name: "email taken", method: http.MethodPut, path: path, body: []byte(`{"email": "other@x.com"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"email": "an account with this email already exists"}`)},
		{name: "passwords mismatch", method: http.MethodPut, path: path, body: []byte(`{"password": "N3w!Passw0rd"}`),
			wantCode: http.StatusBadRequest},
		{name: "delete self", method: http.MethodDelete, path: "/admin/accounts/" + strconv.Itoa(admin.ID),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"})},
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
