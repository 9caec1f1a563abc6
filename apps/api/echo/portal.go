package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/account"
)

type portalApi struct {
	srv *Server
}

type (
	PushTokenRequest struct {
		Token string `json:"token" form:"token" validate:"required,max=255"`
	}

	// ProfileUpdateRequest holds what an account may change about itself. Empty values keep the current ones.
	ProfileUpdateRequest struct {
		FirstName       string `json:"first_name" form:"first_name"`
		LastName        string `json:"last_name" form:"last_name"`
		Gender          string `json:"gender" form:"gender"`
		Address         string `json:"address" form:"address"`
		ProfilePic      string `json:"profile_pic" form:"profile_pic"`
		Password        string `json:"password" form:"password"`
		PasswordConfirm string `json:"password_confirm" form:"password_confirm"`
	}

	AdminHomeResponse struct {
		Page     string          `json:"page"`
		Account  account.Account `json:"account"`
		Admins   int             `json:"admins"`
		Staff    int             `json:"staff"`
		Students int             `json:"students"`
		Courses  int             `json:"courses"`
		Subjects int             `json:"subjects"`
	}

	StaffHomeResponse struct {
		Page     string             `json:"page"`
		Account  account.Account    `json:"account"`
		Profile  account.Profile    `json:"profile"`
		Subjects []academic.Subject `json:"subjects"`
	}

	StudentHomeResponse struct {
		Page    string            `json:"page"`
		Account account.Account   `json:"account"`
		Profile account.Profile   `json:"profile"`
		Course  *academic.Course  `json:"course"`
		Session *academic.Session `json:"session"`
	}
)

func (pr *PushTokenRequest) Validate(validate *validator.Validate) error {
	pr.Token = core.CleanString(pr.Token)
	return validate.Struct(pr)
}

func (pr ProfileUpdateRequest) toUpdateAccount() account.UpdateAccount {
	return account.UpdateAccount{
		FirstName:       pr.FirstName,
		LastName:        pr.LastName,
		Gender:          pr.Gender,
		Address:         pr.Address,
		ProfilePic:      pr.ProfilePic,
		Password:        pr.Password,
		PasswordConfirm: pr.PasswordConfirm,
	}
}

// contextProfile returns the Account making the request along with its profile.
func (api portalApi) contextProfile(ctx echo.Context) (account.Account, account.Profile, error) {
	acc, err := api.srv.contextAccount(ctx)
	if err != nil {
		return account.Account{}, nil, errors.Wrap(err, "getting context account")
	}
	prof, err := api.srv.deps.AccountSvc.ProfileOf(ctx.Request().Context(), acc)
	if err != nil {
		return account.Account{}, nil, errors.Wrap(err, "getting profile")
	}
	return acc, prof, nil
}

func (api portalApi) me(ctx echo.Context) error {
	acc, prof, err := api.contextProfile(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, AccountResponse{Account: acc, Profile: prof})
}

func (api portalApi) updatePushToken(ctx echo.Context) error {
	acc, err := api.srv.contextAccount(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	var data PushTokenRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PushTokenRequest")
	}
	if err = data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	if err = api.srv.deps.AccountSvc.UpdatePushToken(ctx.Request().Context(), acc, data.Token); err != nil {
		return errors.Wrap(err, "updating push token")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Push token updated."})
}

func (api portalApi) countAccounts(ctx context.Context, role account.Role) (int, error) {
	accounts, err := api.srv.deps.AccountSvc.Query(ctx, &account.QueryFilter{Roles: []account.Role{role}}, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "querying %s accounts", role)
	}
	return len(accounts), nil
}

func (api portalApi) adminHome(ctx echo.Context) error {
	acc, err := api.srv.contextAccount(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	reqCtx := ctx.Request().Context()
	resp := AdminHomeResponse{Page: access.EndpointAdminHome, Account: acc}
	if resp.Admins, err = api.countAccounts(reqCtx, account.RoleAdmin); err != nil {
		return err
	}
	if resp.Staff, err = api.countAccounts(reqCtx, account.RoleStaff); err != nil {
		return err
	}
	if resp.Students, err = api.countAccounts(reqCtx, account.RoleStudent); err != nil {
		return err
	}

	courses, err := api.srv.deps.AcademicSvc.QueryCourses(reqCtx, nil, nil)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	resp.Courses = len(courses)
	subjects, err := api.srv.deps.AcademicSvc.QuerySubjects(reqCtx, nil, nil)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	resp.Subjects = len(subjects)

	return ctx.JSON(http.StatusOK, resp)
}

// staffProfile returns the Staff Account making the request and its profile.
// Admins may browse the Staff area but have no staff profile.
func (api portalApi) staffProfile(ctx echo.Context) (account.Account, *account.StaffProfile, error) {
	acc, err := api.srv.contextAccount(ctx)
	if err != nil {
		return account.Account{}, nil, errors.Wrap(err, "getting context account")
	}
	if acc.Role != account.RoleStaff {
		return account.Account{}, nil, errHttpForbidden
	}
	prof, err := api.srv.deps.AccountSvc.ProfileOf(ctx.Request().Context(), acc)
	if err != nil {
		return account.Account{}, nil, errors.Wrap(err, "getting profile")
	}
	staff, ok := prof.(*account.StaffProfile)
	if !ok {
		return account.Account{}, nil, errors.Wrapf(account.ErrInconsistentProfile, "account %d (%s)", acc.ID, acc.Role)
	}
	return acc, staff, nil
}

func (api portalApi) staffSubjectList(ctx echo.Context, staff *account.StaffProfile) ([]academic.Subject, error) {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	subjects, err := api.srv.deps.AcademicSvc.QuerySubjects(
		ctx.Request().Context(),
		&academic.SubjectFilter{StaffID: staff.ID},
		ordering.Orderings,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying staff subjects")
	}
	return subjects, nil
}

func (api portalApi) staffHome(ctx echo.Context) error {
	acc, staff, err := api.staffProfile(ctx)
	if err != nil {
		return err
	}
	subjects, err := api.staffSubjectList(ctx, staff)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, StaffHomeResponse{
		Page:     access.EndpointStaffHome,
		Account:  acc,
		Profile:  staff,
		Subjects: subjects,
	})
}

func (api portalApi) staffSubjects(ctx echo.Context) error {
	_, staff, err := api.staffProfile(ctx)
	if err != nil {
		return err
	}
	subjects, err := api.staffSubjectList(ctx, staff)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api portalApi) studentHome(ctx echo.Context) error {
	acc, prof, err := api.contextProfile(ctx)
	if err != nil {
		return err
	}
	student, ok := prof.(*account.StudentProfile)
	if !ok {
		return errors.Wrapf(account.ErrInconsistentProfile, "account %d (%s)", acc.ID, acc.Role)
	}

	reqCtx := ctx.Request().Context()
	resp := StudentHomeResponse{Page: access.EndpointStudentHome, Account: acc, Profile: student}
	if student.CourseID != nil {
		course, err := api.srv.deps.AcademicSvc.GetCourse(reqCtx, *student.CourseID)
		if err != nil {
			return errors.Wrap(err, "finding student course")
		}
		resp.Course = &course
	}
	if student.SessionID != nil {
		sess, err := api.srv.deps.AcademicSvc.GetSession(reqCtx, *student.SessionID)
		if err != nil {
			return errors.Wrap(err, "finding student session")
		}
		resp.Session = &sess
	}
	return ctx.JSON(http.StatusOK, resp)
}

// updateProfile lets Staff and Students edit their own account. Email, role and academic references are left as is.
func (api portalApi) updateProfile(ctx echo.Context) error {
	acc, err := api.srv.contextAccount(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	var data ProfileUpdateRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProfileUpdateRequest")
	}
	ua := data.toUpdateAccount()
	reqCtx := ctx.Request().Context()
	if err = ua.Validate(reqCtx, acc, api.srv.deps.Validate, api.srv.deps.AccountSvc); err != nil {
		return err
	}

	acc, prof, err := api.srv.deps.AccountSvc.Update(reqCtx, acc, ua)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	ctx.Set(contextAccountKey, acc)
	return ctx.JSON(http.StatusOK, AccountResponse{Account: acc, Profile: prof})
}
