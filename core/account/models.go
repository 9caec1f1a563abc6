package account

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
)

// Role is the closed set of account kinds. The zero value is not a valid Role.
type Role uint8

const (
	RoleAdmin Role = iota + 1
	RoleStaff
	RoleStudent
)

// Roles lists every valid Role.
var Roles = []Role{RoleAdmin, RoleStaff, RoleStudent}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleStudent:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleStaff:
		return "staff"
	case RoleStudent:
		return "student"
	default:
		return "unknown"
	}
}

// Genders
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

type Account struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	Role         Role      `json:"role"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Gender       string    `json:"gender"`
	Address      string    `json:"address"`
	ProfilePic   string    `json:"profile_pic"`
	PushToken    string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a Account) FullName() string {
	return core.CleanString(a.FirstName + " " + a.LastName)
}

// Profile is the role-specific companion record of an Account.
// It is implemented by *AdminProfile, *StaffProfile and *StudentProfile only.
type Profile interface {
	Role() Role
	GetAccountID() int
	Touch(now time.Time)
}

type (
	AdminProfile struct {
		ID        int       `json:"id"`
		AccountID int       `json:"account_id"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	StaffProfile struct {
		ID        int       `json:"id"`
		AccountID int       `json:"account_id"`
		CourseID  *int      `json:"course_id"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	StudentProfile struct {
		ID        int       `json:"id"`
		AccountID int       `json:"account_id"`
		CourseID  *int      `json:"course_id"`
		SessionID *int      `json:"session_id"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}
)

var (
	_ Profile = (*AdminProfile)(nil)
	_ Profile = (*StaffProfile)(nil)
	_ Profile = (*StudentProfile)(nil)
)

func (p *AdminProfile) Role() Role { return RoleAdmin }
func (p *AdminProfile) GetAccountID() int { return p.AccountID }
func (p *AdminProfile) Touch(now time.Time) { p.UpdatedAt = now }
func (p *StaffProfile) Role() Role { return RoleStaff }
func (p *StaffProfile) GetAccountID() int { return p.AccountID }
func (p *StaffProfile) Touch(now time.Time) { p.UpdatedAt = now }
func (p *StudentProfile) Role() Role { return RoleStudent }
func (p *StudentProfile) GetAccountID() int { return p.AccountID }
func (p *StudentProfile) Touch(now time.Time) { p.UpdatedAt = now }

// NewProfile builds the empty companion profile of the given role.
func NewProfile(role Role, courseID, sessionID *int, now time.Time) (Profile, error) {
	switch role {
	case RoleAdmin:
		return &AdminProfile{CreatedAt: now, UpdatedAt: now}, nil
	case RoleStaff:
		return &StaffProfile{CourseID: courseID, CreatedAt: now, UpdatedAt: now}, nil
	case RoleStudent:
		return &StudentProfile{CourseID: courseID, SessionID: sessionID, CreatedAt: now, UpdatedAt: now}, nil
	default:
		return nil, ErrInvalidRole
	}
}

// NewAccount contains information needed to register a new Account.
type NewAccount struct {
	Email           string `json:"email" form:"email" validate:"required,email,max=254"`
	Password        string `json:"password" form:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" form:"password_confirm" validate:"required,eqfield=Password"`
	Role            Role   `json:"role" form:"role" validate:"required,role"`
	FirstName       string `json:"first_name" form:"first_name" validate:"required,max=150,personname"`
	LastName        string `json:"last_name" form:"last_name" validate:"required,max=150,personname"`
	Gender          string `json:"gender" form:"gender" validate:"required,oneof=M F"`
	Address         string `json:"address" form:"address" validate:"max=500"`
	ProfilePic      string `json:"profile_pic" form:"profile_pic" validate:"omitempty,max=255"`
	CourseID        *int   `json:"course_id" form:"course_id" validate:"omitempty,gt=0"`
	SessionID       *int   `json:"session_id" form:"session_id" validate:"omitempty,gt=0"`
}

func (na *NewAccount) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.FirstName = core.CleanString(na.FirstName)
	na.LastName = core.CleanString(na.LastName)
	na.Gender = core.CleanString(na.Gender)
	na.Address = core.CleanString(na.Address)
	na.ProfilePic = core.CleanString(na.ProfilePic)

	if err := validate.Struct(na); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, na.Email)
}

// UpdateAccount defines what information may be provided to modify an existing Account.
// Empty values keep the current ones. The Role of an Account cannot be changed.
type UpdateAccount struct {
	Email           string `json:"email" form:"email" validate:"omitempty,email,max=254"`
	FirstName       string `json:"first_name" form:"first_name" validate:"omitempty,max=150,personname"`
	LastName        string `json:"last_name" form:"last_name" validate:"omitempty,max=150,personname"`
	Gender          string `json:"gender" form:"gender" validate:"omitempty,oneof=M F"`
	Address         string `json:"address" form:"address" validate:"max=500"`
	ProfilePic      string `json:"profile_pic" form:"profile_pic" validate:"omitempty,max=255"`
	CourseID        *int   `json:"course_id" form:"course_id" validate:"omitempty,gt=0"`
	SessionID       *int   `json:"session_id" form:"session_id" validate:"omitempty,gt=0"`
	Password        string `json:"password" form:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" form:"password_confirm" validate:"required_with=Password,eqfield=Password"`

	role Role // role of the Account being updated, for struct level validation
}

func (ua *UpdateAccount) Validate(ctx context.Context, orig Account, validate *validator.Validate, svc Service) error {
	keep := func(val, origVal string, lower ...bool) string {
		if v := core.CleanString(val, lower...); v != "" {
			return v
		}
		return origVal
	}
	ua.Email = keep(ua.Email, orig.Email, true /* lower */)
	ua.FirstName = keep(ua.FirstName, orig.FirstName)
	ua.LastName = keep(ua.LastName, orig.LastName)
	ua.Gender = keep(ua.Gender, orig.Gender)
	ua.Address = keep(ua.Address, orig.Address)
	ua.ProfilePic = keep(ua.ProfilePic, orig.ProfilePic)
	ua.role = orig.Role

	if err := validate.Struct(ua); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, ua.Email, orig)
}

type ResetPassword struct {
	Token           string `json:"token,omitempty" form:"token" validate:"required"`
	UID             string `json:"uid,omitempty" form:"uid" validate:"required"`
	Password        string `json:"password,omitempty" form:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" form:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp ResetPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []Role    `query:"role"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single Account, by ID or by Email.
type GetFilter struct {
	ID    int
	Email string
}
