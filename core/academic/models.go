package academic

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// dateLayout is the layout of the dates accepted by the Session requests.
const dateLayout = "2006-01-02"

type Course struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Session is an academic term.
type Session struct {
	ID        int       `json:"id" db:"id"`
	StartDate time.Time `json:"start_date" db:"start_date"` // UTC midnight
	EndDate   time.Time `json:"end_date" db:"end_date"`   // UTC midnight
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Subject is a Course subject taught by a Staff profile.
type Subject struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	StaffID   int       `json:"staff_id" db:"staff_id"`
	CourseID  int       `json:"course_id" db:"course_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type NewCourse struct {
	Name string `json:"name" form:"name" validate:"required,notblank,max=120"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type UpdateCourse = NewCourse

type NewSession struct {
	StartDate string `json:"start_date" form:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" form:"end_date" validate:"required,datetime=2006-01-02"`

	start, end time.Time
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.StartDate = core.CleanString(ns.StartDate)
	ns.EndDate = core.CleanString(ns.EndDate)
	ns.start, _ = time.Parse(dateLayout, ns.StartDate)
	ns.end, _ = time.Parse(dateLayout, ns.EndDate)
	return validate.Struct(ns)
}

// Dates returns the parsed start & end dates. Only meaningful after a successful Validate.
func (ns NewSession) Dates() (time.Time, time.Time) {
	return ns.start, ns.end
}

type UpdateSession = NewSession

type NewSubject struct {
	Name     string `json:"name" form:"name" validate:"required,notblank,max=120"`
	StaffID  int    `json:"staff_id" form:"staff_id" validate:"required,gt=0"`
	CourseID int    `json:"course_id" form:"course_id" validate:"required,gt=0"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// UpdateSubject holds the Subject changes. Empty values keep the current ones.
type UpdateSubject struct {
	Name     string `json:"name" form:"name" validate:"omitempty,max=120"`
	StaffID  int    `json:"staff_id" form:"staff_id" validate:"omitempty,gt=0"`
	CourseID int    `json:"course_id" form:"course_id" validate:"omitempty,gt=0"`
}

func (us *UpdateSubject) Validate(orig Subject, validate *validator.Validate) error {
	if us.Name = core.CleanString(us.Name); us.Name == "" {
		us.Name = orig.Name
	}
	if us.StaffID == 0 {
		us.StaffID = orig.StaffID
	}
	if us.CourseID == 0 {
		us.CourseID = orig.CourseID
	}
	return validate.Struct(us)
}

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type SubjectFilter struct {
	Search   string `query:"search"`
	StaffID  int    `query:"staff_id"`
	CourseID int    `query:"course_id"`
}

func (sf *SubjectFilter) Clean() {
	sf.Search = core.CleanString(sf.Search)
}
