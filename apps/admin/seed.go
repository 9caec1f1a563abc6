package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/account"
)

type (
	// fixtures is the layout of a seed file. Accounts & subjects reference courses by name,
	// students reference sessions by start date and subjects reference staff by email.
	fixtures struct {
		Courses  []string         `yaml:"courses"`
		Sessions []sessionFixture `yaml:"sessions"`
		Accounts []accountFixture `yaml:"accounts"`
		Subjects []subjectFixture `yaml:"subjects"`
	}

	sessionFixture struct {
		StartDate string `yaml:"start_date"`
		EndDate   string `yaml:"end_date"`
	}

	accountFixture struct {
		Email     string `yaml:"email"`
		Password  string `yaml:"password"`
		Role      string `yaml:"role"`
		FirstName string `yaml:"first_name"`
		LastName  string `yaml:"last_name"`
		Gender    string `yaml:"gender"`
		Course    string `yaml:"course"`
		Session   string `yaml:"session"`
	}

	subjectFixture struct {
		Name   string `yaml:"name"`
		Staff  string `yaml:"staff"`
		Course string `yaml:"course"`
	}

	// seeder remembers the IDs of what it created.
	seeder struct {
		cli      *commandLine
		courses  map[string]int // {name: ID}
		sessions map[string]int // {start date: ID}
	}
)

func parseRole(s string) (account.Role, error) {
	for _, role := range account.Roles {
		if strings.EqualFold(s, role.String()) {
			return role, nil
		}
	}
	return 0, errors.Errorf("unknown role %q", s)
}

func (cli *commandLine) seedFile(name string) error {
	f, err := os.Open(name)
	if err != nil {
		return errors.Wrap(err, "opening fixtures")
	}
	defer func() { _ = f.Close() }()
	return cli.seed(f)
}

// seed loads the fixtures of r in order: courses, sessions, accounts then subjects. It stops at the first error.
func (cli *commandLine) seed(r io.Reader) error {
	var fx fixtures
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil {
		return errors.Wrap(err, "decoding fixtures")
	}

	s := seeder{cli: cli, courses: make(map[string]int), sessions: make(map[string]int)}
	ctx := context.Background()
	for _, name := range fx.Courses {
		if err := s.course(ctx, name); err != nil {
			return errors.Wrapf(err, "course %q", name)
		}
	}
	for _, sf := range fx.Sessions {
		if err := s.session(ctx, sf); err != nil {
			return errors.Wrapf(err, "session %s", sf.StartDate)
		}
	}
	for _, af := range fx.Accounts {
		if err := s.account(ctx, af); err != nil {
			return errors.Wrapf(err, "account %s", af.Email)
		}
	}
	for _, sf := range fx.Subjects {
		if err := s.subject(ctx, sf); err != nil {
			return errors.Wrapf(err, "subject %q", sf.Name)
		}
	}
	return nil
}

func (s *seeder) course(ctx context.Context, name string) error {
	nc := academic.NewCourse{Name: name}
	if err := nc.Validate(s.cli.validate); err != nil {
		return err
	}
	course, err := s.cli.acadSvc.CreateCourse(ctx, nc)
	if err != nil {
		return err
	}
	s.courses[course.Name] = course.ID
	return nil
}

func (s *seeder) session(ctx context.Context, sf sessionFixture) error {
	ns := academic.NewSession{StartDate: sf.StartDate, EndDate: sf.EndDate}
	if err := ns.Validate(s.cli.validate); err != nil {
		return err
	}
	sess, err := s.cli.acadSvc.CreateSession(ctx, ns)
	if err != nil {
		return err
	}
	s.sessions[ns.StartDate] = sess.ID
	return nil
}

// ref resolves an optional reference by key.
func ref(refs map[string]int, kind, key string) (*int, error) {
	if key == "" {
		return nil, nil
	}
	id, ok := refs[key]
	if !ok {
		return nil, errors.Errorf("unknown %s %q", kind, key)
	}
	return &id, nil
}

func (s *seeder) account(ctx context.Context, af accountFixture) error {
	role, err := parseRole(af.Role)
	if err != nil {
		return err
	}
	courseID, err := ref(s.courses, "course", af.Course)
	if err != nil {
		return err
	}
	sessionID, err := ref(s.sessions, "session", af.Session)
	if err != nil {
		return err
	}

	na := account.NewAccount{
		Email:           af.Email,
		Password:        af.Password,
		PasswordConfirm: af.Password,
		Role:            role,
		FirstName:       af.FirstName,
		LastName:        af.LastName,
		Gender:          af.Gender,
		CourseID:        courseID,
		SessionID:       sessionID,
	}
	if err = na.Validate(ctx, s.cli.validate, s.cli.accSvc); err != nil {
		return err
	}
	_, _, err = s.cli.accSvc.Register(ctx, na)
	return err
}

func (s *seeder) subject(ctx context.Context, sf subjectFixture) error {
	courseID, ok := s.courses[sf.Course]
	if !ok {
		return errors.Errorf("unknown course %q", sf.Course)
	}
	staff, err := s.cli.accSvc.GetByEmail(ctx, sf.Staff)
	if err != nil {
		return errors.Wrapf(err, "finding staff %s", sf.Staff)
	}
	prof, err := s.cli.accSvc.ProfileOf(ctx, staff)
	if err != nil {
		return err
	}
	staffProf, ok := prof.(*account.StaffProfile)
	if !ok {
		return errors.Errorf("%s is not a staff account", sf.Staff)
	}

	ns := academic.NewSubject{Name: sf.Name, StaffID: staffProf.ID, CourseID: courseID}
	if err = ns.Validate(s.cli.validate); err != nil {
		return err
	}
	_, err = s.cli.acadSvc.CreateSubject(ctx, ns)
	return err
}
