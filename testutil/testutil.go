// Package testutil holds the fixtures shared by the package tests.
package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/account"
	appfs "github.com/trezcool/academia/fs"
	"github.com/trezcool/academia/storage/database"
)

// NewConfig returns the configuration used by tests: in-memory SQLite, no captcha, no session store.
func NewConfig() *core.Config {
	return &core.Config{
		Env:                       "TEST",
		AppName:                   "Academia",
		TestMode:                  true,
		SecretKey:                 "test-secret-key",
		PasswordResetTimeoutDelta: 24 * time.Hour,
		FrontendBaseURL:           "http://academia.test",
		DefaultFromEmail:          mail.Address{Name: "Academia", Address: "noreply@academia.test"},
		Server: core.ServerConfig{
			Host:              "academia.test",
			SessionCookieName: "sessionid",
			SessionTTL:        time.Hour,
		},
		Database: core.DatabaseConfig{Engine: database.SQLite, Name: ":memory:"},
	}
}

// NewValidator returns a validator with every custom validation & translation registered.
func NewValidator(t *testing.T) (*validator.Validate, ut.Translator) {
	t.Helper()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	academic.InitValidators(validate, translator)
	if err := account.LoadCommonPasswords(appfs.FS); err != nil {
		t.Fatalf("LoadCommonPasswords() failed: %v", err)
	}
	return validate, translator
}

// ParseTemplates parses the email templates for the given config.
func ParseTemplates(t *testing.T, conf *core.Config) {
	t.Helper()
	if err := core.ParseEmailTemplates(appfs.FS, conf); err != nil {
		t.Fatalf("ParseEmailTemplates() failed: %v", err)
	}
}

// PrepareDB opens a fresh, migrated, in-memory SQLite database closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.Open(NewConfig())
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return db
}

// CreateAccount inserts an Account & its profile directly through the repository.
func CreateAccount(
	t *testing.T,
	repo account.Repository,
	email, pwd string,
	role account.Role,
	createdAt ...time.Time,
) (account.Account, account.Profile) {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	acc := account.Account{
		Email:     email,
		Role:      role,
		FirstName: "Test",
		LastName:  role.String(),
		Gender:    account.GenderFemale,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := acc.SetPassword(pwd); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	prof, err := account.NewProfile(role, nil, nil, tstamp)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	acc, prof, err = repo.CreateAccount(context.Background(), acc, prof)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc, prof
}

// CreateCourse inserts a Course directly through the repository.
func CreateCourse(t *testing.T, repo academic.Repository, name string) academic.Course {
	t.Helper()

	now := time.Now().UTC()
	course, err := repo.CreateCourse(context.Background(), academic.Course{Name: name, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return course
}

// CreateSession inserts a Session directly through the repository. Dates are formatted as YYYY-MM-DD.
func CreateSession(t *testing.T, repo academic.Repository, start, end string) academic.Session {
	t.Helper()

	startDate, err := time.Parse("2006-01-02", start)
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	endDate, err := time.Parse("2006-01-02", end)
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	now := time.Now().UTC()
	sess, err := repo.CreateSession(context.Background(), academic.Session{
		StartDate: startDate,
		EndDate:   endDate,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}
