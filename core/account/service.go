package account

import (
	"context"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound            = errors.New("account not found")
	ErrEmailExists         = errors.New("an account with this email already exists")
	ErrInvalidRole         = errors.New("invalid role")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrInconsistentProfile = errors.New("account has no matching profile")
	ErrCourseNotFound      = errors.New("course not found")
	ErrSessionNotFound     = errors.New("session not found")
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists if an Account (other than excludedAccounts) uses email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedAccounts ...Account) error
		// CreateAccount inserts acc and its profile in a single transaction.
		CreateAccount(ctx context.Context, acc Account, prof Profile) (Account, Profile, error)
		// QueryAccounts applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Account.FirstName, Account.LastName or Account.Email.
		QueryAccounts(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Account, error)
		GetAccount(ctx context.Context, filter GetFilter) (Account, error)
		// GetProfile returns the profile matching acc.Role, or ErrProfileNotFound.
		GetProfile(ctx context.Context, acc Account) (Profile, error)
		// UpdateAccount saves acc and re-saves its profile in a single transaction.
		UpdateAccount(ctx context.Context, acc Account, prof Profile) (Account, Profile, error)
		// UpdateLastLogin and UpdatePushToken touch the account's profile in the same transaction.
		// A missing profile returns ErrProfileNotFound.
		UpdateLastLogin(ctx context.Context, id int, lastLogin time.Time) error
		UpdatePushToken(ctx context.Context, id int, token string, now time.Time) error
		DeleteAccountsByID(ctx context.Context, ids ...int) (int, error)
		StaffProfileExists(ctx context.Context, staffID int) (bool, error)
	}

	// Catalog tells whether the academic entities referenced by profiles exist.
	Catalog interface {
		CourseExists(ctx context.Context, id int) (bool, error)
		SessionExists(ctx context.Context, id int) (bool, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, email string, excludedAccounts ...Account) error
		Register(ctx context.Context, na NewAccount) (Account, Profile, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Account, error)
		GetByID(ctx context.Context, id int) (Account, error)
		GetByEmail(ctx context.Context, email string) (Account, error)
		ProfileOf(ctx context.Context, acc Account) (Profile, error)
		Update(ctx context.Context, acc Account, ua UpdateAccount) (Account, Profile, error)
		SetPassword(ctx context.Context, acc Account, pwd string) (Account, error)
		SetLastLogin(ctx context.Context, acc Account) (Account, error)
		UpdatePushToken(ctx context.Context, acc Account, token string) error
		Delete(ctx context.Context, ids ...int) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetPassword) error
		StaffExists(ctx context.Context, staffID int) (bool, error)
	}

	service struct {
		repo    Repository
		catalog Catalog
		mailSvc core.EmailService
		tokens  tokenGenerator
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, catalog Catalog, mailSvc core.EmailService, conf *core.Config) Service {
	return newService(repo, catalog, mailSvc, conf)
}

func newService(repo Repository, catalog Catalog, mailSvc core.EmailService, conf *core.Config) *service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(catalog, "catalog"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
		vala.StringNotEmpty(conf.SecretKey, "conf.SecretKey"),
	).CheckAndPanic()

	return &service{
		repo:    repo,
		catalog: catalog,
		mailSvc: mailSvc,
		tokens: tokenGenerator{
			secretKey: []byte(conf.SecretKey),
			timeout:   conf.PasswordResetTimeoutDelta,
		},
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, email string, excludedAccounts ...Account) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedAccounts...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

// checkProfileRefs checks that the course & session referenced by a profile exist.
func (svc *service) checkProfileRefs(ctx context.Context, courseID, sessionID *int) error {
	var fldErrs []core.FieldError
	if courseID != nil {
		exists, err := svc.catalog.CourseExists(ctx, *courseID)
		if err != nil {
			return errors.Wrap(err, "checking course")
		}
		if !exists {
			fldErrs = append(fldErrs, core.FieldError{Field: "course_id", Error: ErrCourseNotFound.Error()})
		}
	}
	if sessionID != nil {
		exists, err := svc.catalog.SessionExists(ctx, *sessionID)
		if err != nil {
			return errors.Wrap(err, "checking session")
		}
		if !exists {
			fldErrs = append(fldErrs, core.FieldError{Field: "session_id", Error: ErrSessionNotFound.Error()})
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

// Register creates an Account along with the profile matching its role.
func (svc *service) Register(ctx context.Context, na NewAccount) (Account, Profile, error) {
	if err := svc.checkProfileRefs(ctx, na.CourseID, na.SessionID); err != nil {
		return Account{}, nil, err
	}

	now := time.Now().UTC()
	prof, err := NewProfile(na.Role, na.CourseID, na.SessionID, now)
	if err != nil {
		return Account{}, nil, err
	}

	acc := Account{
		Email:      core.CleanString(na.Email, true /* lower */),
		Role:       na.Role,
		FirstName:  na.FirstName,
		LastName:   na.LastName,
		Gender:     na.Gender,
		Address:    na.Address,
		ProfilePic: na.ProfilePic,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err = acc.SetPassword(na.Password); err != nil {
		return Account{}, nil, errors.Wrap(err, "setting password")
	}

	acc, prof, err = svc.repo.CreateAccount(ctx, acc, prof)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return Account{}, nil, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return Account{}, nil, errors.Wrap(err, "creating account")
	}
	return acc, prof, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Account, error) {
	return svc.repo.QueryAccounts(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id int) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

// ProfileOf returns the profile of acc. A missing profile is a data integrity fault: ErrInconsistentProfile.
func (svc *service) ProfileOf(ctx context.Context, acc Account) (Profile, error) {
	prof, err := svc.repo.GetProfile(ctx, acc)
	if err != nil {
		if errors.Cause(err) == ErrProfileNotFound {
			return nil, errors.Wrapf(ErrInconsistentProfile, "account %d (%s)", acc.ID, acc.Role)
		}
		return nil, errors.Wrap(err, "getting profile")
	}
	return prof, nil
}

// Update saves the changes in ua and touches the account's profile.
func (svc *service) Update(ctx context.Context, acc Account, ua UpdateAccount) (Account, Profile, error) {
	prof, err := svc.ProfileOf(ctx, acc)
	if err != nil {
		return Account{}, nil, err
	}
	if err = svc.checkProfileRefs(ctx, ua.CourseID, ua.SessionID); err != nil {
		return Account{}, nil, err
	}

	switch p := prof.(type) {
	case *StaffProfile:
		if ua.CourseID != nil {
			p.CourseID = ua.CourseID
		}
	case *StudentProfile:
		if ua.CourseID != nil {
			p.CourseID = ua.CourseID
		}
		if ua.SessionID != nil {
			p.SessionID = ua.SessionID
		}
	}

	now := time.Now().UTC()
	acc.Email = core.CleanString(ua.Email, true /* lower */)
	acc.FirstName = ua.FirstName
	acc.LastName = ua.LastName
	acc.Gender = ua.Gender
	acc.Address = ua.Address
	acc.ProfilePic = ua.ProfilePic
	acc.UpdatedAt = now
	if ua.Password != "" {
		if err = acc.SetPassword(ua.Password); err != nil {
			return Account{}, nil, errors.Wrap(err, "setting password")
		}
	}
	prof.Touch(now)

	acc, prof, err = svc.repo.UpdateAccount(ctx, acc, prof)
	if err != nil {
		switch errors.Cause(err) {
		case ErrEmailExists:
			return Account{}, nil, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		case ErrProfileNotFound:
			return Account{}, nil, errors.Wrapf(ErrInconsistentProfile, "account %d (%s)", acc.ID, acc.Role)
		}
		return Account{}, nil, errors.Wrap(err, "updating account")
	}
	return acc, prof, nil
}

// SetPassword sets a new password on acc, bypassing the password policy.
func (svc *service) SetPassword(ctx context.Context, acc Account, pwd string) (Account, error) {
	if err := acc.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "setting password")
	}
	acc, _, err := svc.Update(ctx, acc, UpdateAccount{
		Email:      acc.Email,
		FirstName:  acc.FirstName,
		LastName:   acc.LastName,
		Gender:     acc.Gender,
		Address:    acc.Address,
		ProfilePic: acc.ProfilePic,
	})
	return acc, err
}

func (svc *service) SetLastLogin(ctx context.Context, acc Account) (Account, error) {
	acc.LastLogin = time.Now().UTC()
	if err := svc.repo.UpdateLastLogin(ctx, acc.ID, acc.LastLogin); err != nil {
		if errors.Cause(err) == ErrProfileNotFound {
			return Account{}, errors.Wrapf(ErrInconsistentProfile, "account %d (%s)", acc.ID, acc.Role)
		}
		return Account{}, errors.Wrap(err, "updating last login")
	}
	return acc, nil
}

func (svc *service) UpdatePushToken(ctx context.Context, acc Account, token string) error {
	err := svc.repo.UpdatePushToken(ctx, acc.ID, core.CleanString(token), time.Now().UTC())
	if errors.Cause(err) == ErrProfileNotFound {
		return errors.Wrapf(ErrInconsistentProfile, "account %d (%s)", acc.ID, acc.Role)
	}
	return err
}

func (svc *service) Delete(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := svc.repo.DeleteAccountsByID(ctx, ids...); err != nil {
		return errors.Wrap(err, "deleting accounts")
	}
	return nil
}

// RequestPasswordReset mails a password reset link to the owner of email. Unknown emails return ErrNotFound.
func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	svc.sendPasswordResetMail(acc)
	return nil
}

func (svc *service) sendPasswordResetMail(acc Account) {
	name := acc.FullName()
	if name == "" {
		name = acc.Email
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: name, Address: acc.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  name,
			"UID":   EncodeUID(acc),
			"Token": svc.tokens.makeToken(acc),
		},
	})
}

func (svc *service) ResetPassword(ctx context.Context, data ResetPassword) error {
	invalidValue := "invalid value"

	id, err := decodeUID(data.UID)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "uid", Error: invalidValue})
	}
	acc, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "uid", Error: invalidValue})
		}
		return errors.Wrap(err, "getting account")
	}
	if err = svc.tokens.verifyToken(acc, data.Token); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: invalidValue})
	}

	if _, err = svc.SetPassword(ctx, acc, data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	return nil
}

func (svc *service) StaffExists(ctx context.Context, staffID int) (bool, error) {
	return svc.repo.StaffProfileExists(ctx, staffID)
}
