package boiledrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/storage/database"
)

const accountColumns = `id, email, password_hash, role, first_name, last_name, gender, address, profile_pic, push_token,
	created_at, updated_at, last_login`

// sortableAccountColumns maps the API ordering fields to their column
var sortableAccountColumns = map[string]string{
	"email":      "email",
	"first_name": "first_name",
	"last_name":  "last_name",
	"role":       "role",
	"created_at": "created_at",
	"last_login": "last_login",
}

type (
	accountRow struct {
		ID           int       `boil:"id"`
		Email        string    `boil:"email"`
		PasswordHash []byte    `boil:"password_hash"`
		Role         int       `boil:"role"`
		FirstName    string    `boil:"first_name"`
		LastName     string    `boil:"last_name"`
		Gender       string    `boil:"gender"`
		Address      string    `boil:"address"`
		ProfilePic   string    `boil:"profile_pic"`
		PushToken    string    `boil:"push_token"`
		CreatedAt    time.Time `boil:"created_at"`
		UpdatedAt    time.Time `boil:"updated_at"`
		LastLogin    null.Time `boil:"last_login"`
	}

	profileRow struct {
		ID        int       `boil:"id"`
		AccountID int       `boil:"account_id"`
		CourseID  null.Int  `boil:"course_id"`
		SessionID null.Int  `boil:"session_id"`
		CreatedAt time.Time `boil:"created_at"`
		UpdatedAt time.Time `boil:"updated_at"`
	}
)

type accountRepository struct {
	db core.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db core.DB) account.Repository {
	return &accountRepository{db: db}
}

func (repo accountRepository) unboil(row accountRow) account.Account {
	return account.Account{
		ID:           row.ID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         account.Role(row.Role),
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		Gender:       row.Gender,
		Address:      row.Address,
		ProfilePic:   row.ProfilePic,
		PushToken:    row.PushToken,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

func nullTime(t time.Time) null.Time {
	return null.NewTime(t.UTC(), !t.IsZero())
}

// trapNoRowsErr maps sql "no rows" err to `notFound`
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// inTx runs fn in a transaction, committed if fn succeeds.
func (repo accountRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (repo accountRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedAccounts ...account.Account) error {
	q := "SELECT COUNT(*) FROM account WHERE email = ?"
	args := []interface{}{email}
	if len(excludedAccounts) > 0 {
		q += " AND id NOT IN (" + strmangle.Placeholders(false, len(excludedAccounts), 1, 1) + ")"
		for _, acc := range excludedAccounts {
			args = append(args, acc.ID)
		}
	}

	var cnt int
	if err := queries.Raw(repo.db.Rebind(q), args...).QueryRowContext(ctx, repo.db).Scan(&cnt); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if cnt > 0 {
		return account.ErrEmailExists
	}
	return nil
}

func profileTable(role account.Role) (string, error) {
	switch role {
	case account.RoleAdmin:
		return "admin_profile", nil
	case account.RoleStaff:
		return "staff_profile", nil
	case account.RoleStudent:
		return "student_profile", nil
	default:
		return "", account.ErrInvalidRole
	}
}

func (repo accountRepository) insertProfile(ctx context.Context, exec core.DBExecutor, accountID int, prof account.Profile) (account.Profile, error) {
	var (
		q    string
		args []interface{}
	)
	switch p := prof.(type) {
	case *account.AdminProfile:
		q = "INSERT INTO admin_profile (account_id, created_at, updated_at) VALUES (?, ?, ?) RETURNING id"
		args = []interface{}{accountID, p.CreatedAt.UTC(), p.UpdatedAt.UTC()}
	case *account.StaffProfile:
		q = "INSERT INTO staff_profile (account_id, course_id, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING id"
		args = []interface{}{accountID, null.IntFromPtr(p.CourseID), p.CreatedAt.UTC(), p.UpdatedAt.UTC()}
	case *account.StudentProfile:
		q = `INSERT INTO student_profile (account_id, course_id, session_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?) RETURNING id`
		args = []interface{}{
			accountID, null.IntFromPtr(p.CourseID), null.IntFromPtr(p.SessionID), p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
		}
	default:
		return nil, account.ErrInvalidRole
	}

	var id int
	if err := queries.Raw(repo.db.Rebind(q), args...).QueryRowContext(ctx, exec).Scan(&id); err != nil {
		return nil, errors.Wrap(err, "inserting profile")
	}
	return repo.getProfileByID(ctx, exec, prof.Role(), id)
}

func (repo accountRepository) CreateAccount(ctx context.Context, acc account.Account, prof account.Profile) (account.Account, account.Profile, error) {
	if prof == nil || prof.Role() != acc.Role {
		return account.Account{}, nil, account.ErrInvalidRole
	}

	err := repo.inTx(ctx, func(tx *sql.Tx) error {
		q := repo.db.Rebind(`INSERT INTO account (
			email, password_hash, role, first_name, last_name, gender, address, profile_pic, push_token,
			created_at, updated_at, last_login
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
		err := queries.Raw(q,
			acc.Email, acc.PasswordHash, int(acc.Role), acc.FirstName, acc.LastName, acc.Gender, acc.Address,
			acc.ProfilePic, acc.PushToken, acc.CreatedAt.UTC(), acc.UpdatedAt.UTC(), nullTime(acc.LastLogin),
		).QueryRowContext(ctx, tx).Scan(&acc.ID)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return account.ErrEmailExists
			}
			return errors.Wrap(err, "inserting account")
		}

		prof, err = repo.insertProfile(ctx, tx, acc.ID, prof)
		if err != nil {
			return err
		}
		acc, err = repo.getAccount(ctx, tx, account.GetFilter{ID: acc.ID})
		return err
	})
	if err != nil {
		return account.Account{}, nil, err
	}
	return acc, prof, nil
}

func (repo accountRepository) QueryAccounts(ctx context.Context, filter *account.QueryFilter, ordering []core.DBOrdering) ([]account.Account, error) {
	var (
		where []string
		args  []interface{}
	)

	if filter != nil {
		// accounts with FirstName, LastName or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + strings.ToLower(filter.Search) + "%"
			where = append(where, "(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR email LIKE ?)")
			args = append(args, val, val, val)
		}
		if len(filter.Roles) > 0 {
			where = append(where, "role IN ("+strmangle.Placeholders(false, len(filter.Roles), 1, 1)+")")
			for _, role := range filter.Roles {
				args = append(args, int(role))
			}
		}
		if !filter.CreatedFrom.IsZero() {
			where = append(where, "created_at >= ?")
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			where = append(where, "created_at <= ?")
			args = append(args, filter.CreatedTo.UTC())
		}
	}

	q := "SELECT " + accountColumns + " FROM account"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += orderBy(core.WithoutUnknownFields(ordering, sortableAccountColumns))

	var rows []accountRow
	if err := queries.Raw(repo.db.Rebind(q), args...).Bind(ctx, repo.db, &rows); err != nil {
		return nil, errors.Wrap(err, "querying accounts")
	}

	accounts := make([]account.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, repo.unboil(row))
	}
	return accounts, nil
}

func orderBy(ordering []core.DBOrdering) string {
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	orderList = append(orderList, "id ASC")
	return " ORDER BY " + strings.Join(orderList, ", ")
}

func (repo accountRepository) getAccount(ctx context.Context, exec core.DBExecutor, filter account.GetFilter) (account.Account, error) {
	var (
		q   = "SELECT " + accountColumns + " FROM account WHERE "
		arg interface{}
	)
	switch {
	case filter.ID != 0:
		q += "id = ?"
		arg = filter.ID
	case filter.Email != "":
		q += "email = ?"
		arg = filter.Email
	default:
		return account.Account{}, account.ErrNotFound
	}

	var row accountRow
	if err := queries.Raw(repo.db.Rebind(q), arg).Bind(ctx, exec, &row); err != nil {
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "finding account")
	}
	return repo.unboil(row), nil
}

func (repo accountRepository) GetAccount(ctx context.Context, filter account.GetFilter) (account.Account, error) {
	return repo.getAccount(ctx, repo.db, filter)
}

func (repo accountRepository) fetchProfile(ctx context.Context, exec core.DBExecutor, role account.Role, col string, val int) (account.Profile, error) {
	table, err := profileTable(role)
	if err != nil {
		return nil, err
	}
	cols := "id, account_id, created_at, updated_at"
	switch role {
	case account.RoleStaff:
		cols += ", course_id"
	case account.RoleStudent:
		cols += ", course_id, session_id"
	}

	var row profileRow
	q := repo.db.Rebind("SELECT " + cols + " FROM " + table + " WHERE " + col + " = ?")
	if err = queries.Raw(q, val).Bind(ctx, exec, &row); err != nil {
		return nil, trapNoRowsErr(err, account.ErrProfileNotFound, "finding profile")
	}

	switch role {
	case account.RoleAdmin:
		return &account.AdminProfile{
			ID: row.ID, AccountID: row.AccountID, CreatedAt: row.CreatedAt.UTC(), UpdatedAt: row.UpdatedAt.UTC(),
		}, nil
	case account.RoleStaff:
		return &account.StaffProfile{
			ID: row.ID, AccountID: row.AccountID, CourseID: row.CourseID.Ptr(),
			CreatedAt: row.CreatedAt.UTC(), UpdatedAt: row.UpdatedAt.UTC(),
		}, nil
	default:
		return &account.StudentProfile{
			ID: row.ID, AccountID: row.AccountID, CourseID: row.CourseID.Ptr(), SessionID: row.SessionID.Ptr(),
			CreatedAt: row.CreatedAt.UTC(), UpdatedAt: row.UpdatedAt.UTC(),
		}, nil
	}
}

func (repo accountRepository) getProfileByID(ctx context.Context, exec core.DBExecutor, role account.Role, id int) (account.Profile, error) {
	return repo.fetchProfile(ctx, exec, role, "id", id)
}

func (repo accountRepository) GetProfile(ctx context.Context, acc account.Account) (account.Profile, error) {
	return repo.fetchProfile(ctx, repo.db, acc.Role, "account_id", acc.ID)
}

func (repo accountRepository) updateProfile(ctx context.Context, exec core.DBExecutor, accountID int, prof account.Profile) error {
	var (
		q    string
		args []interface{}
	)
	switch p := prof.(type) {
	case *account.AdminProfile:
		q = "UPDATE admin_profile SET updated_at = ? WHERE account_id = ?"
		args = []interface{}{p.UpdatedAt.UTC(), accountID}
	case *account.StaffProfile:
		q = "UPDATE staff_profile SET course_id = ?, updated_at = ? WHERE account_id = ?"
		args = []interface{}{null.IntFromPtr(p.CourseID), p.UpdatedAt.UTC(), accountID}
	case *account.StudentProfile:
		q = "UPDATE student_profile SET course_id = ?, session_id = ?, updated_at = ? WHERE account_id = ?"
		args = []interface{}{null.IntFromPtr(p.CourseID), null.IntFromPtr(p.SessionID), p.UpdatedAt.UTC(), accountID}
	default:
		return account.ErrInvalidRole
	}

	res, err := queries.Raw(repo.db.Rebind(q), args...).ExecContext(ctx, exec)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "updating profile")
	} else if n == 0 {
		return account.ErrProfileNotFound
	}
	return nil
}

func (repo accountRepository) UpdateAccount(ctx context.Context, acc account.Account, prof account.Profile) (account.Account, account.Profile, error) {
	err := repo.inTx(ctx, func(tx *sql.Tx) error {
		orig, err := repo.getAccount(ctx, tx, account.GetFilter{ID: acc.ID})
		if err != nil {
			return err
		}
		if prof == nil || prof.Role() != orig.Role {
			return account.ErrInvalidRole
		}

		hash := acc.PasswordHash
		if hash == nil {
			hash = orig.PasswordHash
		}
		q := repo.db.Rebind(`UPDATE account SET
			email = ?, password_hash = ?, first_name = ?, last_name = ?, gender = ?, address = ?, profile_pic = ?,
			push_token = ?, updated_at = ?, last_login = ?
			WHERE id = ?`)
		_, err = queries.Raw(q,
			acc.Email, hash, acc.FirstName, acc.LastName, acc.Gender, acc.Address, acc.ProfilePic,
			acc.PushToken, acc.UpdatedAt.UTC(), nullTime(acc.LastLogin), acc.ID,
		).ExecContext(ctx, tx)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return account.ErrEmailExists
			}
			return errors.Wrap(err, "updating account")
		}

		if err = repo.updateProfile(ctx, tx, acc.ID, prof); err != nil {
			return err
		}
		if acc, err = repo.getAccount(ctx, tx, account.GetFilter{ID: acc.ID}); err != nil {
			return err
		}
		prof, err = repo.fetchProfile(ctx, tx, acc.Role, "account_id", acc.ID)
		return err
	})
	if err != nil {
		return account.Account{}, nil, err
	}
	return acc, prof, nil
}

// touch runs q on account id and touches its profile in a single transaction.
func (repo accountRepository) touch(ctx context.Context, id int, now time.Time, msg, q string, args ...interface{}) error {
	return repo.inTx(ctx, func(tx *sql.Tx) error {
		acc, err := repo.getAccount(ctx, tx, account.GetFilter{ID: id})
		if err != nil {
			return err
		}
		prof, err := repo.fetchProfile(ctx, tx, acc.Role, "account_id", id)
		if err != nil {
			return err
		}
		if _, err = queries.Raw(repo.db.Rebind(q), args...).ExecContext(ctx, tx); err != nil {
			return errors.Wrap(err, msg)
		}
		prof.Touch(now.UTC())
		return repo.updateProfile(ctx, tx, id, prof)
	})
}

func (repo accountRepository) UpdateLastLogin(ctx context.Context, id int, lastLogin time.Time) error {
	return repo.touch(ctx, id, lastLogin, "updating last login",
		"UPDATE account SET last_login = ? WHERE id = ?", lastLogin.UTC(), id)
}

func (repo accountRepository) UpdatePushToken(ctx context.Context, id int, token string, now time.Time) error {
	return repo.touch(ctx, id, now, "updating push token",
		"UPDATE account SET push_token = ? WHERE id = ?", token, id)
}

// DeleteAccountsByID deletes the accounts; profiles and the subjects of deleted staff go with them (ON DELETE CASCADE).
func (repo accountRepository) DeleteAccountsByID(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	q := "DELETE FROM account WHERE id IN (" + strmangle.Placeholders(false, len(ids), 1, 1) + ")"
	res, err := queries.Raw(repo.db.Rebind(q), args...).ExecContext(ctx, repo.db)
	if err != nil {
		return 0, errors.Wrap(err, "deleting accounts")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting accounts")
	}
	return int(cnt), nil
}

func (repo accountRepository) StaffProfileExists(ctx context.Context, staffID int) (bool, error) {
	var cnt int
	q := repo.db.Rebind("SELECT COUNT(*) FROM staff_profile WHERE id = ?")
	if err := queries.Raw(q, staffID).QueryRowContext(ctx, repo.db).Scan(&cnt); err != nil {
		return false, errors.Wrap(err, "checking staff profile")
	}
	return cnt > 0, nil
}
