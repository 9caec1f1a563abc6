package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) emailTaken(email string, excludedIDs map[int]bool) bool {
	for _, acc := range repo.db.accounts {
		if acc.Email == email && !excludedIDs[acc.ID] {
			return true
		}
	}
	return false
}

func (repo *accountRepository) CheckEmailUniqueness(_ context.Context, email string, excludedAccounts ...account.Account) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	excluded := make(map[int]bool, len(excludedAccounts))
	for _, acc := range excludedAccounts {
		excluded[acc.ID] = true
	}
	if repo.emailTaken(email, excluded) {
		return account.ErrEmailExists
	}
	return nil
}

// saveProfile must be called with the write lock held.
func (repo *accountRepository) saveProfile(accountID int, prof account.Profile) (account.Profile, error) {
	switch p := prof.(type) {
	case *account.AdminProfile:
		cp := *p
		cp.AccountID = accountID
		if cp.ID == 0 {
			cp.ID = repo.db.nextID("admin_profile")
		}
		repo.db.admins[accountID] = &cp
		res := cp
		return &res, nil
	case *account.StaffProfile:
		cp := *p
		cp.AccountID = accountID
		cp.CourseID = intPtrCopy(p.CourseID)
		if cp.ID == 0 {
			cp.ID = repo.db.nextID("staff_profile")
		}
		repo.db.staff[accountID] = &cp
		res := cp
		return &res, nil
	case *account.StudentProfile:
		cp := *p
		cp.AccountID = accountID
		cp.CourseID = intPtrCopy(p.CourseID)
		cp.SessionID = intPtrCopy(p.SessionID)
		if cp.ID == 0 {
			cp.ID = repo.db.nextID("student_profile")
		}
		repo.db.students[accountID] = &cp
		res := cp
		return &res, nil
	default:
		return nil, account.ErrInvalidRole
	}
}

func (repo *accountRepository) CreateAccount(_ context.Context, acc account.Account, prof account.Profile) (account.Account, account.Profile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if prof == nil || prof.Role() != acc.Role {
		return account.Account{}, nil, account.ErrInvalidRole
	}
	if repo.emailTaken(acc.Email, nil) {
		return account.Account{}, nil, account.ErrEmailExists
	}

	acc.ID = repo.db.nextID("account")
	prof, err := repo.saveProfile(acc.ID, prof)
	if err != nil {
		return account.Account{}, nil, err
	}
	stored := acc
	repo.db.accounts[acc.ID] = &stored
	return acc, prof, nil
}

func (repo *accountRepository) QueryAccounts(_ context.Context, filter *account.QueryFilter, ordering []core.DBOrdering) ([]account.Account, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	accounts := make([]account.Account, 0, len(repo.db.accounts))
	for _, acc := range repo.db.accounts {
		if filter != nil && !matchAccount(*acc, filter) {
			continue
		}
		accounts = append(accounts, *acc)
	}
	sortAccounts(accounts, ordering)
	return accounts, nil
}

func matchAccount(acc account.Account, filter *account.QueryFilter) bool {
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(acc.FirstName), search) ||
			strings.Contains(strings.ToLower(acc.LastName), search) ||
			strings.Contains(acc.Email, search)) {
			return false
		}
	}
	if len(filter.Roles) > 0 {
		found := false
		for _, role := range filter.Roles {
			if acc.Role == role {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !filter.CreatedFrom.IsZero() && acc.CreatedAt.Before(filter.CreatedFrom.UTC()) {
		return false
	}
	if !filter.CreatedTo.IsZero() && acc.CreatedAt.After(filter.CreatedTo.UTC()) {
		return false
	}
	return true
}

func sortAccounts(accounts []account.Account, ordering []core.DBOrdering) {
	cmp := func(a, b account.Account, field string) int {
		switch field {
		case "email":
			return strings.Compare(a.Email, b.Email)
		case "first_name":
			return strings.Compare(a.FirstName, b.FirstName)
		case "last_name":
			return strings.Compare(a.LastName, b.LastName)
		case "role":
			return int(a.Role) - int(b.Role)
		case "created_at":
			return compareTimes(a.CreatedAt, b.CreatedAt)
		case "last_login":
			return compareTimes(a.LastLogin, b.LastLogin)
		default:
			return 0
		}
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		for _, ord := range ordering {
			c := cmp(accounts[i], accounts[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return accounts[i].ID < accounts[j].ID
	})
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func (repo *accountRepository) GetAccount(_ context.Context, filter account.GetFilter) (account.Account, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != 0 {
		if acc, ok := repo.db.accounts[filter.ID]; ok {
			return *acc, nil
		}
		return account.Account{}, account.ErrNotFound
	}
	if filter.Email != "" {
		for _, acc := range repo.db.accounts {
			if acc.Email == filter.Email {
				return *acc, nil
			}
		}
	}
	return account.Account{}, account.ErrNotFound
}

// getProfile must be called with the lock held.
func (repo *accountRepository) getProfile(acc account.Account) (account.Profile, error) {
	switch acc.Role {
	case account.RoleAdmin:
		if p, ok := repo.db.admins[acc.ID]; ok {
			cp := *p
			return &cp, nil
		}
	case account.RoleStaff:
		if p, ok := repo.db.staff[acc.ID]; ok {
			cp := *p
			cp.CourseID = intPtrCopy(p.CourseID)
			return &cp, nil
		}
	case account.RoleStudent:
		if p, ok := repo.db.students[acc.ID]; ok {
			cp := *p
			cp.CourseID = intPtrCopy(p.CourseID)
			cp.SessionID = intPtrCopy(p.SessionID)
			return &cp, nil
		}
	}
	return nil, account.ErrProfileNotFound
}

func (repo *accountRepository) GetProfile(_ context.Context, acc account.Account) (account.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.getProfile(acc)
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acc account.Account, prof account.Profile) (account.Account, account.Profile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.accounts[acc.ID]
	if !ok {
		return account.Account{}, nil, account.ErrNotFound
	}
	if prof == nil || prof.Role() != orig.Role {
		return account.Account{}, nil, account.ErrInvalidRole
	}
	if _, err := repo.getProfile(*orig); err != nil {
		return account.Account{}, nil, err
	}
	if repo.emailTaken(acc.Email, map[int]bool{acc.ID: true}) {
		return account.Account{}, nil, account.ErrEmailExists
	}

	prof, err := repo.saveProfile(acc.ID, prof)
	if err != nil {
		return account.Account{}, nil, err
	}

	acc.Role = orig.Role // immutable
	acc.CreatedAt = orig.CreatedAt
	if acc.PasswordHash == nil {
		acc.PasswordHash = orig.PasswordHash
	}
	stored := acc
	repo.db.accounts[acc.ID] = &stored
	return acc, prof, nil
}

// touch applies fn to account id and touches its profile, with the write lock held.
func (repo *accountRepository) touch(id int, now time.Time, fn func(acc *account.Account)) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	acc, ok := repo.db.accounts[id]
	if !ok {
		return account.ErrNotFound
	}
	prof, err := repo.getProfile(*acc)
	if err != nil {
		return err
	}
	prof.Touch(now.UTC())
	if _, err = repo.saveProfile(id, prof); err != nil {
		return err
	}
	fn(acc)
	return nil
}

func (repo *accountRepository) UpdateLastLogin(_ context.Context, id int, lastLogin time.Time) error {
	return repo.touch(id, lastLogin, func(acc *account.Account) { acc.LastLogin = lastLogin.UTC() })
}

func (repo *accountRepository) UpdatePushToken(_ context.Context, id int, token string, now time.Time) error {
	return repo.touch(id, now, func(acc *account.Account) { acc.PushToken = token })
}

func (repo *accountRepository) DeleteAccountsByID(_ context.Context, ids ...int) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.accounts[id]; !ok {
			continue
		}
		if staff, ok := repo.db.staff[id]; ok {
			for subjID, subj := range repo.db.subjects {
				if subj.StaffID == staff.ID {
					delete(repo.db.subjects, subjID)
				}
			}
		}
		delete(repo.db.accounts, id)
		delete(repo.db.admins, id)
		delete(repo.db.staff, id)
		delete(repo.db.students, id)
		cnt++
	}
	return cnt, nil
}

func (repo *accountRepository) StaffProfileExists(_ context.Context, staffID int) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, p := range repo.db.staff {
		if p.ID == staffID {
			return true, nil
		}
	}
	return false, nil
}
