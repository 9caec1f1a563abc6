// Package inmemdb implements the repositories in memory. It is used by tests and by the dev server without a database.
package inmemdb

import (
	"sync"

	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/account"
)

type (
	DB struct {
		mu  sync.RWMutex
		seq map[string]int // {table: last pk}

		accounts map[int]*account.Account
		admins   map[int]*account.AdminProfile   // {account ID: profile}
		staff    map[int]*account.StaffProfile   // {account ID: profile}
		students map[int]*account.StudentProfile // {account ID: profile}

		courses  map[int]*academic.Course
		sessions map[int]*academic.Session
		subjects map[int]*academic.Subject
	}
)

func Open() *DB {
	return &DB{
		seq:      make(map[string]int),
		accounts: make(map[int]*account.Account),
		admins:   make(map[int]*account.AdminProfile),
		staff:    make(map[int]*account.StaffProfile),
		students: make(map[int]*account.StudentProfile),
		courses:  make(map[int]*academic.Course),
		sessions: make(map[int]*academic.Session),
		subjects: make(map[int]*academic.Subject),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID(table string) int {
	db.seq[table]++
	return db.seq[table]
}

// DropProfile removes the profile of an Account, leaving it inconsistent. Tests only.
func (db *DB) DropProfile(accountID int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.admins, accountID)
	delete(db.staff, accountID)
	delete(db.students, accountID)
}

func intPtrCopy(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
