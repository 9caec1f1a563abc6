package account

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
)

// ErrNoMatch is returned by Resolver.Resolve for an unknown email as well as for a wrong password.
var ErrNoMatch = errors.New("invalid details")

// dummyHash is compared against when the email is unknown, so both failures cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("academia.dummy.password"), bcrypt.DefaultCost)

// Resolver verifies login credentials. It is read-only.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the Account whose email is `email` if `pwd` matches its password hash.
// Emails are compared trimmed and lower-cased, as they are stored.
func (r *Resolver) Resolve(ctx context.Context, email, pwd string) (Account, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(pwd))
		return Account{}, ErrNoMatch
	}

	acc, err := r.repo.GetAccount(ctx, GetFilter{Email: email})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(pwd))
			return Account{}, ErrNoMatch
		}
		return Account{}, errors.Wrap(err, "finding account by email")
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return Account{}, ErrNoMatch
	}
	return acc, nil
}
