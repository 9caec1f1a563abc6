package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
)

// addAdmin creates an admin account, or sets the password of an existing one.
func (cli *commandLine) addAdmin(na account.NewAccount) error {
	ctx := context.Background()
	email := core.CleanString(na.Email, true /* lower */)

	acc, err := cli.accSvc.GetByEmail(ctx, email)
	switch errors.Cause(err) {
	case nil:
		if acc.Role != account.RoleAdmin {
			return errors.Errorf("%s is a %s account", acc.Email, acc.Role)
		}
		_, err = cli.accSvc.SetPassword(ctx, acc, na.Password)
		return errors.Wrap(err, "setting password")

	case account.ErrNotFound:
		if err = na.Validate(ctx, cli.validate, cli.accSvc); err != nil {
			return err
		}
		_, _, err = cli.accSvc.Register(ctx, na)
		return errors.Wrap(err, "registering admin")

	default:
		return errors.Wrap(err, "finding account")
	}
}
