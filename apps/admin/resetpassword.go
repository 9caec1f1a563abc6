package main

import (
	"context"

	"github.com/pkg/errors"
)

// resetPassword sets pwd on the account of email. The password policy is not applied.
func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	acc, err := cli.accSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if _, err = cli.accSvc.SetPassword(ctx, acc, pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	return nil
}
