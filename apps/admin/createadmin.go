package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core"
	"github.com/vitccacm/recruitment-portal/core/account"
)

// createAdmin creates a super admin account, or promotes an existing one.
func (cli *commandLine) createAdmin(name, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	acct, err := cli.accountRepo.GetAccount(ctx, account.GetFilter{Email: email})
	if err != nil {
		if errors.Cause(err) != account.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		acct = account.Account{
			ID:        uuid.New().String(),
			Name:      name,
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		acct.Roles = []string{account.RoleSuperAdmin}
		acct.SetActive(true)
		if err := acct.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.accountRepo.CreateAccount(ctx, acct)
		return err
	}

	acct.Roles = []string{account.RoleSuperAdmin}
	if err := acct.SetPassword(pwd); err != nil {
		return err
	}
	isActive := true
	_, err = cli.accountRepo.UpdateAccount(ctx, acct, &isActive)
	return err
}
