package main

import (
	"context"

	"github.com/vitccacm/recruitment-portal/core"
	"github.com/vitccacm/recruitment-portal/core/account"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	acct, err := cli.accountRepo.GetAccount(ctx, account.GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		return err
	}
	if err := acct.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.accountRepo.UpdateAccount(ctx, acct, nil); err != nil {
		return err
	}
	return nil
}
