package main

import (
	"context"
	"time"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/owner"
)

func (cli *commandLine) resetPassword(phone, pwd string) error {
	ctx := context.Background()
	o, err := cli.ownerRepo.GetOwner(ctx, owner.GetFilter{Phone: core.NormalizePhone(phone)})
	if err != nil {
		return err
	}
	if err := o.SetPassword(pwd); err != nil {
		return err
	}
	o.UpdatedAt = time.Now().UTC()
	if _, err := cli.ownerRepo.UpdateOwner(ctx, o); err != nil {
		return err
	}
	return nil
}
