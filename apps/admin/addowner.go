package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/owner"
)

// addOwner updates or creates an owner.Owner, activating the account either way.
func (cli *commandLine) addOwner(phone, name, institute, email, pwd string) error {
	ctx := context.Background()
	phone = core.NormalizePhone(phone)
	now := time.Now().UTC()

	o, err := cli.ownerRepo.GetOwner(ctx, owner.GetFilter{Phone: phone})
	isNew := err != nil
	if isNew {
		if errors.Cause(err) != owner.ErrNotFound {
			return err
		}
		o = owner.Owner{Phone: phone, CreatedAt: now}
	}

	o.Name = core.CleanName(name)
	o.InstituteName = core.CleanName(institute)
	if email = core.CleanString(email, true /* lower */); email != "" {
		o.Email = email
	}
	o.IsActive = true
	o.UpdatedAt = now
	if err := o.SetPassword(pwd); err != nil {
		return err
	}

	if isNew {
		_, err = cli.ownerRepo.CreateOwner(ctx, o)
	} else {
		_, err = cli.ownerRepo.UpdateOwner(ctx, o)
	}
	return err
}
