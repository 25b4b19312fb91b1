package dummydb

import (
	"context"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/owner"
)

type ownerRepository struct {
	db *DB
}

var _ owner.Repository = (*ownerRepository)(nil) // interface compliance check

func NewOwnerRepository(db *DB) owner.Repository {
	return &ownerRepository{db: db}
}

func (repo *ownerRepository) CreateOwner(_ context.Context, o owner.Owner, _ ...core.DBExecutor) (owner.Owner, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.owners {
		if other.Phone == o.Phone {
			return owner.Owner{}, owner.ErrPhoneExists
		}
	}
	o.ID = newID()
	repo.db.owners[o.ID] = &o
	return o, nil
}

func (repo *ownerRepository) GetOwner(_ context.Context, filter owner.GetFilter, _ ...core.DBExecutor) (owner.Owner, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if o, ok := repo.db.owners[filter.ID]; ok {
			return *o, nil
		}
		return owner.Owner{}, owner.ErrNotFound
	}
	if filter.Phone != "" {
		for _, o := range repo.db.owners {
			if o.Phone == filter.Phone {
				return *o, nil
			}
		}
	}
	return owner.Owner{}, owner.ErrNotFound
}

func (repo *ownerRepository) UpdateOwner(_ context.Context, o owner.Owner, _ ...core.DBExecutor) (owner.Owner, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.owners[o.ID]
	if !ok {
		return owner.Owner{}, owner.ErrNotFound
	}
	orig.Name = o.Name
	orig.InstituteName = o.InstituteName
	orig.Email = o.Email
	orig.IsActive = o.IsActive
	orig.LastLogin = o.LastLogin
	orig.UpdatedAt = o.UpdatedAt
	if o.PasswordHash != nil {
		orig.PasswordHash = o.PasswordHash
	}
	return *orig, nil
}
