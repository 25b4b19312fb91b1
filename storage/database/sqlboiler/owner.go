package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/owner"
)

const ownerColumns = `id, phone, name, institute_name, email, is_active, password_hash, created_at, updated_at, last_login`

type ownerRow struct {
	ID            string      `boil:"id"`
	Phone         string      `boil:"phone"`
	Name          string      `boil:"name"`
	InstituteName string      `boil:"institute_name"`
	Email         null.String `boil:"email"`
	IsActive      bool        `boil:"is_active"`
	PasswordHash  []byte      `boil:"password_hash"`
	CreatedAt     time.Time   `boil:"created_at"`
	UpdatedAt     time.Time   `boil:"updated_at"`
	LastLogin     null.Time   `boil:"last_login"`
}

func (r ownerRow) unboil() owner.Owner {
	return owner.Owner{
		ID:            r.ID,
		Phone:         r.Phone,
		Name:          r.Name,
		InstituteName: r.InstituteName,
		Email:         r.Email.String,
		IsActive:      r.IsActive,
		PasswordHash:  r.PasswordHash,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
		LastLogin:     r.LastLogin.Time.UTC(),
	}
}

type ownerRepository struct {
	repository
}

var _ owner.Repository = (*ownerRepository)(nil) // interface compliance check

func NewOwnerRepository(db core.DB) owner.Repository {
	return &ownerRepository{repository{db: db}}
}

func (repo ownerRepository) CreateOwner(ctx context.Context, o owner.Owner, exec ...core.DBExecutor) (owner.Owner, error) {
	o.ID = uuid.New().String()
	var row ownerRow
	err := queries.Raw(
		`INSERT INTO owners (`+ownerColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING `+ownerColumns,
		o.ID, o.Phone, o.Name, o.InstituteName, null.NewString(o.Email, o.Email != ""), o.IsActive, o.PasswordHash,
		o.CreatedAt.UTC(), o.UpdatedAt.UTC(), null.NewTime(o.LastLogin.UTC(), !o.LastLogin.IsZero()),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		if isUniqueViolation(err, "owners_phone_key") {
			return owner.Owner{}, owner.ErrPhoneExists
		}
		return owner.Owner{}, errors.Wrap(err, "inserting owner")
	}
	return row.unboil(), nil
}

func (repo ownerRepository) GetOwner(ctx context.Context, filter owner.GetFilter, exec ...core.DBExecutor) (owner.Owner, error) {
	var query string
	var arg string
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return owner.Owner{}, owner.ErrNotFound
		}
		query, arg = `SELECT `+ownerColumns+` FROM owners WHERE id = $1`, filter.ID
	case filter.Phone != "":
		query, arg = `SELECT `+ownerColumns+` FROM owners WHERE phone = $1`, filter.Phone
	default:
		return owner.Owner{}, owner.ErrNotFound
	}

	var row ownerRow
	if err := queries.Raw(query, arg).Bind(ctx, repo.getExec(exec), &row); err != nil {
		return owner.Owner{}, trapNoRowsErr(err, owner.ErrNotFound, "finding owner")
	}
	return row.unboil(), nil
}

func (repo ownerRepository) UpdateOwner(ctx context.Context, o owner.Owner, exec ...core.DBExecutor) (owner.Owner, error) {
	var row ownerRow
	err := queries.Raw(
		`UPDATE owners SET name = $2, institute_name = $3, email = $4, is_active = $5,
			password_hash = COALESCE($6, password_hash), updated_at = $7, last_login = $8
		WHERE id = $1 RETURNING `+ownerColumns,
		o.ID, o.Name, o.InstituteName, null.NewString(o.Email, o.Email != ""), o.IsActive,
		null.BytesFromPtr(bytesPtr(o.PasswordHash)), o.UpdatedAt.UTC(), null.NewTime(o.LastLogin.UTC(), !o.LastLogin.IsZero()),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return owner.Owner{}, trapNoRowsErr(err, owner.ErrNotFound, "updating owner")
	}
	return row.unboil(), nil
}

func bytesPtr(b []byte) *[]byte {
	if b == nil {
		return nil
	}
	return &b
}
