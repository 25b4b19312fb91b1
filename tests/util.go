package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/batch"
	"github.com/nae-imUam/coaching-app-api/core/exam"
	"github.com/nae-imUam/coaching-app-api/core/owner"
	"github.com/nae-imUam/coaching-app-api/core/student"
	"github.com/nae-imUam/coaching-app-api/storage/database/dummy"
)

// Password satisfies the password policy for every owner created below.
const Password = "c0aching-Pass!"

// OpenRepos returns repositories backed by a fresh in-memory DB.
func OpenRepos(t *testing.T) dummydb.Repositories {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("OpenRepos() failed: %v", err)
	}
	return dummydb.NewRepositories(db)
}

// NewValidator returns a validator with every custom tag & translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	owner.InitValidators(validate, translator)
	exam.InitValidators(validate, translator)
	return validate, translator
}

// Dec parses a decimal literal.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func CreateOwner(t *testing.T, repo owner.Repository, phone, name string, isActive bool) owner.Owner {
	now := time.Now().UTC()
	o := owner.Owner{
		Phone:         phone,
		Name:          name,
		InstituteName: name + " Classes",
		IsActive:      isActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := o.SetPassword(Password); err != nil {
		t.Fatalf("CreateOwner() failed: %v", err)
	}
	o, err := repo.CreateOwner(context.Background(), o)
	if err != nil {
		t.Fatalf("CreateOwner() failed: %v", err)
	}
	return o
}

func CreateBatch(t *testing.T, repo batch.Repository, ownerID, name string) batch.Batch {
	now := time.Now().UTC()
	b, err := repo.CreateBatch(context.Background(), batch.Batch{
		OwnerID:   ownerID,
		Name:      name,
		Timing:    "9:00 AM - 11:00 AM",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateBatch() failed: %v", err)
	}
	return b
}

// CreateStudent creates a student with no fees paid; batchID may be empty.
func CreateStudent(t *testing.T, repo student.Repository, ownerID, batchID, name, roll, totalFees string) student.Student {
	now := time.Now().UTC()
	s, err := repo.CreateStudent(context.Background(), student.Student{
		OwnerID:   ownerID,
		BatchID:   null.NewString(batchID, batchID != ""),
		Name:      name,
		Phone:     "+919800000001",
		Roll:      roll,
		TotalFees: Dec(totalFees),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

func CreateTest(t *testing.T, repo exam.Repository, ownerID, batchID, name string, totalMarks int, date core.Date) exam.Test {
	now := time.Now().UTC()
	tst, err := repo.CreateTest(context.Background(), exam.Test{
		OwnerID:    ownerID,
		BatchID:    batchID,
		Name:       name,
		Date:       date,
		TotalMarks: totalMarks,
		Duration:   Dec("1.5"),
		Board:      exam.DefaultBoard,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateTest() failed: %v", err)
	}
	return tst
}
