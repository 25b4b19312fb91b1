package dummydb

import (
	"context"
	"sort"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/fee"
	"github.com/nae-imUam/coaching-app-api/core/student"
)

type paymentRepository struct {
	db *DB
}

var _ fee.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) fee.Repository {
	return &paymentRepository{db: db}
}

// withStudent fills the student details; the lock must be held.
func (repo *paymentRepository) withStudent(p fee.Payment) fee.Payment {
	if s, ok := repo.db.students[p.StudentID]; ok {
		p.StudentName, p.StudentRoll = s.Name, s.Roll
	}
	return p
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p fee.Payment, _ ...core.DBExecutor) (fee.Payment, fee.Balance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, ok := repo.db.students[p.StudentID]
	if !ok || s.OwnerID != p.OwnerID {
		return fee.Payment{}, fee.Balance{}, student.ErrNotFound
	}
	p.ID = newID()
	repo.db.payments[p.ID] = &p
	s.FeesPaid = s.FeesPaid.Add(p.Amount)
	return repo.withStudent(p), fee.Balance{TotalFees: s.TotalFees, FeesPaid: s.FeesPaid}, nil
}

func (repo *paymentRepository) DeletePayment(_ context.Context, ownerID, id string, _ ...core.DBExecutor) (fee.Payment, fee.Balance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p, ok := repo.db.payments[id]
	if !ok || p.OwnerID != ownerID {
		return fee.Payment{}, fee.Balance{}, fee.ErrNotFound
	}
	delete(repo.db.payments, id)

	var bal fee.Balance
	if s, ok := repo.db.students[p.StudentID]; ok {
		s.FeesPaid = s.FeesPaid.Sub(p.Amount)
		bal = fee.Balance{TotalFees: s.TotalFees, FeesPaid: s.FeesPaid}
	}
	return repo.withStudent(*p), bal, nil
}

func (repo *paymentRepository) GetPayment(_ context.Context, id string, _ ...core.DBExecutor) (fee.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.payments[id]; ok {
		return repo.withStudent(*p), nil
	}
	return fee.Payment{}, fee.ErrNotFound
}

func (repo *paymentRepository) QueryPayments(_ context.Context, ownerID string, filter fee.QueryFilter, _ ...core.DBExecutor) ([]fee.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	payments := make([]fee.Payment, 0)
	for _, p := range repo.db.payments {
		if p.OwnerID != ownerID {
			continue
		}
		var batchID string
		if s, ok := repo.db.students[p.StudentID]; ok {
			batchID = s.BatchID.String
		}
		if filter.Matches(*p, batchID) {
			payments = append(payments, repo.withStudent(*p))
		}
	}
	sortPayments(payments)
	return payments, nil
}

// sortPayments orders by payment date, then creation time, latest first.
func sortPayments(payments []fee.Payment) {
	sort.SliceStable(payments, func(i, j int) bool {
		pi, pj := payments[i], payments[j]
		if !pi.PaymentDate.Equal(pj.PaymentDate) {
			return pi.PaymentDate.After(pj.PaymentDate.Time)
		}
		return pi.CreatedAt.After(pj.CreatedAt)
	})
}
