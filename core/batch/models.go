package batch

import (
	"time"

	"github.com/nae-imUam/coaching-app-api/core"
)

type Batch struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"-"`
	Name         string    `json:"name"`
	Timing       string    `json:"timing"`
	StudentCount int       `json:"student_count"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (b Batch) OwnedBy(ownerID string) bool { return b.OwnerID == ownerID }

// NewBatch contains information needed to create a new Batch.
type NewBatch struct {
	Name   string `json:"name" validate:"required,max=255"`
	Timing string `json:"timing" validate:"required,max=100"`
}

func (nb *NewBatch) Clean() {
	nb.Name = core.CleanName(nb.Name)
	nb.Timing = core.CleanString(nb.Timing)
}

// UpdateBatch defines what information may be provided to modify an existing Batch.
// Nil fields are left unchanged.
type UpdateBatch struct {
	Name   *string `json:"name" validate:"omitempty,notblank,max=255"`
	Timing *string `json:"timing" validate:"omitempty,notblank,max=100"`
}

func (ub *UpdateBatch) apply(b *Batch) {
	if ub.Name != nil {
		b.Name = core.CleanName(*ub.Name)
	}
	if ub.Timing != nil {
		b.Timing = core.CleanString(*ub.Timing)
	}
}
