package dashboard

import (
	"time"

	"github.com/agrotrace/agrotrace/internal/lookup"
	"github.com/agrotrace/agrotrace/internal/upstream"
)

// FilterSnapshot is the user's current filter selection. The zero id
// pointers mean "no filter". Snapshots are value types; every edit produces
// a superseding copy.
type FilterSnapshot struct {
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	VergerID      *int64    `json:"vergerId,omitempty"`
	GrpVarID      *int64    `json:"grpVarId,omitempty"`
	VarieteID     *int64    `json:"varieteId,omitempty"`
	DestinationID *int64    `json:"destinationId,omitempty"`
	EcartTypeID   *int64    `json:"ecartTypeId,omitempty"`
}

// Query maps the snapshot onto upstream query parameters.
func (f FilterSnapshot) Query() upstream.Query {
	return upstream.Query{
		StartDate:     f.StartDate,
		EndDate:       f.EndDate,
		VergerID:      f.VergerID,
		GrpVarID:      f.GrpVarID,
		VarieteID:     f.VarieteID,
		DestinationID: f.DestinationID,
		EcartTypeID:   f.EcartTypeID,
	}
}

// FilterEdit is one partial filter change. Nil fields leave the current
// value untouched; Clear* flags reset a dimension to "no filter".
type FilterEdit struct {
	StartDate        *time.Time `json:"startDate,omitempty"`
	EndDate          *time.Time `json:"endDate,omitempty"`
	VergerID         *int64     `json:"vergerId,omitempty" validate:"omitempty,gt=0"`
	GrpVarID         *int64     `json:"grpVarId,omitempty" validate:"omitempty,gt=0"`
	VarieteID        *int64     `json:"varieteId,omitempty" validate:"omitempty,gt=0"`
	DestinationID    *int64     `json:"destinationId,omitempty" validate:"omitempty,gt=0"`
	EcartTypeID      *int64     `json:"ecartTypeId,omitempty" validate:"omitempty,gt=0"`
	ClearVerger      bool       `json:"clearVerger,omitempty"`
	ClearGrpVar      bool       `json:"clearGrpVar,omitempty"`
	ClearVariete     bool       `json:"clearVariete,omitempty"`
	ClearDestination bool       `json:"clearDestination,omitempty"`
	ClearEcartType   bool       `json:"clearEcartType,omitempty"`
}

// Apply folds the edit into a snapshot and enforces the cascade invariant:
// a selected variety that does not belong to the (possibly new) variety
// group is reset, never silently kept.
func (f FilterSnapshot) Apply(edit FilterEdit, lookups *lookup.Snapshot) FilterSnapshot {
	next := f
	if edit.StartDate != nil {
		next.StartDate = *edit.StartDate
	}
	if edit.EndDate != nil {
		next.EndDate = *edit.EndDate
	}
	if edit.ClearVerger {
		next.VergerID = nil
	} else if edit.VergerID != nil {
		next.VergerID = clone(edit.VergerID)
	}
	if edit.ClearGrpVar {
		next.GrpVarID = nil
	} else if edit.GrpVarID != nil {
		next.GrpVarID = clone(edit.GrpVarID)
	}
	if edit.ClearVariete {
		next.VarieteID = nil
	} else if edit.VarieteID != nil {
		next.VarieteID = clone(edit.VarieteID)
	}
	if edit.ClearDestination {
		next.DestinationID = nil
	} else if edit.DestinationID != nil {
		next.DestinationID = clone(edit.DestinationID)
	}
	if edit.ClearEcartType {
		next.EcartTypeID = nil
	} else if edit.EcartTypeID != nil {
		next.EcartTypeID = clone(edit.EcartTypeID)
	}

	if next.VarieteID != nil && next.GrpVarID != nil {
		group, known := lookups.VarieteGroup(*next.VarieteID)
		if !known || group != *next.GrpVarID {
			next.VarieteID = nil
		}
	}
	return next
}

func clone(id *int64) *int64 {
	v := *id
	return &v
}
