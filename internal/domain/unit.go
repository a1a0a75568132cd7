package domain

import "time"

type UnitKind string

const (
	UnitKindFlat UnitKind = "FLAT"
	UnitKindPG   UnitKind = "PG"
)

type ReviewStatus string

const (
	ReviewStatusNone        ReviewStatus = "NONE"
	ReviewStatusUnderReview ReviewStatus = "UNDER_REVIEW"
	ReviewStatusConfirmed   ReviewStatus = "CONFIRMED"
)

// Unit is a rentable listing. ReviewStatus is only meaningful for the Flat
// kind's handover workflow and stays NONE for PG units.
type Unit struct {
	ID           int64
	Kind         UnitKind
	OwnerID      int64
	Title        string
	City         string
	RateCents    int64
	Booked       bool
	ReviewStatus ReviewStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
