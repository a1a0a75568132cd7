package domain

import "time"

type UserRole string

const (
	UserRoleRenter UserRole = "RENTER"
	UserRoleOwner  UserRole = "OWNER"
	UserRoleAdmin  UserRole = "ADMIN"
)

type VerificationStatus string

const (
	VerificationNone        VerificationStatus = "NONE"
	VerificationPending     VerificationStatus = "PENDING"
	VerificationUnderReview VerificationStatus = "UNDER_REVIEW"
	VerificationVerified    VerificationStatus = "VERIFIED"
)

type User struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	Role         UserRole
	Verification VerificationStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
