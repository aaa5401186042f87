package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of caller roles. It is fixed at registration
// and gates which operations a caller may invoke.
type Role string

const (
	RolePatient       Role = "patient"
	RoleDoctor        Role = "doctor"
	RoleHospitalAdmin Role = "hospital_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleHospitalAdmin:
		return true
	}
	return false
}

type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusPending UserStatus = "pending"
	UserStatusLocked  UserStatus = "locked"
)

type User struct {
	Base
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	Name             string     `db:"name" json:"name"`
	Phone            string     `db:"phone" json:"phone,omitempty"`
	Role             Role       `db:"role" json:"role"`
	FacilityID       *uuid.UUID `db:"facility_id" json:"facility_id,omitempty"`
	EmailVerified    bool       `db:"email_verified" json:"email_verified"`
	Status           UserStatus `db:"status" json:"status"`
	LoginAttempts    int        `db:"login_attempts" json:"-"`
	LastLoginAttempt time.Time  `db:"last_login_attempt" json:"-"`
	LastLoginAt      *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"max=30"`
	Role     Role   `json:"role" validate:"required,oneof=patient doctor hospital_admin"`

	// Doctor registration
	Specialization string     `json:"specialization,omitempty" validate:"max=100"`
	FacilityID     *uuid.UUID `json:"facility_id,omitempty"`

	// Hospital admin registration
	FacilityName    string `json:"facility_name,omitempty" validate:"max=200"`
	FacilityCity    string `json:"facility_city,omitempty" validate:"max=100"`
	FacilityAddress string `json:"facility_address,omitempty" validate:"max=300"`
	FacilityContact string `json:"facility_contact,omitempty" validate:"max=50"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Role         Role   `json:"role"`
}

type TokenClaims struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}

// Actor is the authenticated caller of a request, extracted from the
// validated token and passed explicitly instead of any process-wide state.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}
