package dto

import (
	"time"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
)

// SignupRequest creates a Firebase account, a company and its owner
type SignupRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	CompanyName string `json:"companyName" binding:"required"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SessionRequest exchanges a Firebase ID token for an API token
type SessionRequest struct {
	IDToken   string `json:"idToken" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// AuthResponse is returned by every endpoint that issues a token
type AuthResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      *database.User    `json:"user"`
	Company   *database.Company `json:"company,omitempty"`
}

// MeResponse describes the caller
type MeResponse struct {
	User    *database.User    `json:"user"`
	Company *database.Company `json:"company,omitempty"`
}

type CreateCompanyRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}
