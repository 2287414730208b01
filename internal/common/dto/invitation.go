package dto

import "time"

type CreateInvitationRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,oneof=admin member"`
}

// InvitationResponse omits the token from listings
type InvitationResponse struct {
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	InvitedBy  string     `json:"invitedBy"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	AcceptedAt *time.Time `json:"acceptedAt"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type CheckoutRequest struct {
	Plan string `json:"plan" binding:"required,oneof=starter pro"`
}

type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}
