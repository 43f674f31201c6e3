package dto

import "github.com/thiagolins/pixbank-be/internal/models"

type RegisterRequest struct {
	Name     string `json:"name"`
	Document string `json:"document"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Document string `json:"document"`
	Password string `json:"password"`
}

// LoginResponse carries the onboarding outcome. Token and Account are only
// set for returning users; Status is "pending_kyc" or "linked" otherwise.
type LoginResponse struct {
	Status  string                `json:"status"`
	Message string                `json:"message,omitempty"`
	Token   string                `json:"token,omitempty"`
	User    *models.User          `json:"user,omitempty"`
	Account *models.LinkedAccount `json:"account,omitempty"`
}
