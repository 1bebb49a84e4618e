package api

import "github.com/platinummonkey/civicbase/pkg/auth"

// LoginRequest is the body of POST /auth/login. Login matches either the
// email or the user name.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on a successful login
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expiresIn"`
	User      *auth.Caller `json:"user"`
}

// ChangePasswordRequest is the body of PUT /auth/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72,nefield=CurrentPassword"`
}

// DeleteAllRequest is the body of POST /<collection>/delete/all
type DeleteAllRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}
