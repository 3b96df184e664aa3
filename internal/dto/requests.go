package dto

// RegisterRequest represents the text fields of a multipart registration request.
// Presence is checked by the service so every missing field yields the same message.
type RegisterRequest struct {
	FullName string `form:"fullName" json:"fullName"`
	Email    string `form:"email" json:"email"`
	UserName string `form:"userName" json:"userName"`
	Password string `form:"password" json:"password"`
}

// LoginRequest represents a login request; either UserName or Email identifies the account
type LoginRequest struct {
	UserName string `json:"userName" form:"userName"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// RefreshRequest carries a refresh token in the body when the cookie is absent
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" form:"oldPassword"`
	NewPassword string `json:"newPassword" form:"newPassword"`
}

// UpdateAccountRequest represents an account details update
type UpdateAccountRequest struct {
	FullName string `json:"fullName" form:"fullName"`
	Email    string `json:"email" form:"email"`
}
