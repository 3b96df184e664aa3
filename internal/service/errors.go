package service

import (
	"errors"
	"net/http"
)

// Kind classifies a service failure
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindNotFound
	KindConflict
	KindUploadFailed
)

// StatusCode maps the kind to an HTTP status
func (k Kind) StatusCode() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUploadFailed:
		return "upload_failed"
	default:
		return "internal"
	}
}

// Error is a typed failure carrying a client-facing message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func badRequest(message string) *Error {
	return newError(KindBadRequest, message, nil)
}

func unauthorized(message string, err error) *Error {
	return newError(KindUnauthorized, message, err)
}

func internal(message string, err error) *Error {
	return newError(KindInternal, message, err)
}

// KindOf returns the kind of err, or KindInternal for untyped errors
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}

// Client-facing messages
const (
	MsgFillAllFields       = "Please fill all the fields"
	MsgUserExists          = "User already exists"
	MsgAvatarRequired      = "Please provide an avatar"
	MsgAvatarUploadFailed  = "Error uploading avatar"
	MsgCoverUploadFailed   = "Error uploading cover image"
	MsgRegisterFailed      = "Something went wrong while registering the user"
	MsgIdentifierRequired  = "username or email is required"
	MsgUserNotFound        = "User does not exist"
	MsgInvalidCredentials  = "Invalid user credentials"
	MsgUnauthorizedRequest = "Unauthorized request"
	MsgInvalidRefreshToken = "Invalid refresh token"
	MsgRefreshTokenUsed    = "Refresh token is expired or used"
	MsgInvalidOldPassword  = "Invalid old password"
	MsgNewPasswordRequired = "New password is required"
	MsgPasswordChanged     = "Password was changed concurrently"
	MsgAllFieldsRequired   = "All fields are required"
	MsgEmailTaken          = "Email is already in use"
	MsgAvatarMissing       = "Avatar file is missing"
	MsgCoverMissing        = "Cover image file is missing"
	MsgInvalidAccessToken  = "Invalid Access Token"
	MsgUserNameMissing     = "username is missing"
	MsgChannelNotFound     = "channel does not exist"
	MsgSomethingWentWrong  = "Something went wrong"
)
