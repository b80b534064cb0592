package domain

import "errors"

var (
	ErrMissingSecret  = errors.New("missing_token_secret")
	ErrInvalidToken   = errors.New("invalid_token")
	ErrTokenExpired   = errors.New("token_expired")
	ErrInvalidSubject = errors.New("invalid_subject")
)
