package service

import "errors"

var (
	ErrInvalidDataProvided = errors.New("invalid data provided")

	ErrDeviceRevoked = errors.New("device has been revoked")

	ErrTokenCreationFailed     = errors.New("token creation failed")
	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")
)
