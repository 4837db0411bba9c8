package errors

import "fmt"

var (
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrUserNotFound       = fmt.Errorf("user does not exist")
	ErrStatsNotFound      = fmt.Errorf("user not found in message stats")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPayload     = fmt.Errorf("invalid message payload")
)
