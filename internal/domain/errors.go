package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrJobNotFound        = errors.New("job not found")
	ErrTimerAlreadyActive = errors.New("timer already active")
	ErrNoActiveTimer      = errors.New("no active timer")
	ErrJobNotCompleted    = errors.New("job not completed")
	ErrJobHasActiveTimer  = errors.New("active timer exists")
	ErrForbidden          = errors.New("forbidden")
)
