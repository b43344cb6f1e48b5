package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidInput        = errors.New("invalid input")
	ErrVendorRejected      = errors.New("vendor rejected task")
	ErrVendorUnavailable   = errors.New("vendor unavailable")
	ErrFetchFailed         = errors.New("artifact fetch failed")
	ErrTooLarge            = errors.New("artifact exceeds size ceiling")
	ErrUploadFailed        = errors.New("artifact upload failed")
	ErrAlreadyTerminal     = errors.New("generation already terminal")
)
