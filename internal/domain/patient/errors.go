package patient

import "errors"

var (
	ErrPatientNotFound    = errors.New("patient not found")
	ErrInvalidGender      = errors.New("invalid gender value")
	ErrInvalidType        = errors.New("invalid patient type")
	ErrInvalidBloodGroup  = errors.New("invalid blood group")
	ErrInvalidDateOfBirth = errors.New("date of birth cannot be in the future")
)
