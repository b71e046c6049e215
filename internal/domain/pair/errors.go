package pair

import "errors"

var (
	ErrPairNotFound            = errors.New("pair not found")
	ErrInvalidStatus           = errors.New("invalid pair status")
	ErrInvalidStatusTransition = errors.New("invalid pair status transition")
	ErrSamePatient             = errors.New("donor and recipient must be different patients")
	ErrDonorRoleMismatch       = errors.New("donor_id must reference a DONOR patient")
	ErrRecipientRoleMismatch   = errors.New("recipient_id must reference a RECIPIENT patient")
)
