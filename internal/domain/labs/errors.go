package labs

import "errors"

var (
	ErrTestNotFound            = errors.New("lab test not found")
	ErrExemptionReasonRequired = errors.New("exemption requires a non-empty reason")
	ErrConfirmationRequired    = errors.New("removing an exemption requires confirmation")
	ErrTestExempt              = errors.New("lab test is exempt; remove the exemption before entering a value")
	ErrTestNotExempt           = errors.New("lab test is not exempt")
)
