package domain

import "errors"

var (
	ErrMembershipTypeNotFound = errors.New("membership_type_not_found")
)
