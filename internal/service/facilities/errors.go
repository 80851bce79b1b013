package facilities

import "errors"

var (
	ErrFacilityNotFound = errors.New("facility not found")
	ErrCodeConflict     = errors.New("facility code already exists")
	ErrInvalidStatus    = errors.New("invalid facility status")
)
