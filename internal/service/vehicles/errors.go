package vehicles

import "errors"

var (
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrPlateConflict   = errors.New("plate already registered")
	ErrInvalidType     = errors.New("invalid vehicle type")
	ErrInvalidSize     = errors.New("invalid vehicle size")
)
