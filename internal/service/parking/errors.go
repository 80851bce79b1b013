package parking

import "errors"

var (
	ErrVehicleNotFound  = errors.New("vehicle not found")
	ErrFacilityNotFound = errors.New("facility not found")
	ErrNoAvailability   = errors.New("no available parking spaces")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionNotActive = errors.New("session is not active")
	ErrRateLimited      = errors.New("rate limited")
)
