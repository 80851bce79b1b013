package httpgin

import "time"

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name" binding:"required,min=2,max=50"`
	LastName  string `json:"last_name" binding:"required,min=2,max=50"`
	Password  string `json:"password" binding:"required,min=6,max=64"`
	Role      string `json:"role" binding:"omitempty,oneof=USER ADMIN"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

type UpdateProfileRequest struct {
	FirstName   string `json:"first_name" binding:"omitempty,min=2,max=50"`
	LastName    string `json:"last_name" binding:"omitempty,min=2,max=50"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password" binding:"omitempty,min=6,max=64"`
}

type CreateVehicleRequest struct {
	Plate string `json:"plate" binding:"required"`
	Model string `json:"model"`
	Type  string `json:"type" binding:"omitempty,oneof=car motorcycle truck van suv"`
	Size  string `json:"size" binding:"omitempty,oneof=small medium large"`
	Color string `json:"color"`
}

type CreateFacilityRequest struct {
	Code        string  `json:"code" binding:"required"`
	Name        string  `json:"name"`
	Location    string  `json:"location"`
	TotalSpaces int     `json:"total_spaces" binding:"required,gt=0"`
	FeePerHour  float64 `json:"fee_per_hour" binding:"omitempty,gt=0"`
	Status      string  `json:"status" binding:"omitempty,oneof=AVAILABLE MAINTENANCE FULL"`
}

type UpdateFacilityRequest struct {
	Code       string  `json:"code" binding:"required"`
	Name       string  `json:"name" binding:"required"`
	Location   string  `json:"location" binding:"required"`
	FeePerHour float64 `json:"fee_per_hour" binding:"required,gt=0"`
	Status     string  `json:"status" binding:"required,oneof=AVAILABLE MAINTENANCE FULL"`
}

type StartSessionRequest struct {
	VehicleID  int64 `json:"vehicle_id" binding:"required"`
	FacilityID int64 `json:"facility_id" binding:"required"`
	UserID     int64 `json:"user_id"`
}

type ListMeta struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Total  int64  `json:"total"`
	Search string `json:"search,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
