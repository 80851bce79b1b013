package domain

import "time"

type FacilityStatus string

const (
	FacilityAvailable   FacilityStatus = "AVAILABLE"
	FacilityMaintenance FacilityStatus = "MAINTENANCE"
	FacilityFull        FacilityStatus = "FULL"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "ACTIVE"
	SessionCompleted SessionStatus = "COMPLETED"
)

type BillStatus string

const (
	BillPending   BillStatus = "PENDING"
	BillPaid      BillStatus = "PAID"
	BillCancelled BillStatus = "CANCELLED"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Facility struct {
	ID              int64          `json:"id"`
	Code            string         `json:"code"`
	Name            string         `json:"name"`
	Location        string         `json:"location"`
	TotalSpaces     int            `json:"total_spaces"`
	AvailableSpaces int            `json:"available_spaces"`
	FeePerHour      float64        `json:"fee_per_hour"`
	Status          FacilityStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
}

type Lot struct {
	ID         int64  `json:"id"`
	FacilityID int64  `json:"facility_id"`
	Label      string `json:"label"`
	Occupied   bool   `json:"occupied"`
}

type FacilityWithLots struct {
	Facility Facility `json:"facility"`
	Lots     []Lot    `json:"lots"`
}

// FacilityCounts is the availability view recomputed from lot rows,
// not from the cached counter.
type FacilityCounts struct {
	Total     int64 `json:"total"`
	Available int64 `json:"available"`
	Occupied  int64 `json:"occupied"`
}

type Vehicle struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Plate     string    `json:"plate"`
	Model     string    `json:"model,omitempty"`
	Type      string    `json:"type,omitempty"`
	Size      string    `json:"size,omitempty"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	ID              int64         `json:"id"`
	VehicleID       int64         `json:"vehicle_id"`
	FacilityID      int64         `json:"facility_id"`
	LotID           int64         `json:"lot_id"`
	UserID          int64         `json:"user_id"`
	Status          SessionStatus `json:"status"`
	EntryTime       time.Time     `json:"entry_time"`
	ExitTime        *time.Time    `json:"exit_time,omitempty"`
	DurationMinutes *int          `json:"duration_minutes,omitempty"`
	TotalAmount     *float64      `json:"total_amount,omitempty"`
}

type Ticket struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	IssuedAt  time.Time `json:"issued_at"`
}

type Bill struct {
	ID          int64      `json:"id"`
	SessionID   int64      `json:"session_id"`
	UserID      int64      `json:"user_id"`
	VehicleID   int64      `json:"vehicle_id"`
	FacilityID  int64      `json:"facility_id"`
	TotalAmount float64    `json:"total_amount"`
	Status      BillStatus `json:"status"`
	IssuedAt    time.Time  `json:"issued_at"`
}

// SessionStart is the result of a successful entry transition.
type SessionStart struct {
	Session Session `json:"session"`
	Ticket  Ticket  `json:"ticket"`
}

// SessionEnd is the result of a successful exit transition.
type SessionEnd struct {
	Session Session `json:"session"`
	Bill    Bill    `json:"bill"`
}

// SessionDetails joins a session with its owned artifacts.
type SessionDetails struct {
	Session Session `json:"session"`
	Ticket  *Ticket `json:"ticket,omitempty"`
	Bill    *Bill   `json:"bill,omitempty"`
}
