package model

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleAdmin            Role = "admin"
	RoleTechnicalSupport Role = "technical_support"
	RoleStandardUser     Role = "standard_user"
)

// ParseRole accepts only the three known labels.
func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleAdmin, RoleTechnicalSupport, RoleStandardUser:
		return Role(value), true
	default:
		return "", false
	}
}

// CanViewAdminData reports whether the role may open the admin panel.
func (r Role) CanViewAdminData() bool {
	return r == RoleAdmin || r == RoleTechnicalSupport
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserWithRole struct {
	User
	Role Role
}

type RefreshSession struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
	UserAgent *string
	IPAddress *string
}

type Device struct {
	ID                  string
	UID                 string
	Name                *string
	OwnerUserID         *string
	Active              bool
	LastAuthenticatedAt *time.Time
	AssignedAt          *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type DeviceStatus string

const (
	DeviceStatusInactive DeviceStatus = "inactive"
	DeviceStatusOnline   DeviceStatus = "online"
	DeviceStatusReady    DeviceStatus = "ready"
)

// Status derives the presentation status of a device: inactive devices are
// inactive, active devices that authenticated within window are online.
func (d Device) Status(now time.Time, window time.Duration) DeviceStatus {
	if !d.Active {
		return DeviceStatusInactive
	}
	if d.LastAuthenticatedAt != nil && now.Sub(*d.LastAuthenticatedAt) < window {
		return DeviceStatusOnline
	}
	return DeviceStatusReady
}

type CompletionStatus string

const (
	CompletionPending    CompletionStatus = "pending"
	CompletionInProgress CompletionStatus = "in_progress"
	CompletionCompleted  CompletionStatus = "completed"
	CompletionOnHold     CompletionStatus = "on_hold"
)

func ParseCompletionStatus(value string) (CompletionStatus, bool) {
	switch CompletionStatus(value) {
	case CompletionPending, CompletionInProgress, CompletionCompleted, CompletionOnHold:
		return CompletionStatus(value), true
	default:
		return "", false
	}
}

// Measurements holds the per-wheel angles in degrees.
type Measurements struct {
	FrontLeftToe     *float64 `json:"front_left_toe,omitempty"`
	FrontRightToe    *float64 `json:"front_right_toe,omitempty"`
	RearLeftToe      *float64 `json:"rear_left_toe,omitempty"`
	RearRightToe     *float64 `json:"rear_right_toe,omitempty"`
	FrontLeftCamber  *float64 `json:"front_left_camber,omitempty"`
	FrontRightCamber *float64 `json:"front_right_camber,omitempty"`
	RearLeftCamber   *float64 `json:"rear_left_camber,omitempty"`
	RearRightCamber  *float64 `json:"rear_right_camber,omitempty"`
	FrontLeftCaster  *float64 `json:"front_left_caster,omitempty"`
	FrontRightCaster *float64 `json:"front_right_caster,omitempty"`
}

type AlignmentRecord struct {
	ID                 string
	UserID             string
	VehicleMake        string
	VehicleModel       string
	VehicleYear        int
	VIN                *string
	LicensePlate       *string
	Mileage            *int
	CustomerName       *string
	CustomerPhone      *string
	AlignmentType      *string
	CompletionStatus   CompletionStatus
	TechnicianName     *string
	ServiceAdvisor     *string
	WorkOrderNumber    *string
	Notes              *string
	Measurements       Measurements
	BeforeMeasurements json.RawMessage
	AfterMeasurements  json.RawMessage
	Specifications     json.RawMessage
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type RecordWithOwner struct {
	AlignmentRecord
	OwnerEmail string
}

// Range is an inclusive tolerance window in degrees.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) Contains(value float64) bool {
	return value >= r.Min && value <= r.Max
}

type VehicleSpecification struct {
	ID          string
	Make        string
	Model       string
	Year        int
	TrimLevel   *string
	FrontToe    Range
	RearToe     Range
	FrontCamber Range
	RearCamber  Range
	FrontCaster Range
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
