// Package validation checks user-entered account and vehicle data before it
// reaches the hub store.
package validation

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
)

const (
	MaxEmailLength  = 254
	MaxTextLength   = 255
	MinSignupLength = 8
	MinSigninLength = 6
	MaxMileage      = 1_000_000
	MinVehicleYear  = 1900
)

var (
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrWeakPassword       = errors.New("weak_password")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrInvalidVehicleYear = errors.New("invalid_vehicle_year")
	ErrInvalidVIN         = errors.New("invalid_vin")
	ErrInvalidPlate       = errors.New("invalid_license_plate")
	ErrInvalidMileage     = errors.New("invalid_mileage")
	ErrInvalidPhone       = errors.New("invalid_phone")
	ErrOutOfRange         = errors.New("measurement_out_of_range")
)

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	vinPattern     = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)
	platePattern   = regexp.MustCompile(`^[A-Z0-9]{2,8}$`)
	phonePattern   = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
	phoneSeparator = regexp.MustCompile(`[\s\-().]`)
	unsafeText     = regexp.MustCompile(`[<>"'&]`)
)

// Email returns the trimmed, lower-cased address.
func Email(value string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(value))
	if len(email) > MaxEmailLength || !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// SignupPassword requires at least eight characters with one letter and one digit.
func SignupPassword(password string) error {
	if len(password) < MinSignupLength {
		return ErrWeakPassword
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return ErrWeakPassword
	}
	return nil
}

func SigninPassword(password string) error {
	if len(password) < MinSigninLength {
		return ErrInvalidPassword
	}
	return nil
}

// VehicleYear accepts 1900 through next model year.
func VehicleYear(year int, now time.Time) error {
	if year < MinVehicleYear || year > now.Year()+1 {
		return ErrInvalidVehicleYear
	}
	return nil
}

type MeasurementKind string

const (
	Toe    MeasurementKind = "toe"
	Camber MeasurementKind = "camber"
	Caster MeasurementKind = "caster"
)

var measurementLimits = map[MeasurementKind]float64{
	Toe:    5,
	Camber: 10,
	Caster: 15,
}

// Measurement rejects angles that no alignment rig could plausibly report.
func Measurement(kind MeasurementKind, value float64) error {
	limit, ok := measurementLimits[kind]
	if !ok {
		return ErrOutOfRange
	}
	if value < -limit || value > limit {
		return ErrOutOfRange
	}
	return nil
}

// Measurements checks every recorded angle of an alignment reading.
func Measurements(m model.Measurements) error {
	checks := []struct {
		kind  MeasurementKind
		value *float64
	}{
		{Toe, m.FrontLeftToe}, {Toe, m.FrontRightToe}, {Toe, m.RearLeftToe}, {Toe, m.RearRightToe},
		{Camber, m.FrontLeftCamber}, {Camber, m.FrontRightCamber}, {Camber, m.RearLeftCamber}, {Camber, m.RearRightCamber},
		{Caster, m.FrontLeftCaster}, {Caster, m.FrontRightCaster},
	}
	for _, check := range checks {
		if check.value == nil {
			continue
		}
		if err := Measurement(check.kind, *check.value); err != nil {
			return err
		}
	}
	return nil
}

// VIN returns the upper-cased VIN. I, O and Q are never valid.
func VIN(value string) (string, error) {
	vin := strings.ToUpper(strings.TrimSpace(value))
	if !vinPattern.MatchString(vin) {
		return "", ErrInvalidVIN
	}
	return vin, nil
}

// LicensePlate strips spaces and hyphens and upper-cases the plate.
func LicensePlate(value string) (string, error) {
	plate := strings.ToUpper(strings.NewReplacer(" ", "", "-", "").Replace(value))
	if !platePattern.MatchString(plate) {
		return "", ErrInvalidPlate
	}
	return plate, nil
}

func Mileage(value int) error {
	if value < 0 || value > MaxMileage {
		return ErrInvalidMileage
	}
	return nil
}

// Phone returns the number with separators removed.
func Phone(value string) (string, error) {
	phone := phoneSeparator.ReplaceAllString(value, "")
	if !phonePattern.MatchString(phone) {
		return "", ErrInvalidPhone
	}
	return phone, nil
}

// SanitizeText strips markup characters, trims and truncates to 255 runes.
func SanitizeText(value string) string {
	text := strings.TrimSpace(unsafeText.ReplaceAllString(value, ""))
	runes := []rune(text)
	if len(runes) > MaxTextLength {
		text = string(runes[:MaxTextLength])
	}
	return text
}
