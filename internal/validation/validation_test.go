package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
)

func TestEmail(t *testing.T) {
	email, err := Email("  Tech@Shop.Example ")
	if err != nil {
		t.Fatalf("email error: %v", err)
	}
	if email != "tech@shop.example" {
		t.Fatalf("unexpected email %q", email)
	}
	for _, value := range []string{"", "no-at", "a@b", "a b@c.d", strings.Repeat("a", 250) + "@b.co"} {
		if _, err := Email(value); err != ErrInvalidEmail {
			t.Fatalf("expected %q to be rejected, got %v", value, err)
		}
	}
}

func TestPasswords(t *testing.T) {
	if err := SignupPassword("abcdefg1"); err != nil {
		t.Fatalf("expected strong password: %v", err)
	}
	for _, value := range []string{"abc1", "abcdefgh", "12345678"} {
		if err := SignupPassword(value); err != ErrWeakPassword {
			t.Fatalf("expected %q to be weak, got %v", value, err)
		}
	}
	if err := SigninPassword("12345"); err != ErrInvalidPassword {
		t.Fatalf("expected short signin password to fail, got %v", err)
	}
	if err := SigninPassword("123456"); err != nil {
		t.Fatalf("expected six characters to pass: %v", err)
	}
}

func TestVehicleYear(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	if err := VehicleYear(2027, now); err != nil {
		t.Fatalf("next model year must pass: %v", err)
	}
	if err := VehicleYear(2028, now); err != ErrInvalidVehicleYear {
		t.Fatalf("expected 2028 to fail, got %v", err)
	}
	if err := VehicleYear(1899, now); err != ErrInvalidVehicleYear {
		t.Fatalf("expected 1899 to fail, got %v", err)
	}
}

func TestMeasurement(t *testing.T) {
	if err := Measurement(Toe, 5); err != nil {
		t.Fatalf("toe limit is inclusive: %v", err)
	}
	if err := Measurement(Toe, -5.01); err != ErrOutOfRange {
		t.Fatalf("expected toe -5.01 to fail, got %v", err)
	}
	if err := Measurement(Camber, 9.9); err != nil {
		t.Fatalf("camber 9.9 must pass: %v", err)
	}
	if err := Measurement(Caster, 15.5); err != ErrOutOfRange {
		t.Fatalf("expected caster 15.5 to fail, got %v", err)
	}
}

func TestMeasurements(t *testing.T) {
	toe, caster := 0.1, 14.0
	if err := Measurements(model.Measurements{FrontLeftToe: &toe, FrontRightCaster: &caster}); err != nil {
		t.Fatalf("expected valid measurements: %v", err)
	}
	camber := -10.5
	if err := Measurements(model.Measurements{RearLeftCamber: &camber}); err != ErrOutOfRange {
		t.Fatalf("expected camber -10.5 to fail, got %v", err)
	}
	if err := Measurements(model.Measurements{}); err != nil {
		t.Fatalf("empty measurements are valid: %v", err)
	}
}

func TestVehicleIdentifiers(t *testing.T) {
	if vin, err := VIN("1hgcm82633a004352"); err != nil || vin != "1HGCM82633A004352" {
		t.Fatalf("unexpected vin %q err %v", vin, err)
	}
	if _, err := VIN("1HGCM82633A00435O"); err != ErrInvalidVIN {
		t.Fatalf("expected letter O to fail, got %v", err)
	}
	if plate, err := LicensePlate("ab-123 c"); err != nil || plate != "AB123C" {
		t.Fatalf("unexpected plate %q err %v", plate, err)
	}
	if _, err := LicensePlate("A"); err != ErrInvalidPlate {
		t.Fatalf("expected short plate to fail, got %v", err)
	}
	if err := Mileage(-1); err != ErrInvalidMileage {
		t.Fatalf("expected negative mileage to fail, got %v", err)
	}
	if err := Mileage(MaxMileage); err != nil {
		t.Fatalf("max mileage must pass: %v", err)
	}
}

func TestPhone(t *testing.T) {
	phone, err := Phone("+1 (555) 010-0199")
	if err != nil {
		t.Fatalf("phone error: %v", err)
	}
	if phone != "+15550100199" {
		t.Fatalf("unexpected phone %q", phone)
	}
	if _, err := Phone("0555"); err != ErrInvalidPhone {
		t.Fatalf("expected leading zero to fail, got %v", err)
	}
}

func TestSanitizeText(t *testing.T) {
	if got := SanitizeText(`  <b>Tom & "Jerry's"</b> `); got != "bTom  Jerrys/b" {
		t.Fatalf("unexpected sanitized text %q", got)
	}
	if got := SanitizeText(strings.Repeat("x", 300)); len(got) != MaxTextLength {
		t.Fatalf("expected truncation to %d, got %d", MaxTextLength, len(got))
	}
}
