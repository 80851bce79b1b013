package fee

import (
	"testing"
	"time"
)

func at(hh, mm, ss int) time.Time {
	return time.Date(2025, time.March, 10, hh, mm, ss, 0, time.UTC)
}

func TestChargeHalfHour(t *testing.T) {
	minutes, amount, err := Charge(at(10, 0, 0), at(10, 30, 0), 100)
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if minutes != 30 {
		t.Fatalf("expected 30 minutes, got %d", minutes)
	}
	if amount != 50.0 {
		t.Fatalf("expected amount 50.0, got %v", amount)
	}
}

func TestChargeRoundsPartialMinuteUp(t *testing.T) {
	minutes, amount, err := Charge(at(10, 0, 0), at(10, 0, 45), 60)
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if minutes != 1 {
		t.Fatalf("expected 45s to round up to 1 minute, got %d", minutes)
	}
	if amount != 1.0 {
		t.Fatalf("expected amount 1.0, got %v", amount)
	}
}

func TestChargeZeroDuration(t *testing.T) {
	minutes, amount, err := Charge(at(10, 0, 0), at(10, 0, 0), 250)
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if minutes != 0 || amount != 0 {
		t.Fatalf("expected 0 minutes / 0 amount, got %d / %v", minutes, amount)
	}
}

func TestChargeNoMinimum(t *testing.T) {
	// Exactly one hour bills exactly the hourly fee.
	minutes, amount, err := Charge(at(9, 0, 0), at(10, 0, 0), 120)
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if minutes != 60 {
		t.Fatalf("expected 60 minutes, got %d", minutes)
	}
	if amount != 120.0 {
		t.Fatalf("expected amount 120.0, got %v", amount)
	}
}

func TestDurationMinutesRejectsExitBeforeEntry(t *testing.T) {
	if _, err := DurationMinutes(at(10, 0, 0), at(9, 59, 59)); err == nil {
		t.Fatalf("expected error for exit before entry")
	}
}
