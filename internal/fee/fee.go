// Package fee computes parking charges from a session's time bounds and the
// facility's hourly rate.
package fee

import (
	"fmt"
	"time"
)

// DurationMinutes returns the billable duration between entry and exit in
// whole minutes, rounding any started minute up. exit must not precede entry.
func DurationMinutes(entry, exit time.Time) (int, error) {
	if exit.Before(entry) {
		return 0, fmt.Errorf("fee: exit %s precedes entry %s", exit.Format(time.RFC3339), entry.Format(time.RFC3339))
	}

	d := exit.Sub(entry)
	minutes := int(d / time.Minute)
	if d%time.Minute != 0 {
		minutes++
	}

	return minutes, nil
}

// Amount is the linear charge for the given billable minutes at feePerHour.
// There is no minimum charge and no monetary rounding.
func Amount(minutes int, feePerHour float64) float64 {
	return float64(minutes) / 60 * feePerHour
}

// Charge combines DurationMinutes and Amount for one exit transition.
func Charge(entry, exit time.Time, feePerHour float64) (minutes int, amount float64, err error) {
	minutes, err = DurationMinutes(entry, exit)
	if err != nil {
		return 0, 0, err
	}

	return minutes, Amount(minutes, feePerHour), nil
}
