// domain/time.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package domain

// TimeRangeDt is an aligned, half-open time window: [Start, End) stepped by
// DtSeconds. Start and End are UTC epoch seconds aligned to DtSeconds.
type TimeRangeDt struct {
	Start, End, DtSeconds int64
}

// Count returns the number of steps in the range.
func (r TimeRangeDt) Count() int {
	if r.DtSeconds <= 0 {
		return 0
	}
	return int((r.End - r.Start) / r.DtSeconds)
}

// At returns the timestamp of step i.
func (r TimeRangeDt) At(i int) int64 {
	return r.Start + int64(i)*r.DtSeconds
}

// Widened returns a copy of r extended by pad steps on each side.
func (r TimeRangeDt) Widened(pad int) TimeRangeDt {
	d := int64(pad) * r.DtSeconds
	return TimeRangeDt{Start: r.Start - d, End: r.End + d, DtSeconds: r.DtSeconds}
}
