package keydescription

import "fmt"

// PatchLevel is a security patch date with year-month granularity, and an
// optional day when the source encoding carried one.
type PatchLevel struct {
	Year  int
	Month int
	// Day is 0 when the source integer had only 6 digits (yyyyMM).
	Day int
}

// HasDay reports whether the patch level carried a day component.
func (p PatchLevel) HasDay() bool {
	return p.Day != 0
}

func (p PatchLevel) String() string {
	if p.HasDay() {
		return fmt.Sprintf("%04d-%02d-%02d", p.Year, p.Month, p.Day)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// parsePatchLevel decodes a patch level integer of the form yyyyMM (6
// digits) or yyyyMMdd (8 digits). Any other width is not an error: the
// field is reported absent and the caller logs an info message.
func parsePatchLevel(v int64) (PatchLevel, bool) {
	digits := countDigits(v)
	switch digits {
	case 6:
		return PatchLevel{Year: int(v / 100), Month: int(v % 100)}, true
	case 8:
		return PatchLevel{Year: int(v / 10000), Month: int((v / 100) % 100), Day: int(v % 100)}, true
	default:
		return PatchLevel{}, false
	}
}

func countDigits(v int64) int {
	if v == 0 {
		return 1
	}
	if v < 0 {
		v = -v
	}
	n := 0
	for v > 0 {
		n++
		v /= 10
	}
	return n
}
