package models

import "time"

// AfterDay reports whether t falls on a later calendar day than u, each
// read in its own location. Deadline and date-ordering rules compare
// whole days, not instants, so a deadline stored at UTC midnight and a
// server clock in another zone still agree on the day.
func AfterDay(t, u time.Time) bool {
	ty, tm, td := t.Date()
	uy, um, ud := u.Date()
	if ty != uy {
		return ty > uy
	}
	if tm != um {
		return tm > um
	}
	return td > ud
}
