package service

import (
	"time"

	"github.com/Astemirdum/library-loans/library/internal/model"
)

// lateThresholds is the loan period in days per book type.
var lateThresholds = map[model.BookType]int{
	model.BookTypeLong:    10,
	model.BookTypeShort:   5,
	model.BookTypeExpress: 2,
}

func Threshold(t model.BookType) (int, bool) {
	d, ok := lateThresholds[t]
	return d, ok
}

// DaysBetween counts whole calendar days from one date to another.
func DaysBetween(from, to time.Time) int {
	return int(dateOf(to).Sub(dateOf(from)).Hours() / 24)
}

// Lateness reports how many days a loan started on loanDate is overdue as of asOf.
// A loan is late only once its duration exceeds the threshold of its book type.
func Lateness(bookType model.BookType, loanDate, asOf time.Time) (int, bool) {
	threshold, ok := Threshold(bookType)
	if !ok {
		return 0, false
	}
	overdue := DaysBetween(loanDate, asOf) - threshold
	if overdue <= 0 {
		return 0, false
	}
	return overdue, true
}
