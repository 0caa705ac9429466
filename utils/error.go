package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrMonthAlreadyClosed is surfaced to the user as-is; closing the same
// region and period twice is a caller mistake, not a server fault.
var ErrMonthAlreadyClosed = errors.New("monthly report already closed for this period")

var ErrRegionRequired = errors.New("a region must be selected")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
