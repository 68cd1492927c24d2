package domain

import (
	"fmt"
	"time"
)

// Timeframe selects the reporting window of the progress dashboard.
type Timeframe string

// Supported timeframes.
const (
	TimeframeDaily   Timeframe = "daily"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
)

// Timeframes lists every timeframe in display order.
var Timeframes = []Timeframe{TimeframeDaily, TimeframeWeekly, TimeframeMonthly}

// ParseTimeframe validates s as a timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !tf.Valid() {
		return "", fmt.Errorf("unknown timeframe %q (want daily, weekly or monthly)", s)
	}
	return tf, nil
}

// Valid returns true if the timeframe is a recognized value.
func (tf Timeframe) Valid() bool {
	switch tf {
	case TimeframeDaily, TimeframeWeekly, TimeframeMonthly:
		return true
	default:
		return false
	}
}

// Window returns the [start, end] bounds of the timeframe ending at now.
// Daily starts at local midnight of now's location; weekly and monthly are
// rolling 7 and 30 day windows. End is always now.
func (tf Timeframe) Window(now time.Time) (start, end time.Time) {
	switch tf {
	case TimeframeWeekly:
		return now.AddDate(0, 0, -7), now
	case TimeframeMonthly:
		return now.AddDate(0, 0, -30), now
	default:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), now
	}
}

// Days returns the window length in whole days used to scale per-day
// baselines. Daily counts as one day.
func (tf Timeframe) Days() int {
	switch tf {
	case TimeframeWeekly:
		return 7
	case TimeframeMonthly:
		return 30
	default:
		return 1
	}
}
