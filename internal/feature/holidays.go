// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package feature

import "time"

// isUSHoliday covers the major US holidays that move market-day foot
// traffic: fixed-date federal holidays plus the floating Monday/Thursday
// ones. Observed-date shifts are deliberately ignored; demand follows the
// holiday itself, not the day offices close.
func isUSHoliday(date time.Time) bool {
	month, day := date.Month(), date.Day()

	switch {
	case month == time.January && day == 1: // New Year's Day
		return true
	case month == time.July && day == 4: // Independence Day
		return true
	case month == time.November && day == 11: // Veterans Day
		return true
	case month == time.December && day == 25: // Christmas
		return true
	}

	switch month {
	case time.May: // Memorial Day: last Monday
		return date.Weekday() == time.Monday && day+7 > lastDayOfMonth(date)
	case time.September: // Labor Day: first Monday
		return date.Weekday() == time.Monday && day <= 7
	case time.November: // Thanksgiving: fourth Thursday
		return date.Weekday() == time.Thursday && day >= 22 && day <= 28
	}

	return false
}

func lastDayOfMonth(date time.Time) int {
	firstOfNext := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location()).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1).Day()
}
