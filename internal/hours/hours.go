// Package hours evaluates a business's weekly opening schedule.
package hours

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sirahlabs/smartchat/internal/knowledge"
)

// Days lists weekday keys in time.Weekday order.
var Days = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

var tamilDays = map[string]string{
	"sunday":    "ஞாயிறு",
	"monday":    "திங்கள்",
	"tuesday":   "செவ்வாய்",
	"wednesday": "புதன்",
	"thursday":  "வியாழன்",
	"friday":    "வெள்ளி",
	"saturday":  "சனி",
}

// Status describes whether the business is open at a given instant.
// OpensAt/ClosesAt are the raw HH:MM strings from the schedule.
type Status struct {
	IsOpen      bool   `json:"isOpen"`
	CurrentDay  string `json:"currentDay"`
	OpensAt     string `json:"opensAt,omitempty"`
	ClosesAt    string `json:"closesAt,omitempty"`
	NextOpenDay string `json:"nextOpenDay,omitempty"`
}

// CheckIfOpen evaluates schedule at now, in now's location. A nil schedule
// means hours are not configured and the business is treated as open.
// The closing minute is exclusive.
func CheckIfOpen(schedule knowledge.Schedule, now time.Time) Status {
	today := int(now.Weekday())
	st := Status{IsOpen: true, CurrentDay: Days[today]}
	if schedule == nil {
		return st
	}

	win := schedule[Days[today]]
	if win == nil {
		st.IsOpen = false
		st.NextOpenDay, st.OpensAt = nextOpen(schedule, today)
		return st
	}

	openMin, openErr := parseClock(win.Open)
	closeMin, closeErr := parseClock(win.Close)
	st.OpensAt = win.Open
	st.ClosesAt = win.Close
	if openErr != nil || closeErr != nil {
		// Unreadable windows don't block visitors.
		return st
	}

	minutes := now.Hour()*60 + now.Minute()
	switch {
	case minutes < openMin:
		st.IsOpen = false
		st.NextOpenDay = Days[today]
	case minutes >= closeMin:
		st.IsOpen = false
		if day, opens := nextOpen(schedule, today); day != "" {
			st.NextOpenDay, st.OpensAt = day, opens
		}
	}
	return st
}

// nextOpen scans forward from the day after today, wrapping back to today.
func nextOpen(schedule knowledge.Schedule, today int) (string, string) {
	for i := 1; i <= 7; i++ {
		day := Days[(today+i)%7]
		if win := schedule[day]; win != nil {
			return day, win.Open
		}
	}
	return "", ""
}

func parseClock(v string) (int, error) {
	if v == "" {
		return 0, fmt.Errorf("empty clock")
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Validate reports the first unreadable window in schedule.
func Validate(schedule knowledge.Schedule) error {
	for _, day := range Days {
		win := schedule[day]
		if win == nil {
			continue
		}
		if _, err := parseClock(win.Open); err != nil {
			return fmt.Errorf("hours: %s open %q: %w", day, win.Open, err)
		}
		if _, err := parseClock(win.Close); err != nil {
			return fmt.Errorf("hours: %s close %q: %w", day, win.Close, err)
		}
	}
	for day := range schedule {
		if !isDay(day) {
			return fmt.Errorf("hours: unknown day %q", day)
		}
	}
	return nil
}

func isDay(v string) bool {
	for _, d := range Days {
		if d == v {
			return true
		}
	}
	return false
}

// Text returns the display text for the business hours.
func Text(wh knowledge.WorkingHours, lang knowledge.Language) string {
	return wh.Get(lang)
}

// OutsideHoursMessage returns the closed notice for st, or "" when open.
func OutsideHoursMessage(st Status, lang knowledge.Language) string {
	if st.IsOpen {
		return ""
	}
	if lang == knowledge.Tamil {
		if st.NextOpenDay != "" {
			return fmt.Sprintf("தற்போது மூடப்பட்டுள்ளது. %s %s மணிக்கு திறக்கும். உங்கள் விவரங்களை விடுங்கள், நாங்கள் உங்களை மீண்டும் அழைப்போம்.", DayName(st.NextOpenDay, lang), st.OpensAt)
		}
		return "தற்போது மூடப்பட்டுள்ளது. உங்கள் விவரங்களை விடுங்கள், நாங்கள் உங்களை மீண்டும் அழைப்போம்."
	}
	if st.NextOpenDay != "" {
		return fmt.Sprintf("We're currently closed. We open on %s at %s. Leave your details and we'll call you back!", DayName(st.NextOpenDay, lang), st.OpensAt)
	}
	return "We're currently closed. Leave your details and we'll call you back during business hours!"
}

// DayName renders a weekday key for display.
func DayName(day string, lang knowledge.Language) string {
	if lang == knowledge.Tamil {
		if name, ok := tamilDays[day]; ok {
			return name
		}
		return day
	}
	return cases.Title(language.English).String(day)
}
