package hours

import (
	"testing"
	"time"

	"github.com/sirahlabs/smartchat/internal/knowledge"
)

func weekdays() knowledge.Schedule {
	return knowledge.Schedule{
		"monday":    {Open: "09:00", Close: "18:00"},
		"tuesday":   {Open: "09:00", Close: "18:00"},
		"wednesday": {Open: "09:00", Close: "18:00"},
		"thursday":  {Open: "09:00", Close: "18:00"},
		"friday":    {Open: "09:00", Close: "18:00"},
		"saturday":  nil,
	}
}

// 2024-01-01 was a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, 0, 0, time.UTC)
}

func TestCheckIfOpen(t *testing.T) {
	tests := []struct {
		name     string
		schedule knowledge.Schedule
		now      time.Time
		want     Status
	}{
		{
			name: "no schedule is open",
			now:  at(6, 23, 0),
			want: Status{IsOpen: true, CurrentDay: "saturday"},
		},
		{
			name:     "inside window",
			schedule: weekdays(),
			now:      at(1, 12, 30),
			want:     Status{IsOpen: true, CurrentDay: "monday", OpensAt: "09:00", ClosesAt: "18:00"},
		},
		{
			name:     "opening minute is open",
			schedule: weekdays(),
			now:      at(1, 9, 0),
			want:     Status{IsOpen: true, CurrentDay: "monday", OpensAt: "09:00", ClosesAt: "18:00"},
		},
		{
			name:     "closing minute is closed",
			schedule: weekdays(),
			now:      at(1, 18, 0),
			want:     Status{IsOpen: false, CurrentDay: "monday", OpensAt: "09:00", ClosesAt: "18:00", NextOpenDay: "tuesday"},
		},
		{
			name:     "before opening reopens today",
			schedule: weekdays(),
			now:      at(2, 7, 45),
			want:     Status{IsOpen: false, CurrentDay: "tuesday", OpensAt: "09:00", ClosesAt: "18:00", NextOpenDay: "tuesday"},
		},
		{
			name:     "friday evening skips the weekend",
			schedule: weekdays(),
			now:      at(5, 20, 0),
			want:     Status{IsOpen: false, CurrentDay: "friday", OpensAt: "09:00", ClosesAt: "18:00", NextOpenDay: "monday"},
		},
		{
			name:     "null day is closed",
			schedule: weekdays(),
			now:      at(6, 11, 0),
			want:     Status{IsOpen: false, CurrentDay: "saturday", OpensAt: "09:00", NextOpenDay: "monday"},
		},
		{
			name:     "absent day is closed",
			schedule: weekdays(),
			now:      at(7, 11, 0),
			want:     Status{IsOpen: false, CurrentDay: "sunday", OpensAt: "09:00", NextOpenDay: "monday"},
		},
		{
			name:     "closed every day",
			schedule: knowledge.Schedule{"monday": nil},
			now:      at(1, 11, 0),
			want:     Status{IsOpen: false, CurrentDay: "monday"},
		},
		{
			name:     "only today open wraps around to today",
			schedule: knowledge.Schedule{"monday": {Open: "09:00", Close: "10:00"}},
			now:      at(1, 11, 0),
			want:     Status{IsOpen: false, CurrentDay: "monday", OpensAt: "09:00", ClosesAt: "10:00", NextOpenDay: "monday"},
		},
		{
			name:     "unreadable window stays open",
			schedule: knowledge.Schedule{"monday": {Open: "nine", Close: "18:00"}},
			now:      at(1, 11, 0),
			want:     Status{IsOpen: true, CurrentDay: "monday", OpensAt: "nine", ClosesAt: "18:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckIfOpen(tt.schedule, tt.now)
			if got != tt.want {
				t.Fatalf("CheckIfOpen() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCheckIfOpenUsesLocationOfNow(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	// 04:00 UTC Monday is 09:30 in IST.
	now := time.Date(2024, time.January, 1, 4, 0, 0, 0, time.UTC)
	if CheckIfOpen(weekdays(), now).IsOpen {
		t.Fatalf("expected closed at 04:00 UTC")
	}
	if !CheckIfOpen(weekdays(), now.In(loc)).IsOpen {
		t.Fatalf("expected open at 09:30 IST")
	}
}

func TestOutsideHoursMessage(t *testing.T) {
	closed := Status{IsOpen: false, CurrentDay: "friday", OpensAt: "09:00", NextOpenDay: "monday"}

	if got := OutsideHoursMessage(Status{IsOpen: true}, knowledge.English); got != "" {
		t.Fatalf("expected empty message when open, got %q", got)
	}
	want := "We're currently closed. We open on Monday at 09:00. Leave your details and we'll call you back!"
	if got := OutsideHoursMessage(closed, knowledge.English); got != want {
		t.Fatalf("english message = %q", got)
	}
	wantTA := "தற்போது மூடப்பட்டுள்ளது. திங்கள் 09:00 மணிக்கு திறக்கும். உங்கள் விவரங்களை விடுங்கள், நாங்கள் உங்களை மீண்டும் அழைப்போம்."
	if got := OutsideHoursMessage(closed, knowledge.Tamil); got != wantTA {
		t.Fatalf("tamil message = %q", got)
	}
	noNext := Status{IsOpen: false, CurrentDay: "monday"}
	if got := OutsideHoursMessage(noNext, knowledge.English); got != "We're currently closed. Leave your details and we'll call you back during business hours!" {
		t.Fatalf("english fallback = %q", got)
	}
}

func TestDayName(t *testing.T) {
	if got := DayName("wednesday", knowledge.English); got != "Wednesday" {
		t.Fatalf("DayName en = %q", got)
	}
	if got := DayName("sunday", knowledge.Tamil); got != "ஞாயிறு" {
		t.Fatalf("DayName ta = %q", got)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(weekdays()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(knowledge.Schedule{"monday": {Open: "9am", Close: "17:00"}}); err == nil {
		t.Fatalf("expected clock error")
	}
	if err := Validate(knowledge.Schedule{"funday": nil}); err == nil {
		t.Fatalf("expected unknown day error")
	}
}

func TestText(t *testing.T) {
	wh := knowledge.WorkingHours{Text: knowledge.Localized("9-5", "")}
	if got := Text(wh, knowledge.Tamil); got != "9-5" {
		t.Fatalf("Text fallback = %q", got)
	}
}
