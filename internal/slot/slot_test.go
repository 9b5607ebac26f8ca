package slot

import (
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "09:30", want: "09:30:00"},
		{in: "09:30:15", want: "09:30:15"},
		{in: "23:59:59", want: "23:59:59"},
		{in: "24:00", wantErr: true},
		{in: "9.30", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %s", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != (Date{Year: 2025, Month: time.June, Day: 1}) {
		t.Errorf("got %+v", d)
	}
	if d.String() != "2025-06-01" {
		t.Errorf("String() = %s", d)
	}
	if _, err := ParseDate("01/06/2025"); err == nil {
		t.Error("expected error for non ISO date")
	}
}

func TestDateCompare(t *testing.T) {
	a := Date{Year: 2025, Month: time.June, Day: 1}
	b := Date{Year: 2025, Month: time.June, Day: 2}
	c := Date{Year: 2024, Month: time.December, Day: 31}

	if !a.Before(b) || b.Before(a) {
		t.Error("expected 2025-06-01 before 2025-06-02")
	}
	if !c.Before(a) {
		t.Error("expected 2024-12-31 before 2025-06-01")
	}
	if a.Compare(a) != 0 {
		t.Error("expected a date to equal itself")
	}
}

func TestIntervalOverlaps(t *testing.T) {
	existing := Interval{Start: NewTimeOfDay(10, 30), End: NewTimeOfDay(11, 0)}

	tests := []struct {
		name      string
		candidate Interval
		want      bool
	}{
		{"touching before", Interval{NewTimeOfDay(10, 0), NewTimeOfDay(10, 30)}, false},
		{"touching after", Interval{NewTimeOfDay(11, 0), NewTimeOfDay(11, 30)}, false},
		{"partial overlap", Interval{NewTimeOfDay(10, 15), NewTimeOfDay(10, 45)}, true},
		{"contained", Interval{NewTimeOfDay(10, 35), NewTimeOfDay(10, 50)}, true},
		{"containing", Interval{NewTimeOfDay(10, 0), NewTimeOfDay(11, 30)}, true},
		{"identical", existing, true},
		{"disjoint", Interval{NewTimeOfDay(8, 0), NewTimeOfDay(9, 0)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.candidate.Overlaps(existing); got != tt.want {
				t.Errorf("Overlaps(%s, %s) = %v, want %v", tt.candidate, existing, got, tt.want)
			}
			if got := existing.Overlaps(tt.candidate); got != tt.want {
				t.Errorf("overlap is not symmetric for %s", tt.candidate)
			}
		})
	}
}

func TestAt(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	d := Date{Year: 2025, Month: time.June, Day: 1}
	got := At(d, NewTimeOfDay(9, 15), loc)
	want := time.Date(2025, time.June, 1, 9, 15, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("At() = %s, want %s", got, want)
	}
	if DateOf(got) != d || Clock(got) != NewTimeOfDay(9, 15) {
		t.Errorf("DateOf/Clock did not round trip %s", got)
	}
}
