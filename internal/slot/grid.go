package slot

import (
	"fmt"
	"time"
)

// DefaultStep is the slot granularity of the booking form.
const DefaultStep = 15 * time.Minute

// Grid is the set of bookable times between office open and close.
type Grid struct {
	Open  TimeOfDay
	Close TimeOfDay
	Step  time.Duration
}

// DefaultGrid is 08:00 to 20:00 in 15 minute steps.
func DefaultGrid() Grid {
	return Grid{
		Open:  NewTimeOfDay(8, 0),
		Close: NewTimeOfDay(20, 0),
		Step:  DefaultStep,
	}
}

// Validate checks that the grid describes a usable office day.
func (g Grid) Validate() error {
	if g.Step <= 0 || g.Step%time.Minute != 0 {
		return fmt.Errorf("slot step must be a positive number of minutes, got %s", g.Step)
	}
	if !g.Open.Valid() || !g.Close.Valid() || g.Open >= g.Close {
		return fmt.Errorf("office hours %s-%s are not a valid range", g.Open.Short(), g.Close.Short())
	}
	if !g.Aligned(g.Close) {
		return fmt.Errorf("office close %s is not a multiple of %s after open", g.Close.Short(), g.Step)
	}
	return nil
}

// Aligned reports whether t falls on a grid line.
func (g Grid) Aligned(t TimeOfDay) bool {
	step := TimeOfDay(g.Step / time.Second)
	return t >= g.Open && (t-g.Open)%step == 0
}

// Contains reports whether iv lies on grid lines inside office hours.
func (g Grid) Contains(iv Interval) bool {
	return iv.Valid() &&
		g.Aligned(iv.Start) && g.Aligned(iv.End) &&
		iv.Start >= g.Open && iv.End <= g.Close
}

// Starts lists every start time a booking may use.
func (g Grid) Starts() []TimeOfDay {
	var out []TimeOfDay
	for t := g.Open; t < g.Close; t = t.Add(g.Step) {
		out = append(out, t)
	}
	return out
}

// Ends lists every end time available to a booking starting at start.
func (g Grid) Ends(start TimeOfDay) []TimeOfDay {
	if !g.Aligned(start) || start >= g.Close {
		return nil
	}
	var out []TimeOfDay
	for t := start.Add(g.Step); t <= g.Close; t = t.Add(g.Step) {
		out = append(out, t)
	}
	return out
}
