package models

import (
	"fmt"
	"strings"
)

// Room is a bookable meeting room.
type Room struct {
	Name     string // Unique name, stored with every booking
	Floor    string // Where to find it
	Capacity int    // Seats; informational only
}

// Label is the name shown to users, e.g. "HIMALAYA - Basement".
func (r Room) Label() string {
	return fmt.Sprintf("%s - %s", r.Name, r.Floor)
}

// Catalog is the fixed, ordered set of rooms.
type Catalog []Room

// DefaultCatalog returns the ten office meeting rooms.
func DefaultCatalog() Catalog {
	return Catalog{
		{Name: "HIMALAYA", Floor: "Basement", Capacity: 20},
		{Name: "NEELGIRI", Floor: "Ground Floor", Capacity: 7},
		{Name: "ARAVALI", Floor: "Ground Floor", Capacity: 7},
		{Name: "KAILASH", Floor: "1 Floor", Capacity: 7},
		{Name: "ANNAPURNA", Floor: "1 Floor", Capacity: 4},
		{Name: "EVEREST", Floor: "2 Floor", Capacity: 12},
		{Name: "KANCHENJUNGA", Floor: "2 Floor", Capacity: 7},
		{Name: "SHIVALIK", Floor: "3 Floor", Capacity: 4},
		{Name: "TRISHUL", Floor: "3 Floor", Capacity: 4},
		{Name: "DHAULAGIRI", Floor: "3 Floor", Capacity: 7},
	}
}

// legacyNames maps misspellings found in older booking sheets to catalog names.
var legacyNames = map[string]string{
	"KANANACJUNGA": "KANCHENJUNGA",
}

// Lookup finds a room by name or label, ignoring case and runs of whitespace.
// Legacy misspellings of a room name resolve to the catalog room.
func (c Catalog) Lookup(name string) (Room, bool) {
	name = strings.ToUpper(strings.Join(strings.Fields(name), " "))
	head, floor, labelled := strings.Cut(name, " - ")
	if canonical, ok := legacyNames[head]; ok {
		head = canonical
	}
	for _, r := range c {
		if !strings.EqualFold(r.Name, head) {
			continue
		}
		if !labelled || strings.EqualFold(r.Floor, floor) {
			return r, true
		}
	}
	return Room{}, false
}

// Names returns the room names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, r := range c {
		names[i] = r.Name
	}
	return names
}
