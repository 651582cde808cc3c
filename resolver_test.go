package image2nord

import (
	"testing"
)

// bruteNearest is an independent argmin over the palette, first entry wins
// on exact ties, so the resolver has something to be compared against.
func bruteNearest(p *Palette, l, a, b float64, set EntrySet) EntryID {
	if set == 0 {
		set = AllEntries
	}
	bestID := EntryID(0)
	bestD := 0.0
	first := true
	for id := Nord0; id < NumEntries; id++ {
		if !set.Has(id) {
			continue
		}
		e := p.Entry(id)
		dl := l - e.L
		da := a - e.A
		db := b - e.B
		d := dl*dl + da*da + db*db
		if first || d < bestD {
			bestID = id
			bestD = d
			first = false
		}
	}
	return bestID
}

func TestNearestMatchesBruteForce(t *testing.T) {
	p, err := NewPalette()
	if err != nil {
		t.Fatalf("new palette: %v", err)
	}

	vals := []uint8{0, 40, 90, 140, 200, 255}
	for _, r := range vals {
		for _, g := range vals {
			for _, b := range vals {
				l, la, lb := rgbToLab(r, g, b)
				got, d := p.Nearest(l, la, lb, AllEntries)
				want := bruteNearest(p, l, la, lb, AllEntries)
				if got != want {
					t.Fatalf("#%02X%02X%02X resolved to %s, brute force says %s", r, g, b, got, want)
				}
				if d < 0 {
					t.Fatalf("#%02X%02X%02X negative distance %f", r, g, b, d)
				}
			}
		}
	}
}

func TestNearestExactEntry(t *testing.T) {
	p, err := NewPalette()
	if err != nil {
		t.Fatalf("new palette: %v", err)
	}

	for id := Nord0; id < NumEntries; id++ {
		e := p.Entry(id)
		got, d := p.Nearest(e.L, e.A, e.B, AllEntries)
		if got != id {
			t.Fatalf("entry %s resolved to %s", id, got)
		}
		if d != 0 {
			t.Fatalf("entry %s has distance %f to itself", id, d)
		}
	}
}

func TestNearestTieBreaksLow(t *testing.T) {
	p, err := NewPalette()
	if err != nil {
		t.Fatalf("new palette: %v", err)
	}

	// The Lab midpoint of two entries is equidistant up to floating point
	// noise, which sits far below the tie epsilon. The lower ID must win.
	for _, tc := range [][2]EntryID{
		{Nord1, Nord2},
		{Nord4, Nord5},
		{Nord9, Nord10},
		{Nord11, Nord12},
	} {
		a, b := p.Entry(tc[0]), p.Entry(tc[1])
		set := Entries(tc[0], tc[1])
		got, _ := p.Nearest((a.L+b.L)/2, (a.A+b.A)/2, (a.B+b.B)/2, set)
		if got != tc[0] {
			t.Fatalf("midpoint of %s and %s resolved to %s", tc[0], tc[1], got)
		}
	}
}

func TestNearestRespectsSubset(t *testing.T) {
	p, err := NewPalette()
	if err != nil {
		t.Fatalf("new palette: %v", err)
	}

	// Near-white forced into Polar Night must pick a Polar Night entry.
	l, a, b := rgbToLab(0xEC, 0xEF, 0xF4)
	got, _ := p.Nearest(l, a, b, PolarNight)
	if !PolarNight.Has(got) {
		t.Fatalf("subset lookup escaped to %s", got)
	}

	// A single-entry set leaves no choice at all.
	for _, id := range []EntryID{Nord0, Nord11, Nord15} {
		got, _ := p.Nearest(l, a, b, Entries(id))
		if got != id {
			t.Fatalf("singleton set produced %s instead of %s", got, id)
		}
	}
}

func TestNearestEmptySetFallsBack(t *testing.T) {
	p, err := NewPalette()
	if err != nil {
		t.Fatalf("new palette: %v", err)
	}

	l, a, b := rgbToLab(0x81, 0xA1, 0xC1)
	full, _ := p.Nearest(l, a, b, AllEntries)
	empty, _ := p.Nearest(l, a, b, 0)
	if full != empty {
		t.Fatalf("empty set resolved to %s, full set to %s", empty, full)
	}
}

func TestNearestRGBWhite(t *testing.T) {
	p, err := NewPalette()
	if err != nil {
		t.Fatalf("new palette: %v", err)
	}

	if id := p.NearestRGB(0xFF, 0xFF, 0xFF, AllEntries); id != Nord6 {
		t.Fatalf("white resolved to %s", id)
	}

	if id := p.NearestRGB(0x00, 0x00, 0x00, AllEntries); id != Nord0 {
		t.Fatalf("black resolved to %s", id)
	}
}
