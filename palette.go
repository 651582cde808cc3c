package image2nord

import (
	"fmt"
	"image/color"
	"math/bits"
	"strconv"
)

// EntryID identifies one of the 16 Nord palette entries, Nord0 through Nord15.
type EntryID uint8

// Palette entry identifiers in canonical Nord order: Polar Night (0-3),
// Snow Storm (4-6), Frost (7-10), Aurora (11-15).
const (
	Nord0 EntryID = iota
	Nord1
	Nord2
	Nord3
	Nord4
	Nord5
	Nord6
	Nord7
	Nord8
	Nord9
	Nord10
	Nord11
	Nord12
	Nord13
	Nord14
	Nord15
)

// NumEntries is the fixed palette size.
const NumEntries = 16

func (id EntryID) String() string {
	return "nord" + strconv.Itoa(int(id))
}

// EntrySet is a bitmask of candidate palette entries; bit i selects Nord_i.
// The zero set means "no restriction" wherever a set is consumed.
type EntrySet uint16

// Palette groups as entry sets.
const (
	PolarNight EntrySet = 0x000F // Nord0-Nord3, dark polar blues
	SnowStorm  EntrySet = 0x0070 // Nord4-Nord6, bright grays
	Frost      EntrySet = 0x0780 // Nord7-Nord10, blue-green accents
	Aurora     EntrySet = 0xF800 // Nord11-Nord15, colorful accents
	AllEntries EntrySet = 0xFFFF
)

// Entries builds a set from individual entry IDs.
func Entries(ids ...EntryID) EntrySet {
	var s EntrySet
	for _, id := range ids {
		s |= 1 << id
	}
	return s
}

// Has reports whether id is in the set.
func (s EntrySet) Has(id EntryID) bool {
	return id < NumEntries && s&(1<<id) != 0
}

// With returns the set extended by the given IDs.
func (s EntrySet) With(ids ...EntryID) EntrySet {
	return s | Entries(ids...)
}

// Len returns the number of entries in the set.
func (s EntrySet) Len() int {
	return bits.OnesCount16(uint16(s))
}

// nordRGB holds the canonical Nord color values, indexed by EntryID.
var nordRGB = [NumEntries]color.NRGBA{
	Nord0:  {R: 0x2E, G: 0x34, B: 0x40, A: 0xFF},
	Nord1:  {R: 0x3B, G: 0x42, B: 0x52, A: 0xFF},
	Nord2:  {R: 0x43, G: 0x4C, B: 0x5E, A: 0xFF},
	Nord3:  {R: 0x4C, G: 0x56, B: 0x6A, A: 0xFF},
	Nord4:  {R: 0xD8, G: 0xDE, B: 0xE9, A: 0xFF},
	Nord5:  {R: 0xE5, G: 0xE9, B: 0xF0, A: 0xFF},
	Nord6:  {R: 0xEC, G: 0xEF, B: 0xF4, A: 0xFF},
	Nord7:  {R: 0x8F, G: 0xBC, B: 0xBB, A: 0xFF},
	Nord8:  {R: 0x88, G: 0xC0, B: 0xD0, A: 0xFF},
	Nord9:  {R: 0x81, G: 0xA1, B: 0xC1, A: 0xFF},
	Nord10: {R: 0x5E, G: 0x81, B: 0xAC, A: 0xFF},
	Nord11: {R: 0xBF, G: 0x61, B: 0x6A, A: 0xFF},
	Nord12: {R: 0xD0, G: 0x87, B: 0x70, A: 0xFF},
	Nord13: {R: 0xEB, G: 0xCB, B: 0x8B, A: 0xFF},
	Nord14: {R: 0xA3, G: 0xBE, B: 0x8C, A: 0xFF},
	Nord15: {R: 0xB4, G: 0x8E, B: 0xAD, A: 0xFF},
}

// Entry is one palette color with its precomputed perceptual coordinates.
type Entry struct {
	ID  EntryID
	RGB color.NRGBA
	// L, A, B are CIE L*a*b* coordinates against the D65 reference white,
	// with L in [0,100].
	L, A, B float64
}

// Hex returns the entry color as a #RRGGBB string.
func (e Entry) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", e.RGB.R, e.RGB.G, e.RGB.B)
}

// Palette is the immutable 16-entry Nord lookup table. Construct it once with
// NewPalette and share it; all methods are safe for concurrent use.
type Palette struct {
	entries [NumEntries]Entry
}

// NewPalette builds the palette and precomputes the Lab coordinates of every
// entry. It fails with ErrConfiguration if the color table is malformed.
func NewPalette() (*Palette, error) {
	p := &Palette{}
	seen := make(map[color.NRGBA]EntryID, NumEntries)
	for i, c := range nordRGB {
		if c.A != 0xFF {
			return nil, fmt.Errorf("%w: palette entry %s is not opaque", ErrConfiguration, EntryID(i))
		}
		if prev, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: palette entries %s and %s share #%02X%02X%02X",
				ErrConfiguration, prev, EntryID(i), c.R, c.G, c.B)
		}
		seen[c] = EntryID(i)
		l, a, b := rgbToLab(c.R, c.G, c.B)
		p.entries[i] = Entry{ID: EntryID(i), RGB: c, L: l, A: a, B: b}
	}
	return p, nil
}

// Entry returns the palette entry for id.
func (p *Palette) Entry(id EntryID) Entry {
	return p.entries[id]
}

// All returns the entries in ID order.
func (p *Palette) All() []Entry {
	out := make([]Entry, NumEntries)
	copy(out, p.entries[:])
	return out
}

// Colors returns the palette as a standard library color.Palette in ID order,
// for interoperability with image/draw quantization interfaces.
func (p *Palette) Colors() color.Palette {
	out := make(color.Palette, NumEntries)
	for i := range p.entries {
		out[i] = p.entries[i].RGB
	}
	return out
}
