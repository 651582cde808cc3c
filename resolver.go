package image2nord

import "math"

// Nearest returns the entry of set closest to the given Lab coordinates by
// squared Euclidean distance, along with that squared distance. Candidates
// within tieEpsilon of the minimum count as equidistant and the lowest entry
// ID wins, so results are stable across candidate orderings. An empty set
// falls back to the full palette.
func (p *Palette) Nearest(l, a, b float64, set EntrySet) (EntryID, float64) {
	if set == 0 {
		set = AllEntries
	}
	var dist [NumEntries]float64
	best := math.MaxFloat64
	for i := range p.entries {
		if set&(1<<uint(i)) == 0 {
			dist[i] = math.MaxFloat64
			continue
		}
		e := &p.entries[i]
		dl := l - e.L
		da := a - e.A
		db := b - e.B
		d := dl*dl + da*da + db*db
		dist[i] = d
		if d < best {
			best = d
		}
	}
	for i, d := range dist {
		if d <= best+tieEpsilon {
			return EntryID(i), d
		}
	}
	return 0, 0 // unreachable, the loop above always hits the minimum
}

// NearestRGB resolves one 8-bit sRGB color to its nearest palette entry.
func (p *Palette) NearestRGB(r, g, b uint8, set EntrySet) EntryID {
	l, la, lb := rgbToLab(r, g, b)
	id, _ := p.Nearest(l, la, lb, set)
	return id
}
