package image2nord

import "sync"

// resolveSerial maps pixels to palette indexes in raster order, diffusing
// the scaled quantization error to not-yet-resolved neighbors as it goes.
// It mutates lab.
func (e *Engine) resolveSerial(lab *labImage, labels *LabelMap, strength float32) []EntryID {
	idx := make([]EntryID, lab.W*lab.H)
	off := 0
	for y := 0; y < lab.H; y++ {
		for x := 0; x < lab.W; x++ {
			l, a, b := clampLab(lab.Pix[off], lab.Pix[off+1], lab.Pix[off+2])
			id, _ := e.pal.Nearest(float64(l), float64(a), float64(b), e.subsetAt(labels, x, y))
			idx[y*lab.W+x] = id
			ent := e.pal.Entry(id)
			dl := (l - float32(ent.L)) * strength
			da := (a - float32(ent.A)) * strength
			db := (b - float32(ent.B)) * strength
			diffuseError(lab, x, y, dl, da, db)
			off += 3
		}
	}
	return idx
}

// resolveParallel maps independent row bands concurrently. With dithering
// off no state crosses rows, so banding does not change the result.
func (e *Engine) resolveParallel(lab *labImage, labels *LabelMap, workers int) []EntryID {
	idx := make([]EntryID, lab.W*lab.H)
	bandFor(lab.H, workers, func(y0, y1 int) {
		off := labOffset(lab.W, 0, y0)
		for y := y0; y < y1; y++ {
			for x := 0; x < lab.W; x++ {
				l, a, b := clampLab(lab.Pix[off], lab.Pix[off+1], lab.Pix[off+2])
				id, _ := e.pal.Nearest(float64(l), float64(a), float64(b), e.subsetAt(labels, x, y))
				idx[y*lab.W+x] = id
				off += 3
			}
		}
	})
	return idx
}

func (e *Engine) subsetAt(labels *LabelMap, x, y int) EntrySet {
	if labels == nil {
		return AllEntries
	}
	return e.affinity[labels.At(x, y)]
}

// bandFor splits total rows into contiguous bands and runs fn on up to
// workers goroutines.
func bandFor(total, workers int, fn func(start, end int)) {
	if total <= 0 {
		return
	}
	if workers > total {
		workers = total
	}
	if workers <= 1 {
		fn(0, total)
		return
	}
	step := (total + workers - 1) / workers
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * step
		end := start + step
		if end > total {
			end = total
		}
		if start >= end {
			break
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}
