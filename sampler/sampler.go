/*
DESCRIPTION
  Seedable random position sampling for per-pixel background models: a
  gaussian-weighted 7x7 pattern for drawing initialisation samples, and
  uniform 3x3/5x5 neighbour pickers for spatial sample propagation. All
  draws come from an engine-local source so a fixed seed reproduces a
  segmentation run bit for bit.

AUTHORS
  Scott Barnard <scott@ausocean.org>
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package sampler provides seedable random position sampling over image
// neighbourhoods.
package sampler

import "math/rand"

// Importance-weighted 7x7 initialisation pattern. Weights sum to 4096 so
// a draw is a single modulo.
var initPattern = [7][7]int{
	{0, 0, 4, 7, 4, 0, 0},
	{0, 11, 53, 88, 53, 11, 0},
	{4, 53, 240, 399, 240, 53, 4},
	{7, 88, 399, 660, 399, 88, 7},
	{4, 53, 240, 399, 240, 53, 4},
	{0, 11, 53, 88, 53, 11, 0},
	{0, 0, 4, 7, 4, 0, 0},
}

const initPatternTot = 4096

// Offsets of the 3x3 neighbourhood, centre excluded.
var neighbors3x3 = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Offsets of the 5x5 neighbourhood, centre excluded.
var neighbors5x5 = [24][2]int{
	{-2, -2}, {-1, -2}, {0, -2}, {1, -2}, {2, -2},
	{-2, -1}, {-1, -1}, {0, -1}, {1, -1}, {2, -1},
	{-2, 0}, {-1, 0}, {1, 0}, {2, 0},
	{-2, 1}, {-1, 1}, {0, 1}, {1, 1}, {2, 1},
	{-2, 2}, {-1, 2}, {0, 2}, {1, 2}, {2, 2},
}

// Source is a seedable random source for position sampling and the raw
// integer draws the segmentation feedback loop performs.
type Source struct {
	r *rand.Rand
}

// New returns a Source seeded with seed.
func New(seed int64) *Source {
	return &Source{r: rand.New(rand.NewSource(seed))}
}

// Int returns a non-negative pseudo-random int.
func (s *Source) Int() int { return s.r.Int() }

// Intn returns a pseudo-random int in [0,n).
func (s *Source) Intn(n int) int { return s.r.Intn(n) }

// SamplePosition draws a position near (x,y) from the weighted 7x7
// pattern, clamped inside [border,w-border) x [border,h-border).
func (s *Source) SamplePosition(x, y, border, w, h int) (int, int) {
	r := s.r.Intn(initPatternTot)
	var dx, dy int
	for dy = 0; dy < 7; dy++ {
		done := false
		for dx = 0; dx < 7; dx++ {
			r -= initPattern[dy][dx]
			if r < 0 {
				done = true
				break
			}
		}
		if done {
			break
		}
	}
	return clamp(x+dx-3, border, w-border), clamp(y+dy-3, border, h-border)
}

// Neighbor3x3 picks a uniform random 3x3 neighbour of (x,y), clamped
// inside the border-safe region. The clamp means the centre itself can
// be returned at the region edge.
func (s *Source) Neighbor3x3(x, y, border, w, h int) (int, int) {
	n := neighbors3x3[s.r.Intn(len(neighbors3x3))]
	return clamp(x+n[0], border, w-border), clamp(y+n[1], border, h-border)
}

// Neighbor5x5 picks a uniform random 5x5 neighbour of (x,y), clamped
// inside the border-safe region.
func (s *Source) Neighbor5x5(x, y, border, w, h int) (int, int) {
	n := neighbors5x5[s.r.Intn(len(neighbors5x5))]
	return clamp(x+n[0], border, w-border), clamp(y+n[1], border, h-border)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v >= hi {
		return hi - 1
	}
	return v
}
