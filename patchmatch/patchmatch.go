/*
DESCRIPTION
  Patch correspondence between consecutive frames of a moving camera.
  The nearest-neighbour field starts from the homography-projected
  position of each patch, falling back to random candidates where the
  projection leaves the frame, and yields a per-pixel advisory map of
  patch distances used to weight mask smoothing after a warp. Helpers
  reconstruct image patches and clear mask patches through the field.

AUTHORS
  Russell Stanley <russell@ausocean.org>
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package patchmatch builds nearest-neighbour patch fields between
// frames and the advisory distance maps derived from them.
package patchmatch

import (
	"github.com/pkg/errors"

	"github.com/ausocean/seg/sampler"
	"github.com/ausocean/seg/xform"
)

// Random candidates tried after the first one when a patch projects
// outside the effective area.
const retries = 5

// Advisory distance scale: a patch SSD divided by the two-patch border
// area ((2*patch)^2, four times the compared window) at or beyond this
// maps to a saturated advisory value.
const distScale = 52.0

// Field is a nearest-neighbour patch field over a w x h frame. Pos is
// indexed by the patch's top-left pixel (y*w+x); entries outside the
// effective area are unused.
type Field struct {
	W, H  int
	Patch int
	Pos   [][2]int32
}

// Advisory computes the nearest-neighbour field from image a to
// reference b and writes the normalised patch distance of every
// effective position into dist (len w*h). The homography maps a
// coordinates into b; positions it carries out of frame try random
// candidates instead. The effective area leaves a two-patch border so
// downstream consumers can step whole patches.
func Advisory(a, b []uint8, w, h, channels, patch int, hom xform.Homography, rng *sampler.Source, dist []uint8) (*Field, error) {
	if len(a) != w*h*channels || len(b) != w*h*channels {
		return nil, errors.New("image sizes differ")
	}
	if len(dist) != w*h {
		return nil, errors.Errorf("distance map is %d bytes, want %d", len(dist), w*h)
	}
	border := patch * 2
	aew, aeh := w-border+1, h-border+1
	if aew <= 0 || aeh <= 0 {
		return nil, errors.New("frame smaller than patch border")
	}
	f := &Field{W: w, H: h, Patch: patch, Pos: make([][2]int32, w*h)}
	for i := range dist {
		dist[i] = 0
	}
	area := float64(border * border)
	for ay := 0; ay < aeh; ay++ {
		for ax := 0; ax < aew; ax++ {
			idx := ay*w + ax
			px, py := hom.Apply(float64(ax), float64(ay))
			bx, by := int(px), int(py)
			var d float64
			if bx >= 0 && bx < aew && by >= 0 && by < aeh {
				d = ssd(a, b, w, channels, ax, ay, bx, by, patch)
			} else {
				bx, by = rng.Intn(aew), rng.Intn(aeh)
				d = ssd(a, b, w, channels, ax, ay, bx, by, patch)
				for i := 0; i < retries; i++ {
					cx, cy := rng.Intn(aew), rng.Intn(aeh)
					if cd := ssd(a, b, w, channels, ax, ay, cx, cy, patch); cd < d {
						bx, by, d = cx, cy, cd
					}
				}
			}
			f.Pos[idx] = [2]int32{int32(bx), int32(by)}
			d /= area
			if d/distScale >= 1 {
				dist[idx] = 255
			} else {
				dist[idx] = uint8(d / distScale * 255)
			}
		}
	}
	return f, nil
}

// Cover rebuilds a patch by patch from reference b through the field.
func Cover(a, b []uint8, w, h, channels int, f *Field) {
	patch := f.Patch
	aew, aeh := w-patch+1, h-patch+1
	for ay := 0; ay < aeh; ay += patch {
		for ax := 0; ax < aew; ax += patch {
			p := f.Pos[ay*w+ax]
			bx, by := int(p[0]), int(p[1])
			for ii := 0; ii < patch; ii++ {
				ai := ((ay+ii)*w + ax) * channels
				bi := ((by+ii)*w + bx) * channels
				copy(a[ai:ai+patch*channels], b[bi:bi+patch*channels])
			}
		}
	}
}

// Recover clears mask patches that are mostly foreground yet map onto a
// mostly-background reference region, unless their neighbourhood is
// also saturated. coverRate sets the fraction of patch pixels that
// counts as "mostly".
func Recover(mask, ref []uint8, w, h int, f *Field, coverRate float64) {
	patch := f.Patch
	aew, aeh := w-patch+1, h-patch+1
	ww := (aew-1)/patch + 1
	goal := int(float64(patch*patch) * coverRate)

	var white, black []bool
	for ay := 0; ay < aeh; ay += patch {
		for ax := 0; ax < aew; ax += patch {
			p := f.Pos[ay*w+ax]
			bx, by := int(p[0]), int(p[1])
			sw, sb := goal, goal
			for ii := 0; ii < patch; ii++ {
				for jj := 0; jj < patch; jj++ {
					if ref[(by+ii)*w+bx+jj] == 0 {
						sb--
					}
					if mask[(ay+ii)*w+ax+jj] == 255 {
						sw--
					}
				}
			}
			white = append(white, sw <= 0)
			black = append(black, sb <= 0)
		}
	}

	for ay := 0; ay < aeh; ay += patch {
		for ax := 0; ax < aew; ax += patch {
			idx := ay/patch*ww + ax/patch
			flag := 0
			if white[idx] {
				flag = 2
			}
			if ay > 0 && white[idx-ww] {
				flag++
			}
			if ay < aeh-patch && white[idx+ww] {
				flag++
			}
			if ax > 0 && white[idx-1] {
				flag++
			}
			if ax < aew-patch && white[idx+1] {
				flag++
			}
			if flag < 4 && black[idx] {
				for ii := 0; ii < patch; ii++ {
					for jj := 0; jj < patch; jj++ {
						mask[(ay+ii)*w+ax+jj] = 0
					}
				}
			}
		}
	}
}

// ssd is the channel-summed squared difference between the patch
// windows anchored at (ax,ay) in a and (bx,by) in b.
func ssd(a, b []uint8, w, channels, ax, ay, bx, by, patch int) float64 {
	var ans float64
	for dy := 0; dy < patch; dy++ {
		for dx := 0; dx < patch; dx++ {
			ai := ((ay+dy)*w + ax + dx) * channels
			bi := ((by+dy)*w + bx + dx) * channels
			for c := 0; c < channels; c++ {
				d := float64(a[ai+c]) - float64(b[bi+c])
				ans += d * d
			}
		}
	}
	return ans
}
