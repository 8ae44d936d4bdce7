/*
DESCRIPTION
  Patch-level mask smoothing. The frame is tiled into patch x patch
  cells; each cell becomes a node of a binary MRF whose data term comes
  from the cell's foreground share and whose smoothness term decays with
  the image-space distance between neighbouring cells. The MRF is solved
  by min-cut, then cells interior to a uniform label are painted solid
  while cells on a label boundary are re-thresholded per pixel.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Russell Stanley <russell@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package graphcut

import "math"

const (
	// Data/smoothness trade-off weights.
	lambda1 = 0.3
	lambda2 = 0.3

	// Per-pixel threshold applied inside boundary patches.
	borderThreshold = 155
)

// Smooth refines the binary mask in place using patch-level min-cut
// labelling over the image (w x h, 1 or 3 interleaved channels).
// Advisory is an optional per-pixel patch-distance map and last an
// optional previous mask; both are blended into the mask before the
// data term is computed. Pixels beyond the last full patch row/column
// take part in that blend but are not relabelled.
func Smooth(image []uint8, channels, w, h int, advisory, last, mask []uint8, patch int) {
	if advisory != nil {
		blend(mask, advisory, 0.5, 0.5)
	}
	if last != nil {
		blend(mask, last, 0.8, 0.2)
	}

	aew, aeh := w-patch+1, h-patch+1
	if aew <= 0 || aeh <= 0 {
		return
	}
	ww := (aew-1)/patch + 1
	hh := (aeh-1)/patch + 1
	size := ww * hh
	area := float64(patch * patch)
	g := NewGraph(size)

	// Data edges from each patch's foreground share.
	idx := 0
	for ay := 0; ay < aeh; ay += patch {
		for ax := 0; ax < aew; ax += patch {
			var ss float64
			for ii := 0; ii < patch; ii++ {
				for jj := 0; jj < patch; jj++ {
					ss += 1 - float64(mask[(ay+ii)*w+ax+jj])/255
				}
			}
			ps := ss / area
			d := math.Min(1, ps*2)
			d = math.Max(1e-20, d)
			d1 := -math.Log(d)
			d2 := -math.Log(math.Max(1e-20, 1-d))
			if d1 > d2 {
				g.AddEdge(g.S(), idx, d1-d2, 0)
			} else {
				g.AddEdge(idx, g.T(), d2-d1, 0)
			}
			idx++
		}
	}

	// Smoothness edges between 8-neighbour patches, weighted by image
	// similarity relative to the mean neighbour distance.
	var edgeLen []float64
	var avgDist float64
	for ay := 0; ay < aeh; ay += patch {
		for ax := 0; ax < aew; ax += patch {
			if ay > 0 {
				edgeLen = append(edgeLen, patchSSD(image, channels, w, ax, ay, ax, ay-patch, patch))
			}
			if ax > 0 {
				edgeLen = append(edgeLen, patchSSD(image, channels, w, ax, ay, ax-patch, ay, patch))
			}
			if ax > 0 && ay > 0 {
				edgeLen = append(edgeLen, patchSSD(image, channels, w, ax, ay, ax-patch, ay-patch, patch))
			}
			if ay > 0 && ax+patch < aew {
				edgeLen = append(edgeLen, patchSSD(image, channels, w, ax, ay, ax+patch, ay-patch, patch))
			}
		}
	}
	for _, l := range edgeLen {
		avgDist += l
	}
	if len(edgeLen) > 0 {
		avgDist /= float64(len(edgeLen))
	}
	if avgDist == 0 {
		avgDist = 1
	}
	ei := 0
	for ay := 0; ay < aeh; ay += patch {
		for ax := 0; ax < aew; ax += patch {
			id := ay/patch*ww + ax/patch
			if ay > 0 {
				c := lambda1 + lambda2*math.Exp(-edgeLen[ei]/2/avgDist)
				ei++
				g.AddEdge(id, id-ww, c, c)
			}
			if ax > 0 {
				c := lambda1 + lambda2*math.Exp(-edgeLen[ei]/2/avgDist)
				ei++
				g.AddEdge(id, id-1, c, c)
			}
			if ax > 0 && ay > 0 {
				c := lambda1 + lambda2*math.Exp(-edgeLen[ei]/2/avgDist)
				ei++
				g.AddEdge(id, id-ww-1, c, c)
			}
			if ay > 0 && ax+patch < aew {
				c := lambda1 + lambda2*math.Exp(-edgeLen[ei]/2/avgDist)
				ei++
				g.AddEdge(id, id-ww+1, c, c)
			}
		}
	}

	g.MaxFlow()

	// Patches adjacent to both labels sit on the cut boundary.
	border := make([]bool, size)
	for ay := 0; ay < aeh; ay += patch {
		for ax := 0; ax < aew; ax += patch {
			id := ay/patch*ww + ax/patch
			var f1, f2 bool
			mark := func(src bool) {
				if src {
					f1 = true
				} else {
					f2 = true
				}
			}
			if ax > 0 {
				mark(g.SourceSide(id - 1))
			}
			if ay > 0 {
				mark(g.SourceSide(id - ww))
			}
			if ax+patch < aew {
				mark(g.SourceSide(id + 1))
			}
			if ay+patch < aeh {
				mark(g.SourceSide(id + ww))
			}
			border[id] = f1 && f2
		}
	}

	// Boundary patches keep per-pixel detail; interior patches go solid.
	for ay := 0; ay < aeh; ay += patch {
		for ax := 0; ax < aew; ax += patch {
			id := ay/patch*ww + ax/patch
			flag := border[id]
			if ax > 0 && border[id-1] {
				flag = true
			}
			if ay > 0 && border[id-ww] {
				flag = true
			}
			if ax+patch < aew && border[id+1] {
				flag = true
			}
			if ay+patch < aeh && border[id+ww] {
				flag = true
			}
			if flag {
				for ii := 0; ii < patch; ii++ {
					for jj := 0; jj < patch; jj++ {
						p := (ay+ii)*w + ax + jj
						if mask[p] > borderThreshold {
							mask[p] = 255
						} else {
							mask[p] = 0
						}
					}
				}
				continue
			}
			var v uint8
			if g.SourceSide(id) {
				v = 255
			}
			for ii := 0; ii < patch; ii++ {
				for jj := 0; jj < patch; jj++ {
					mask[(ay+ii)*w+ax+jj] = v
				}
			}
		}
	}
}

// patchSSD is the sum of squared differences between the patch x patch
// windows anchored at (ax,ay) and (bx,by).
func patchSSD(img []uint8, channels, w, ax, ay, bx, by, patch int) float64 {
	var ans float64
	for dy := 0; dy < patch; dy++ {
		for dx := 0; dx < patch; dx++ {
			ai := ((ay+dy)*w + ax + dx) * channels
			bi := ((by+dy)*w + bx + dx) * channels
			for c := 0; c < channels; c++ {
				d := float64(img[ai+c]) - float64(img[bi+c])
				ans += d * d
			}
		}
	}
	return ans
}

// blend overwrites dst with wa*dst + wb*b, saturated to bytes.
func blend(dst, b []uint8, wa, wb float64) {
	for i := range dst {
		v := wa*float64(dst[i]) + wb*float64(b[i])
		switch {
		case v <= 0:
			dst[i] = 0
		case v >= 255:
			dst[i] = 255
		default:
			dst[i] = uint8(v + 0.5)
		}
	}
}
