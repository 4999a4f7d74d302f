package vision

import (
	"image"
	"sort"
)

// DuplicateIoU is the overlap above which two detections are treated as the same face.
const DuplicateIoU = 0.5

// ComputeIoU calculates Intersection over Union between two boxes.
func ComputeIoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}

	area := func(r image.Rectangle) float64 { return float64(r.Dx()) * float64(r.Dy()) }
	union := area(a) + area(b) - area(inter)
	if union <= 0 {
		return 0
	}
	return area(inter) / union
}

// suppressDuplicates drops detections overlapping a higher scoring one by more
// than maxIoU. The result is ordered by descending detection score.
func suppressDuplicates(faces []FaceDetection, maxIoU float64) []FaceDetection {
	sorted := make([]FaceDetection, len(faces))
	copy(sorted, faces)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DetScore > sorted[j].DetScore })

	kept := make([]FaceDetection, 0, len(sorted))
	for _, f := range sorted {
		r := f.Rect()
		duplicate := false
		for _, k := range kept {
			if ComputeIoU(r, k.Rect()) > maxIoU {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, f)
		}
	}
	return kept
}
