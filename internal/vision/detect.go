package vision

import (
	"fmt"
	"image"
	"sort"

	ort "github.com/yalue/onnxruntime_go"
)

// Detection is one face box in original image coordinates.
type Detection struct {
	Box        image.Rectangle
	Confidence float32
}

// Detector runs RetinaFace (insightface det_10g) on a fixed 640x640 input.
type Detector struct {
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	outputs   []*ort.Tensor[float32] // scores x3, boxes x3, landmarks x3
	threshold float32
	size      int
}

// det_10g feature-map strides, two anchors per cell.
var strides = []int{8, 16, 32}

const anchorsPerCell = 2

// det_10g output tensor names, in scores/boxes/landmarks order per stride.
var detectorOutputs = []struct {
	name  string
	width int64
}{
	{"448", 1}, {"471", 1}, {"494", 1},
	{"451", 4}, {"474", 4}, {"497", 4},
	{"454", 10}, {"477", 10}, {"500", 10},
}

func NewDetector(modelPath string, threshold float32) (*Detector, error) {
	const size = 640

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	d := &Detector{input: input, threshold: threshold, size: size}
	names := make([]string, len(detectorOutputs))
	values := make([]ort.Value, len(detectorOutputs))
	for i, out := range detectorOutputs {
		cells := int64(size/strides[i%3]) * int64(size/strides[i%3]) * anchorsPerCell
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(cells, out.width))
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("create output tensor %s: %w", out.name, err)
		}
		names[i] = out.name
		values[i] = t
		d.outputs = append(d.outputs, t)
	}

	d.session, err = ort.NewAdvancedSession(modelPath,
		[]string{"input.1"}, names,
		[]ort.Value{input}, values,
		nil,
	)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("create detector session: %w", err)
	}
	return d, nil
}

// Detect returns faces above the threshold after non-maximum suppression,
// ordered by confidence. The caller must serialize calls.
func (d *Detector) Detect(img image.Image) ([]Detection, error) {
	copy(d.input.GetData(), toCHW(resize(img, d.size, d.size), 127.5, 128))

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	b := img.Bounds()
	scaleX := float32(b.Dx()) / float32(d.size)
	scaleY := float32(b.Dy()) / float32(d.size)

	var dets []Detection
	for si, stride := range strides {
		dets = append(dets, decodeStride(
			d.outputs[si].GetData(), d.outputs[si+3].GetData(),
			stride, d.size, d.threshold, scaleX, scaleY, b,
		)...)
	}
	return nms(dets, 0.4), nil
}

// decodeStride turns one stride's anchor scores and edge distances into boxes.
func decodeStride(scores, boxes []float32, stride, size int, threshold, scaleX, scaleY float32, bounds image.Rectangle) []Detection {
	var dets []Detection
	cells := size / stride
	st := float32(stride)

	idx := 0
	for cy := 0; cy < cells; cy++ {
		for cx := 0; cx < cells; cx++ {
			for a := 0; a < anchorsPerCell; a++ {
				if scores[idx] >= threshold {
					ax, ay := float32(cx)*st, float32(cy)*st
					box := image.Rect(
						bounds.Min.X+int((ax-boxes[idx*4]*st)*scaleX),
						bounds.Min.Y+int((ay-boxes[idx*4+1]*st)*scaleY),
						bounds.Min.X+int((ax+boxes[idx*4+2]*st)*scaleX),
						bounds.Min.Y+int((ay+boxes[idx*4+3]*st)*scaleY),
					).Intersect(bounds)
					if !box.Empty() {
						dets = append(dets, Detection{Box: box, Confidence: scores[idx]})
					}
				}
				idx++
			}
		}
	}
	return dets
}

func (d *Detector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.input != nil {
		d.input.Destroy()
	}
	for _, t := range d.outputs {
		t.Destroy()
	}
}

// nms keeps the most confident box of every overlapping group.
func nms(dets []Detection, iouThreshold float64) []Detection {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Confidence > dets[j].Confidence
	})

	var kept []Detection
	for _, d := range dets {
		overlaps := false
		for _, k := range kept {
			if iou(d.Box, k.Box) > iouThreshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, d)
		}
	}
	return kept
}

func iou(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	area := func(r image.Rectangle) float64 { return float64(r.Dx() * r.Dy()) }
	union := area(a) + area(b) - area(inter)
	if union <= 0 {
		return 0
	}
	return area(inter) / union
}
