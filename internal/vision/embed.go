package vision

import (
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
)

// Embedder runs the ArcFace w600k_r50 model on 112x112 face crops.
type Embedder struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	size    int
	dim     int
}

func NewEmbedder(modelPath string) (*Embedder, error) {
	const size, dim = 112, 512

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, dim))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input.1"}, []string{"683"},
		[]ort.Value{input}, []ort.Value{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create embedder session: %w", err)
	}

	return &Embedder{session: session, input: input, output: output, size: size, dim: dim}, nil
}

// Embed returns the L2-normalized embedding of a face crop.
// The caller must serialize calls.
func (e *Embedder) Embed(crop image.Image) ([]float32, error) {
	copy(e.input.GetData(), toCHW(resize(crop, e.size, e.size), 127.5, 127.5))

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("run embedding: %w", err)
	}

	emb := make([]float32, e.dim)
	copy(emb, e.output.GetData())
	normalize(emb)
	return emb, nil
}

func (e *Embedder) Dim() int {
	return e.dim
}

func (e *Embedder) Close() {
	if e.session != nil {
		e.session.Destroy()
	}
	if e.input != nil {
		e.input.Destroy()
	}
	if e.output != nil {
		e.output.Destroy()
	}
}

// normalize scales v to unit length in place. A zero vector is left unchanged.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
