package vision

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/faceaccess/internal/config"
	"github.com/your-org/faceaccess/internal/models"
)

// ArcFaceExtractor detects faces with RetinaFace and embeds each one with ArcFace.
// It owns the onnxruntime environment for the process.
type ArcFaceExtractor struct {
	mu       sync.Mutex
	detector *Detector
	embedder *Embedder
}

func NewArcFaceExtractor(cfg config.VisionConfig) (*ArcFaceExtractor, error) {
	ort.SetSharedLibraryPath(onnxLibraryPath(cfg.ONNXLibrary))
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("init onnx runtime: %w", err)
	}

	det, err := NewDetector(cfg.DetectorModel, float32(cfg.DetectionThreshold))
	if err != nil {
		_ = ort.DestroyEnvironment()
		return nil, fmt.Errorf("load detector: %w", err)
	}
	emb, err := NewEmbedder(cfg.ArcFaceModel)
	if err != nil {
		det.Close()
		_ = ort.DestroyEnvironment()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	return &ArcFaceExtractor{detector: det, embedder: emb}, nil
}

func (a *ArcFaceExtractor) Extract(ctx context.Context, data []byte) ([]models.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	dets, err := a.detector.Detect(img)
	if err != nil {
		return nil, err
	}

	embs := make([]models.Embedding, 0, len(dets))
	for _, d := range dets {
		crop := cropFace(img, d.Box)
		if crop == nil {
			continue
		}
		emb, err := a.embedder.Embed(crop)
		if err != nil {
			return nil, err
		}
		embs = append(embs, emb)
	}
	return embs, nil
}

func (a *ArcFaceExtractor) Dim() int {
	return a.embedder.Dim()
}

func (a *ArcFaceExtractor) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector.Close()
	a.embedder.Close()
	_ = ort.DestroyEnvironment()
}

// onnxLibraryPath returns the configured path or the platform default name.
func onnxLibraryPath(configured string) string {
	if configured != "" {
		return configured
	}
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}
