// Package vision extracts face embeddings from encoded images.
//
// Two backends are available: dlib (go-face, 128-d ResNet descriptors) and
// arcface (RetinaFace detection plus ArcFace 512-d embeddings on onnxruntime).
// Embeddings from different backends are not comparable, so a store must only
// ever be populated by one backend.
package vision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/your-org/faceaccess/internal/config"
	"github.com/your-org/faceaccess/internal/models"
)

// Backend extracts one embedding per detected face, in detection order.
type Backend interface {
	Extract(ctx context.Context, image []byte) ([]models.Embedding, error)
	Dim() int
	Close()
}

// Open loads the backend selected by cfg.Backend.
func Open(cfg config.VisionConfig) (Backend, error) {
	switch cfg.Backend {
	case config.BackendDlib, "":
		slog.Info("loading dlib models", "dir", cfg.ModelsDir, "cnn", cfg.CNN)
		return NewDlibExtractor(cfg.ModelsDir, cfg.CNN)
	case config.BackendArcFace:
		slog.Info("loading onnx models", "detector", cfg.DetectorModel, "embedder", cfg.ArcFaceModel)
		return NewArcFaceExtractor(cfg)
	default:
		return nil, fmt.Errorf("unknown vision backend %q", cfg.Backend)
	}
}
