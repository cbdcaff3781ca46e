package vision

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Kagami/go-face"

	"github.com/your-org/faceaccess/internal/models"
)

// DlibExtractor wraps the dlib ResNet face recognizer. modelsDir must contain
// shape_predictor_5_face_landmarks.dat, dlib_face_recognition_resnet_model_v1.dat
// and, for CNN detection, mmod_human_face_detector.dat.
type DlibExtractor struct {
	mu  sync.Mutex
	rec *face.Recognizer
	cnn bool
}

func NewDlibExtractor(modelsDir string, cnn bool) (*DlibExtractor, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("load dlib models from %s: %w", modelsDir, err)
	}
	return &DlibExtractor{rec: rec, cnn: cnn}, nil
}

func (d *DlibExtractor) Extract(ctx context.Context, data []byte) ([]models.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// dlib only loads JPEG.
	jpg, err := asJPEG(data)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	var faces []face.Face
	if d.cnn {
		faces, err = d.rec.RecognizeCNN(jpg)
	} else {
		faces, err = d.rec.Recognize(jpg)
	}
	d.mu.Unlock()
	if err != nil {
		var loadErr face.ImageLoadError
		if errors.As(err, &loadErr) {
			return nil, fmt.Errorf("%w: %v", models.ErrUnreadableImage, err)
		}
		return nil, fmt.Errorf("recognize faces: %w", err)
	}

	embs := make([]models.Embedding, len(faces))
	for i, f := range faces {
		emb := make(models.Embedding, len(f.Descriptor))
		copy(emb, f.Descriptor[:])
		embs[i] = emb
	}
	return embs, nil
}

// Dim is the dlib descriptor length.
func (d *DlibExtractor) Dim() int {
	return len(face.Descriptor{})
}

func (d *DlibExtractor) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rec != nil {
		d.rec.Close()
		d.rec = nil
	}
}
