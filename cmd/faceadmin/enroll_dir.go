package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/your-org/faceaccess/internal/models"
	"github.com/your-org/faceaccess/internal/queue"
	"github.com/your-org/faceaccess/internal/recognition"
	"github.com/your-org/faceaccess/internal/registry"
	"github.com/your-org/faceaccess/internal/storage"
	"github.com/your-org/faceaccess/internal/vision"
)

var enrollDirCmd = &cobra.Command{
	Use:   "enroll-dir DIR",
	Short: "Enroll every photo in a directory",
	Long: `Enrolls one person per .jpg, .jpeg or .png file in DIR. The person's name
comes from the file name: underscores become spaces and each word is
capitalised, so ana_maria.jpg enrolls "Ana Maria". Enrolling a name that
already exists replaces that person's face.

Files without a detectable face are reported and skipped.

Examples:
  # See which names would be enrolled
  faceadmin enroll-dir ./faces --dry-run

  # Enroll them
  faceadmin enroll-dir ./faces`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollDir,
}

func init() {
	rootCmd.AddCommand(enrollDirCmd)

	enrollDirCmd.Flags().Bool("dry-run", false, "Print derived names without enrolling")
}

// listImages returns the image files directly inside dir, sorted by name.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !isImageFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

func runEnrollDir(cmd *cobra.Command, args []string) error {
	dryRun := mustGetBool(cmd, "dry-run")

	files, err := listImages(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No images found.")
		return nil
	}

	if dryRun {
		for _, f := range files {
			fmt.Printf("%s -> %s\n", filepath.Base(f), nameFromFile(f))
		}
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Printf("Loading %s models...\n", cfg.Vision.Backend)
	extractor, err := vision.Open(cfg.Vision)
	if err != nil {
		return fmt.Errorf("failed to load vision backend: %w", err)
	}
	defer extractor.Close()

	var archive recognition.ImageArchive
	if cfg.MinIO.Endpoint != "" {
		minioStore, err := storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			return fmt.Errorf("failed to connect to MinIO: %w", err)
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure bucket: %w", err)
		}
		archive = minioStore
	}

	// Running API replicas reload their registry when NATS is configured.
	var notifier recognition.Notifier
	if cfg.NATS.URL != "" {
		producer, err := queue.NewProducer(cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer producer.Close()
		notifier = producer
	}

	reg := registry.New(db, registry.PolicyOnChange)
	enroller := recognition.NewEnroller(extractor, db, reg, archive, notifier)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var created, updated int
	var noFace, failed []string

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}

		data, err := os.ReadFile(path)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			_ = bar.Add(1)
			continue
		}

		res, err := enroller.Enroll(ctx, nameFromFile(path), data)
		switch {
		case errors.Is(err, models.ErrNoFaceDetected):
			noFace = append(noFace, filepath.Base(path))
		case err != nil:
			failed = append(failed, fmt.Sprintf("%s: %v", filepath.Base(path), err))
		case res.Result == recognition.EnrollCreated:
			created++
		default:
			updated++
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	fmt.Printf("\n\nEnrolled: %d new, %d updated\n", created, updated)
	if len(noFace) > 0 {
		fmt.Printf("\nNo face detected in %d photos:\n", len(noFace))
		for _, f := range noFace {
			fmt.Printf("  %s\n", f)
		}
	}
	if len(failed) > 0 {
		fmt.Printf("\nFailed %d photos:\n", len(failed))
		for _, f := range failed {
			fmt.Printf("  %s\n", f)
		}
		return fmt.Errorf("%d of %d photos failed", len(failed), len(files))
	}
	return ctx.Err()
}
