package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "database:\n  name: faces\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want 5432", cfg.Database.Port)
	}
	if cfg.Recognition.Tolerance != 0.6 {
		t.Errorf("Recognition.Tolerance = %v, want 0.6", cfg.Recognition.Tolerance)
	}
	if cfg.Recognition.RefreshPolicy != RefreshAlways {
		t.Errorf("Recognition.RefreshPolicy = %q, want %q", cfg.Recognition.RefreshPolicy, RefreshAlways)
	}
	if cfg.Vision.Backend != BackendDlib {
		t.Errorf("Vision.Backend = %q, want %q", cfg.Vision.Backend, BackendDlib)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
	if want := filepath.Join("models", "det_10g.onnx"); cfg.Vision.DetectorModel != want {
		t.Errorf("Vision.DetectorModel = %q, want %q", cfg.Vision.DetectorModel, want)
	}
	if cfg.Vision.DetectionThreshold != 0.5 {
		t.Errorf("Vision.DetectionThreshold = %v, want 0.5", cfg.Vision.DetectionThreshold)
	}
}

func TestLoad_DetectorModelFollowsModelsDir(t *testing.T) {
	cfg, err := Load(writeConfig(t, "vision:\n  models_dir: /opt/faces\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := filepath.Join("/opt/faces", "det_10g.onnx"); cfg.Vision.DetectorModel != want {
		t.Errorf("Vision.DetectorModel = %q, want %q", cfg.Vision.DetectorModel, want)
	}

	t.Setenv("FACEACCESS_DETECTOR_MODEL", "/srv/retina.onnx")
	cfg, err = Load(writeConfig(t, "vision:\n  models_dir: /opt/faces\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Vision.DetectorModel != "/srv/retina.onnx" {
		t.Errorf("Vision.DetectorModel = %q, want env override", cfg.Vision.DetectorModel)
	}
}

func TestLoad_YAMLValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9000
recognition:
  tolerance: 0.45
  refresh_policy: on_change
vision:
  backend: arcface
  arcface_model: /models/w600k_r50.onnx
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Recognition.Tolerance != 0.45 {
		t.Errorf("Recognition.Tolerance = %v, want 0.45", cfg.Recognition.Tolerance)
	}
	if cfg.Recognition.RefreshPolicy != RefreshOnChange {
		t.Errorf("Recognition.RefreshPolicy = %q, want %q", cfg.Recognition.RefreshPolicy, RefreshOnChange)
	}
	if cfg.Vision.Backend != BackendArcFace {
		t.Errorf("Vision.Backend = %q, want %q", cfg.Vision.Backend, BackendArcFace)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FACEACCESS_DB_HOST", "db.internal")
	t.Setenv("FACEACCESS_TOLERANCE", "0.5")
	t.Setenv("FACEACCESS_REFRESH_POLICY", "on_change")
	t.Setenv("FACEACCESS_SERVER_PORT", "not-a-number")

	cfg, err := Load(writeConfig(t, "server:\n  port: 7000\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q, want db.internal", cfg.Database.Host)
	}
	if cfg.Recognition.Tolerance != 0.5 {
		t.Errorf("Recognition.Tolerance = %v, want 0.5", cfg.Recognition.Tolerance)
	}
	if cfg.Recognition.RefreshPolicy != RefreshOnChange {
		t.Errorf("Recognition.RefreshPolicy = %q, want on_change", cfg.Recognition.RefreshPolicy)
	}
	// invalid numbers are ignored
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown backend", "vision:\n  backend: opencv\n"},
		{"unknown policy", "recognition:\n  refresh_policy: sometimes\n"},
		{"negative tolerance", "recognition:\n  tolerance: -1\n"},
		{"arcface without model", "vision:\n  backend: arcface\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() error = nil, want error for missing file")
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5433, Name: "n", User: "u", Password: "p"}
	want := "postgres://u:p@h:5433/n?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
