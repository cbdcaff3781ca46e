package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendDlib    = "dlib"
	BackendArcFace = "arcface"

	RefreshAlways   = "always"
	RefreshOnChange = "on_change"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	NATS        NATSConfig        `yaml:"nats"`
	MinIO       MinIOConfig       `yaml:"minio"`
	Vision      VisionConfig      `yaml:"vision"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// NATSConfig leaves event publishing disabled when URL is empty.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// MinIOConfig leaves the enrollment image archive disabled when Endpoint is empty.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type VisionConfig struct {
	Backend      string `yaml:"backend"`       // dlib or arcface
	ModelsDir    string `yaml:"models_dir"`    // dlib model files
	CNN          bool   `yaml:"cnn"`           // use the dlib CNN face detector
	ArcFaceModel string `yaml:"arcface_model"` // path to the ArcFace ONNX model
	ONNXLibrary  string `yaml:"onnx_library"`  // onnxruntime shared library, OS default when empty

	// RetinaFace model for the arcface backend, models_dir/det_10g.onnx when empty.
	DetectorModel      string  `yaml:"detector_model"`
	DetectionThreshold float64 `yaml:"detection_threshold"`
}

type RecognitionConfig struct {
	Tolerance     float64 `yaml:"tolerance"`
	RefreshPolicy string  `yaml:"refresh_policy"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
// A .env file in the working directory is loaded first when present.
// An empty path skips the file and uses env and defaults only.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Vision.Backend {
	case BackendDlib, BackendArcFace:
	default:
		return fmt.Errorf("unknown vision backend %q", c.Vision.Backend)
	}
	switch c.Recognition.RefreshPolicy {
	case RefreshAlways, RefreshOnChange:
	default:
		return fmt.Errorf("unknown refresh policy %q", c.Recognition.RefreshPolicy)
	}
	if c.Recognition.Tolerance <= 0 {
		return errors.New("recognition tolerance must be positive")
	}
	if c.Vision.Backend == BackendArcFace && c.Vision.ArcFaceModel == "" {
		return errors.New("arcface backend requires vision.arcface_model")
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = "faceaccess"
	}
	if cfg.Vision.Backend == "" {
		cfg.Vision.Backend = BackendDlib
	}
	if cfg.Vision.ModelsDir == "" {
		cfg.Vision.ModelsDir = "models"
	}
	if cfg.Vision.DetectorModel == "" {
		cfg.Vision.DetectorModel = filepath.Join(cfg.Vision.ModelsDir, "det_10g.onnx")
	}
	if cfg.Vision.DetectionThreshold == 0 {
		cfg.Vision.DetectionThreshold = 0.5
	}
	if cfg.Recognition.Tolerance == 0 {
		cfg.Recognition.Tolerance = 0.6
	}
	if cfg.Recognition.RefreshPolicy == "" {
		cfg.Recognition.RefreshPolicy = RefreshAlways
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FACEACCESS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FACEACCESS_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FACEACCESS_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FACEACCESS_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FACEACCESS_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FACEACCESS_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FACEACCESS_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FACEACCESS_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("FACEACCESS_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("FACEACCESS_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("FACEACCESS_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("FACEACCESS_VISION_BACKEND"); v != "" {
		cfg.Vision.Backend = v
	}
	if v := os.Getenv("FACEACCESS_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("FACEACCESS_ARCFACE_MODEL"); v != "" {
		cfg.Vision.ArcFaceModel = v
	}
	if v := os.Getenv("FACEACCESS_DETECTOR_MODEL"); v != "" {
		cfg.Vision.DetectorModel = v
	}
	if v := os.Getenv("FACEACCESS_TOLERANCE"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Recognition.Tolerance = t
		}
	}
	if v := os.Getenv("FACEACCESS_REFRESH_POLICY"); v != "" {
		cfg.Recognition.RefreshPolicy = v
	}
	if v := os.Getenv("FACEACCESS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
