package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Ledger backends
const (
	BackendCSV      = "csv"
	BackendPostgres = "postgres"
)

// Detector kinds
const (
	DetectorEmbedding = "embedding"
	DetectorPigo      = "pigo"
	DetectorGocv      = "gocv"
)

type Config struct {
	Storage   StorageConfig
	Embedding EmbeddingConfig
	Verify    VerifyConfig   `yaml:"verify"`
	Detector  DetectorConfig `yaml:"detector"`
	Database  DatabaseConfig
}

type StorageConfig struct {
	FacesDir   string // one reference image per identity
	LedgerPath string // CSV ledger file
	Backend    string // csv or postgres
	Timezone   string // IANA zone used for attendance stamps, empty = local
}

// Location returns the configured time zone, falling back to local time
// when the zone is empty or unknown.
func (c *StorageConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
}

type VerifyConfig struct {
	Threshold float64 `yaml:"threshold"` // max cosine distance counted as a match
}

type DetectorConfig struct {
	Kind             string  `yaml:"kind"`
	CascadeFile      string  `yaml:"cascade_file"`      // pigo facefinder cascade
	HaarCascadeFile  string  `yaml:"haar_cascade_file"` // OpenCV Haar cascade XML
	MinSize          int     `yaml:"min_size"`
	MaxSize          int     `yaml:"max_size"`
	ShiftFactor      float64 `yaml:"shift_factor"`
	ScaleFactor      float64 `yaml:"scale_factor"`
	IoUThreshold     float64 `yaml:"iou_threshold"`
	MinQuality       float32 `yaml:"min_quality"`
	HaarScaleFactor  float64 `yaml:"haar_scale_factor"`
	HaarMinNeighbors int     `yaml:"haar_min_neighbors"`
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var defaults Config
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	if defaults.Verify.Threshold <= 0 {
		defaults.Verify.Threshold = constants.DefaultVerifyThreshold
	}

	detector := defaults.Detector
	detector.Kind = envString("FACE_DETECTOR", detector.Kind)
	detector.CascadeFile = envString("CASCADE_FILE", detector.CascadeFile)
	detector.HaarCascadeFile = envString("HAAR_CASCADE_FILE", detector.HaarCascadeFile)

	return &Config{
		Storage: StorageConfig{
			FacesDir:   envString("FACES_DIR", constants.DefaultFacesDir),
			LedgerPath: envString("ATTENDANCE_FILE", constants.DefaultLedgerFile),
			Backend:    envString("LEDGER_BACKEND", BackendCSV),
			Timezone:   os.Getenv("ATTENDANCE_TZ"),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
		},
		Verify: VerifyConfig{
			Threshold: envFloat("VERIFY_THRESHOLD", defaults.Verify.Threshold),
		},
		Detector: detector,
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
	}
}
