package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/identity"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// backends bundles the stores and collaborators built from configuration.
type backends struct {
	identities *identity.Store
	ledger     ledger.Store
	detector   face.Detector
	closers    []func() error
}

// openBackends wires the detector, verifier, identity store and ledger
// selected by cfg. Call Close when done.
func openBackends(cfg *config.Config) (*backends, error) {
	b := &backends{}

	embeddings := face.NewEmbeddingClient(cfg.Embedding.URL, cfg.Verify.Threshold)
	detector, err := newDetector(cfg, embeddings)
	if err != nil {
		return nil, err
	}
	b.detector = detector
	if c, ok := detector.(interface{ Close() error }); ok {
		b.closers = append(b.closers, c.Close)
	}

	b.identities = identity.NewStore(cfg.Storage.FacesDir, detector, embeddings)

	switch cfg.Storage.Backend {
	case config.BackendCSV:
		b.ledger = ledger.NewCSVStore(cfg.Storage.LedgerPath)
	case config.BackendPostgres:
		pool, err := postgres.Open(&cfg.Database)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		b.ledger = postgres.NewLedgerRepository(pool)
		b.closers = append(b.closers, pool.Close)
	default:
		b.Close()
		return nil, fmt.Errorf("unknown ledger backend %q (expected %s or %s)",
			cfg.Storage.Backend, config.BackendCSV, config.BackendPostgres)
	}

	return b, nil
}

func newDetector(cfg *config.Config, embeddings *face.EmbeddingClient) (face.Detector, error) {
	switch cfg.Detector.Kind {
	case config.DetectorEmbedding, "":
		return embeddings, nil
	case config.DetectorPigo:
		d, err := face.NewPigoDetector(cfg.Detector)
		if err != nil {
			return nil, fmt.Errorf("failed to load pigo cascade: %w", err)
		}
		return d, nil
	case config.DetectorGocv:
		d, err := face.NewGocvDetector(cfg.Detector)
		if err != nil {
			return nil, fmt.Errorf("failed to load OpenCV cascade: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown face detector %q", cfg.Detector.Kind)
	}
}

// Close releases database connections and native detector resources.
func (b *backends) Close() {
	for _, c := range b.closers {
		if err := c(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
}

// readImageFile reads an image from disk, or stdin when path is "-".
func readImageFile(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return data, nil
}
