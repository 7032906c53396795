// Package identity manages registered people: one reference image per
// identity, stored as <dir>/<Display Name>.<ext>. Directory enumeration is the
// set of registered identities.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/renameio"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/names"
)

const maxNameLength = 200

// Identity is a registered person.
type Identity struct {
	Name string `json:"name"`
	Path string `json:"-"`
}

// Match is an identity whose reference image verified against a probe.
type Match struct {
	Identity Identity
	Distance float64
}

// Store is a directory-backed identity store.
type Store struct {
	dir      string
	detector face.Detector
	verifier face.Verifier

	mu sync.Mutex // serializes Register and Remove
}

// NewStore creates a store rooted at dir. The directory is created on first write.
func NewStore(dir string, detector face.Detector, verifier face.Verifier) *Store {
	return &Store{dir: dir, detector: detector, verifier: verifier}
}

// Dir returns the image directory.
func (s *Store) Dir() string {
	return s.dir
}

// Register adds a new identity after rejecting duplicate names, images
// without a face, and faces that verify against an existing identity.
// The image is written atomically, so a rejected or failed attempt leaves
// nothing behind.
func (s *Store) Register(ctx context.Context, name string, image []byte) (Identity, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return Identity{}, err
	}
	ext := face.Extension(face.DetectMIMEType(image))
	if ext == "" {
		return Identity{}, ErrUnsupportedImage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.List()
	if err != nil {
		return Identity{}, err
	}
	key := names.Key(name)
	for _, id := range existing {
		if names.Key(id.Name) == key {
			return Identity{}, fmt.Errorf("%w: %s", ErrDuplicateName, id.Name)
		}
	}

	boxes, err := s.detector.Detect(ctx, image)
	if err != nil {
		return Identity{}, fmt.Errorf("detect faces: %w", err)
	}
	if len(boxes) == 0 {
		return Identity{}, ErrNoFaceDetected
	}

	match, found, err := s.bestMatch(ctx, image, existing)
	if err != nil {
		return Identity{}, err
	}
	if found {
		return Identity{}, &DuplicateFaceError{Name: match.Identity.Name, Distance: match.Distance}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Identity{}, fmt.Errorf("create faces directory: %w", err)
	}
	id := Identity{Name: name, Path: filepath.Join(s.dir, name+ext)}
	if err := renameio.WriteFile(id.Path, image, 0o644); err != nil {
		return Identity{}, fmt.Errorf("save reference image: %w", err)
	}

	log.Printf("Registered identity %s", sanitizeForLog(name))
	return id, nil
}

// List returns all identities sorted by display name.
func (s *Store) List() ([]Identity, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read faces directory: %w", err)
	}

	var ids []Identity
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !face.IsImageExtension(ext) {
			continue
		}
		ids = append(ids, Identity{
			Name: strings.TrimSuffix(e.Name(), ext),
			Path: filepath.Join(s.dir, e.Name()),
		})
	}

	sort.SliceStable(ids, func(i, j int) bool {
		ki, kj := names.Key(ids[i].Name), names.Key(ids[j].Name)
		if ki != kj {
			return ki < kj
		}
		return ids[i].Name < ids[j].Name
	})
	return ids, nil
}

// Get looks an identity up by name, case-insensitively.
func (s *Store) Get(name string) (Identity, error) {
	ids, err := s.List()
	if err != nil {
		return Identity{}, err
	}
	key := names.Key(name)
	for _, id := range ids {
		if names.Key(id.Name) == key {
			return id, nil
		}
	}
	return Identity{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Image returns the reference image bytes of id.
func (s *Store) Image(id Identity) ([]byte, error) {
	data, err := os.ReadFile(id.Path)
	if err != nil {
		return nil, fmt.Errorf("read reference image of %s: %w", id.Name, err)
	}
	return data, nil
}

// FindByFace verifies the probe image against every identity and returns the
// closest verified match. Identities whose comparison fails are skipped.
func (s *Store) FindByFace(ctx context.Context, image []byte) (Match, bool, error) {
	ids, err := s.List()
	if err != nil {
		return Match{}, false, err
	}
	return s.bestMatch(ctx, image, ids)
}

// bestMatch scans ids in order. Among verified matches the smallest distance
// wins; equal distances keep the earlier identity.
func (s *Store) bestMatch(ctx context.Context, image []byte, ids []Identity) (Match, bool, error) {
	var best Match
	found := false
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return Match{}, false, err
		}
		ref, err := s.Image(id)
		if err != nil {
			log.Printf("Skipping identity %s: %v", sanitizeForLog(id.Name), err)
			continue
		}
		v, err := s.verifier.Verify(ctx, image, ref)
		if err != nil {
			if ctx.Err() != nil {
				return Match{}, false, ctx.Err()
			}
			log.Printf("Verification against %s failed, treating as no match: %v", sanitizeForLog(id.Name), err)
			continue
		}
		if v.Verified && (!found || v.Distance < best.Distance) {
			best = Match{Identity: id, Distance: v.Distance}
			found = true
		}
	}
	return best, found, nil
}

// Removal is a staged identity deletion. The reference image has been moved
// out of the store and is either discarded by Commit or restored by Rollback.
type Removal struct {
	Identity Identity
	staged   string
	store    *Store
}

// Remove stages the deletion of name.
func (s *Store) Remove(name string) (*Removal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.Get(name)
	if err != nil {
		return nil, err
	}

	trash := filepath.Join(s.dir, constants.TrashDirName)
	if err := os.MkdirAll(trash, 0o755); err != nil {
		return nil, fmt.Errorf("create trash directory: %w", err)
	}
	staged := filepath.Join(trash, fmt.Sprintf("%s.%d", filepath.Base(id.Path), time.Now().UnixNano()))
	if err := os.Rename(id.Path, staged); err != nil {
		return nil, fmt.Errorf("stage removal of %s: %w", id.Name, err)
	}
	return &Removal{Identity: id, staged: staged, store: s}, nil
}

// Commit permanently deletes the staged image.
func (r *Removal) Commit() error {
	if err := os.Remove(r.staged); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete staged image of %s: %w", r.Identity.Name, err)
	}
	log.Printf("Deleted identity %s", sanitizeForLog(r.Identity.Name))
	return nil
}

// Rollback restores the staged image. It fails if the name was registered again meanwhile.
func (r *Removal) Rollback() error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.store.Get(r.Identity.Name); err == nil {
		return fmt.Errorf("restore %s: %w", r.Identity.Name, ErrDuplicateName)
	}
	if err := os.Rename(r.staged, r.Identity.Path); err != nil {
		return fmt.Errorf("restore %s: %w", r.Identity.Name, err)
	}
	return nil
}

// Delete removes name and its reference image.
func (s *Store) Delete(name string) error {
	removal, err := s.Remove(name)
	if err != nil {
		return err
	}
	return removal.Commit()
}

// ValidateName rejects names that cannot serve as a file name.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	case len(name) > maxNameLength:
		return fmt.Errorf("%w: name is longer than %d bytes", ErrInvalidName, maxNameLength)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: name must not start with a dot", ErrInvalidName)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: name must not contain path separators", ErrInvalidName)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: name contains control characters", ErrInvalidName)
		}
	}
	return nil
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}
