package vars

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

const (
	tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	tokenLength   = 12
	maxAttempts   = 16
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether name can be bound as a variable by the agent.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Store writes values to uniquely named temporary files.
//
// A Store has no per-call state and is safe for concurrent use.
type Store struct {
	dir    string
	logger zerolog.Logger
}

// NewStore creates a store rooted at dir. An empty dir means os.TempDir().
func NewStore(dir string, logger zerolog.Logger) (*Store, error) {
	if dir == "" {
		dir = os.TempDir()
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve temp dir: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat temp dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("temp dir %s is not a directory", abs)
	}

	return &Store{
		dir:    abs,
		logger: logger,
	}, nil
}

// Dir returns the absolute directory files are created in
func (s *Store) Dir() string {
	return s.dir
}

// Put serializes value under kind into a new file named {name}_{token}{suffix}
// and returns its absolute path. On failure no file is left behind.
func (s *Store) Put(name string, value any, kind Kind) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	enc, ok := encoders[kind]
	if !ok {
		return "", &SerializationError{Name: name, Kind: kind, Err: &UnknownKindError{Kind: string(kind)}}
	}

	file, err := s.create(name, kind.Suffix())
	if err != nil {
		return "", &SerializationError{Name: name, Kind: kind, Err: err}
	}
	path := file.Name()

	done := false
	defer func() {
		if done {
			return
		}
		// Encoder panicked; drop the partial file and let the panic continue
		file.Close()
		s.discard(path)
	}()

	encErr := enc(file, value)
	closeErr := file.Close()
	done = true
	if encErr == nil {
		encErr = closeErr
	}

	if encErr != nil {
		s.discard(path)
		return "", &SerializationError{Name: name, Kind: kind, Err: encErr}
	}

	s.logger.Debug().
		Str("variable", name).
		Str("kind", kind.String()).
		Str("path", path).
		Msg("Stored variable")

	return path, nil
}

// discard removes a partially written file.
func (s *Store) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove partial temp file")
	}
}

// Remove deletes a file created by Put. A missing file is not an error.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &CleanupWarning{Path: path, Err: err}
	}
	return nil
}

// create opens a new file exclusively, retrying on token collision.
func (s *Store) create(name, suffix string) (*os.File, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		token, err := gonanoid.Generate(tokenAlphabet, tokenLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate file token: %w", err)
		}

		path := filepath.Join(s.dir, name+"_"+token+suffix)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			return file, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("failed to create temp file: %w", err)
		}
		lastErr = err
	}

	return nil, fmt.Errorf("no free temp file name after %d attempts: %w", maxAttempts, lastErr)
}
