package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cuongbtq/media-gateway/internal/domain"
)

// scratchSuffixes mark files the downloader is still writing.
var scratchSuffixes = []string{".part", ".ytdl", ".temp"}

// Storage owns the single flat directory holding job artifacts.
// Every call re-reads the directory; nothing is cached between calls.
type Storage struct {
	dir    string
	logger *slog.Logger
}

// NewStorage creates the directory if needed and returns a Storage over it
func NewStorage(dir string, logger *slog.Logger) (*Storage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage dir: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}

	return &Storage{dir: abs, logger: logger}, nil
}

// Dir returns the absolute storage directory
func (s *Storage) Dir() string {
	return s.dir
}

// OutputTemplate returns the downloader output template for a job
func (s *Storage) OutputTemplate(jobID string) string {
	return filepath.Join(s.dir, jobID+".%(ext)s")
}

// Exists returns the first artifact whose name is prefixed by jobID
func (s *Storage) Exists(jobID string) (*domain.Artifact, error) {
	return s.Find(jobID, "")
}

// Find is Exists restricted to names ending in ext; an empty ext accepts any.
func (s *Storage) Find(jobID, ext string) (*domain.Artifact, error) {
	if !validJobID(jobID) {
		return nil, domain.ErrNotFound
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage dir: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, jobID) || isScratch(name) {
			continue
		}
		if ext != "" && !strings.HasSuffix(name, ext) {
			continue
		}

		artifact, err := s.artifact(jobID, name)
		if errors.Is(err, domain.ErrNotFound) {
			// removed between listing and stat
			continue
		}
		if err != nil {
			return nil, err
		}
		return artifact, nil
	}

	return nil, domain.ErrNotFound
}

// Stat returns the size and absolute path of a job's artifact
func (s *Storage) Stat(jobID string) (int64, string, error) {
	artifact, err := s.Exists(jobID)
	if err != nil {
		return 0, "", err
	}
	return artifact.Size, artifact.Path, nil
}

// Delete removes a job's artifact. A missing artifact is ErrNotFound.
func (s *Storage) Delete(jobID string) (*domain.Artifact, error) {
	artifact, err := s.Exists(jobID)
	if err != nil {
		return nil, err
	}

	if err := s.Remove(artifact.Filename); err != nil {
		return nil, err
	}
	return artifact, nil
}

// Remove deletes one file by exact name
func (s *Storage) Remove(filename string) error {
	path, err := s.pathFor(filename)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to remove %s: %w", filename, err)
	}

	s.logger.Debug("Artifact removed", slog.String("filename", filename))
	return nil
}

// Resolve maps a retrieval filename to a finished artifact
func (s *Storage) Resolve(filename string) (*domain.Artifact, error) {
	if isScratch(filename) {
		return nil, domain.ErrNotFound
	}
	if _, err := s.pathFor(filename); err != nil {
		return nil, err
	}
	return s.artifact(domain.JobIDFromFilename(filename), filename)
}

// ScanAll yields every entry in the directory, scratch files included.
// Each range re-reads the directory; entries that vanish mid-scan are skipped.
func (s *Storage) ScanAll() iter.Seq[domain.Entry] {
	return func(yield func(domain.Entry) bool) {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			s.logger.Error("Failed to list storage dir",
				slog.String("dir", s.dir),
				slog.String("error", err.Error()),
			)
			return
		}

		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if !info.Mode().IsRegular() {
				continue
			}

			if !yield(domain.Entry{
				Filename:   entry.Name(),
				Size:       info.Size(),
				ModifiedAt: info.ModTime(),
			}) {
				return
			}
		}
	}
}

func (s *Storage) artifact(jobID, filename string) (*domain.Artifact, error) {
	path := filepath.Join(s.dir, filename)

	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat %s: %w", filename, err)
	}
	if !info.Mode().IsRegular() {
		return nil, domain.ErrNotFound
	}

	return &domain.Artifact{
		JobID:      jobID,
		Filename:   filename,
		Path:       path,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}, nil
}

func (s *Storage) pathFor(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return "", domain.ErrNotFound
	}
	return filepath.Join(s.dir, filename), nil
}

func validJobID(jobID string) bool {
	return jobID != "" && !strings.ContainsAny(jobID, `/\`) && jobID != "." && jobID != ".."
}

func isScratch(name string) bool {
	for _, suffix := range scratchSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
