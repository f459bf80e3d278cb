package storage

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"

	"signserver/internal/logger"
)

const thumbnailWidth = 320

// StoredFiles describes the files written for one analysis.
type StoredFiles struct {
	OriginalPath  string
	AnnotatedPath string
	ThumbnailPath string
	TotalBytes    int64
}

// StoreService writes analysis artifacts (original upload, annotated
// image, thumbnail) to the image directory.
type StoreService struct {
	imagesDir string
	logger    *logger.Logger
	mu        sync.Mutex
}

// NewStoreService creates the store and ensures the image directory exists.
func NewStoreService(imagesDir string, logger *logger.Logger) (*StoreService, error) {
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	return &StoreService{
		imagesDir: imagesDir,
		logger:    logger,
	}, nil
}

// Dir returns the image directory.
func (s *StoreService) Dir() string {
	return s.imagesDir
}

// SaveAnalysis writes the original bytes, the annotated image and a
// thumbnail under the given id. The extension follows the upload format;
// thumbnails are always JPEG.
func (s *StoreService) SaveAnalysis(id string, original []byte, annotated []byte, thumbSource image.Image, format string) (*StoredFiles, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ext := ".jpg"
	if format == "png" {
		ext = ".png"
	}

	files := &StoredFiles{
		OriginalPath:  filepath.Join(s.imagesDir, id+"_original"+ext),
		AnnotatedPath: filepath.Join(s.imagesDir, id+"_annotated"+ext),
		ThumbnailPath: filepath.Join(s.imagesDir, id+"_thumb.jpg"),
	}

	if err := os.WriteFile(files.OriginalPath, original, 0644); err != nil {
		return nil, fmt.Errorf("failed to save original: %w", err)
	}

	if err := os.WriteFile(files.AnnotatedPath, annotated, 0644); err != nil {
		return nil, fmt.Errorf("failed to save annotated image: %w", err)
	}

	thumb := imaging.Resize(thumbSource, thumbnailWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, files.ThumbnailPath, imaging.JPEGQuality(80)); err != nil {
		return nil, fmt.Errorf("failed to save thumbnail: %w", err)
	}

	files.TotalBytes = int64(len(original) + len(annotated))
	if info, err := os.Stat(files.ThumbnailPath); err == nil {
		files.TotalBytes += info.Size()
	}

	return files, nil
}

// Remove deletes the given files, ignoring the ones already gone.
func (s *StoreService) Remove(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Error("Failed to delete file %s: %v", path, err)
		}
	}
}

// Clear deletes every file in the image directory.
func (s *StoreService) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := os.ReadDir(s.imagesDir)
	if err != nil {
		return fmt.Errorf("failed to read image directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		path := filepath.Join(s.imagesDir, file.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Error("Error deleting file %s: %v", file.Name(), err)
		}
	}

	s.logger.Info("All images cleared from directory: %s", s.imagesDir)
	return nil
}

// DirectorySize sums the sizes of all files in the image directory.
func (s *StoreService) DirectorySize() (int64, error) {
	files, err := os.ReadDir(s.imagesDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read image directory: %w", err)
	}

	var total int64
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if info, err := file.Info(); err == nil {
			total += info.Size()
		}
	}
	return total, nil
}
