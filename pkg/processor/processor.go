// Package processor turns command line arguments into the video files to
// fingerprint.
package processor

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Known video extensions
var videoExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".mov": true, ".wmv": true, ".flv": true,
	".m4v": true, ".mpg": true, ".mpeg": true, ".ts": true, ".webm": true, ".divx": true,
}

// IsVideo reports whether path has a known video extension.
func IsVideo(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// Processor expands directories into the video files they contain.
type Processor struct {
	logger *log.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.New()
		logger.SetLevel(log.InfoLevel)
	}
	return &Processor{logger: logger}
}

// ExpandPaths keeps file arguments as given and replaces each directory with
// the video files found in it, descending into subdirectories when recursive
// is set. Arguments that do not exist are kept so that the lookup reports
// them as unreadable.
func (p *Processor) ExpandPaths(ctx context.Context, args []string, recursive bool) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		videos, err := p.ScanDirectory(ctx, arg, recursive)
		if err != nil {
			return nil, err
		}
		paths = append(paths, videos...)
	}
	return paths, nil
}

// ScanDirectory lists the video files under rootPath in lexical order.
func (p *Processor) ScanDirectory(ctx context.Context, rootPath string, recursive bool) ([]string, error) {
	var videos []string

	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			p.logger.Warnf("Error accessing path %q: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != rootPath && !recursive {
				p.logger.Debugf("Skipping directory (not recursive): %s", path)
				return filepath.SkipDir
			}
			return nil
		}
		if IsVideo(path) {
			videos = append(videos, path)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			p.logger.Errorf("Error walking directory %q: %v", rootPath, err)
		}
		return nil, err
	}

	p.logger.Debugf("Found %d video files in %s (recursive: %t)", len(videos), rootPath, recursive)
	return videos, nil
}
