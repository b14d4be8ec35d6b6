package fileops

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	coreErrors "github.com/MeetLima/osdbinfos/pkg/core/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the number of files hashed at once when no limit is given.
const DefaultWorkers = 4

// HashFiles fingerprints every path, at most workers files at a time.
// Files that are too small or cannot be read are logged and left out of the
// result; they never fail the batch. The result does not depend on the order
// in which files finish.
func HashFiles(ctx context.Context, paths []string, workers int, logger *log.Logger) map[string]Fingerprint {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var (
		mu     sync.Mutex
		result = make(map[string]Fingerprint, len(paths))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		path := path
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			fp, err := ComputeFingerprint(path)
			switch {
			case errors.Is(err, coreErrors.ErrTooSmall):
				logger.Debugf("Skipping %s: too small to fingerprint", path)
				return nil
			case err != nil:
				logger.WithError(err).Warnf("Could not compute hash for %s", path)
				return nil
			}
			logger.Debugf("Computed hash %s for %s", fp, path)
			mu.Lock()
			result[path] = fp
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return an error
	return result
}

var imdbIDPattern = regexp.MustCompile(`tt\d{7,8}`)

// NFOPath returns the .nfo file that sits next to videoPath.
func NFOPath(videoPath string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".nfo"
}

// ReadNFO returns the first IMDb id ("tt" and 7 or 8 digits) found in an .nfo
// file, or "" when there is none. A missing file is reported with an error
// satisfying os.IsNotExist.
func ReadNFO(ctx context.Context, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if id := imdbIDPattern.FindString(scanner.Text()); id != "" {
			return id, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: reading %s: %w", coreErrors.ErrFileAccess, filePath, err)
	}
	return "", nil
}
