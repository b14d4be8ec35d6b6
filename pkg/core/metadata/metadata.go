// Package metadata derives what can be known about a video from its file
// alone: a guess parsed from the release name and an IMDb id from a sibling
// .nfo file.
package metadata

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeetLima/osdbinfos/pkg/core/fileops"
	ptn "github.com/razsteinmetz/go-ptn"
	log "github.com/sirupsen/logrus"
)

// VideoInfo holds the local information about a video file.
type VideoInfo struct {
	FileName  string `json:"file_name"`
	NFOIMDbID string `json:"nfo_imdb_id,omitempty"` // IMDb ID extracted from NFO

	Title        string `json:"title,omitempty"`
	Year         int    `json:"year,omitempty"`
	Season       int    `json:"season,omitempty"`
	Episode      int    `json:"episode,omitempty"`
	Resolution   string `json:"resolution,omitempty"` // e.g., "1080p", "720p"
	Source       string `json:"source,omitempty"`     // e.g., "BluRay", "WEB-DL"
	ReleaseGroup string `json:"release_group,omitempty"`
}

// Guess parses the file name of videoPath and reads the .nfo next to it.
// The file itself does not need to exist.
func Guess(ctx context.Context, videoPath string) *VideoInfo {
	info := &VideoInfo{FileName: filepath.Base(videoPath)}

	parsed, err := ptn.Parse(info.FileName)
	if err == nil {
		info.Title = parsed.Title
		info.Year = parsed.Year
		info.Season = parsed.Season
		info.Episode = parsed.Episode
		info.Resolution = parsed.Resolution
		info.Source = parsed.Quality
		info.ReleaseGroup = parsed.Group
	} else {
		log.Warnf("Failed to parse video filename '%s': %v", info.FileName, err)
	}
	if info.Title == "" {
		baseName := strings.TrimSuffix(info.FileName, filepath.Ext(info.FileName))
		info.Title = strings.ReplaceAll(baseName, ".", " ")
	}

	imdbID, err := fileops.ReadNFO(ctx, fileops.NFOPath(videoPath))
	if err != nil && !os.IsNotExist(err) {
		log.Warnf("Error reading NFO file for %s: %v", videoPath, err)
	} else if err == nil {
		info.NFOIMDbID = imdbID
	}
	return info
}
