package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeetLima/osdbinfos/pkg/core/fileops"
	"github.com/MeetLima/osdbinfos/pkg/core/opensubtitles"
	"github.com/MeetLima/osdbinfos/pkg/processor"
	"github.com/spf13/cobra"
)

var (
	insertIMDbID    string
	insertFPS       float64
	insertRecursive bool
)

var insertCmd = &cobra.Command{
	Use:   "insert PATH...",
	Short: "Submit the hashes of video files for an IMDb id",
	Long: `Hashes every file and submits the hash/IMDb pairs to OpenSubtitles.
Without --imdb, the id is read from the .nfo file next to each video.

Examples:
  osdbinfos insert --imdb tt0133093 The.Matrix.1999.mkv
  osdbinfos insert ~/Videos/*.mkv`,
	Args: requirePaths,
	RunE: runInsert,
}

func init() {
	RootCmd.AddCommand(insertCmd)

	insertCmd.Flags().StringVar(&insertIMDbID, "imdb", "", "IMDb ID (e.g., tt1234567)")
	insertCmd.Flags().Float64Var(&insertFPS, "fps", 0, "Frame rate of the videos (optional)")
	insertCmd.Flags().BoolVarP(&insertRecursive, "recursive", "r", false, "Descend into subdirectories")
}

func runInsert(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd.ErrOrStderr())
	ctx := cmd.Context()

	paths, err := processor.NewProcessor(logger).ExpandPaths(ctx, args, insertRecursive)
	if err != nil {
		return err
	}

	records := make([]opensubtitles.InsertHashRecord, 0, len(paths))
	for _, path := range paths {
		hash, size, err := fileops.CalculateOSDbHash(path)
		if err != nil {
			return fmt.Errorf("cannot hash %s: %w", path, err)
		}

		imdbID := insertIMDbID
		if imdbID == "" {
			imdbID, err = fileops.ReadNFO(ctx, fileops.NFOPath(path))
			if err != nil && !os.IsNotExist(err) {
				logger.WithError(err).Warnf("Could not read NFO for %s", path)
			}
		}

		records = append(records, opensubtitles.InsertHashRecord{
			IMDbID:        imdbID,
			MovieHash:     hash,
			MovieByteSize: size,
			MovieFPS:      insertFPS,
			MovieFilename: filepath.Base(path),
		})
	}

	svc, err := NewServiceFunc(logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	ack, err := svc.InsertHashes(ctx, records)
	if err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}

	data, err := json.MarshalIndent(ack, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
