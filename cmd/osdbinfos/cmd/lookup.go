package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/MeetLima/osdbinfos/pkg/core/metadata"
	"github.com/MeetLima/osdbinfos/pkg/core/opensubtitles"
	"github.com/MeetLima/osdbinfos/pkg/processor"
	"github.com/spf13/cobra"
)

var (
	lookupFormat    string
	lookupGuess     bool
	lookupRecursive bool
)

// lookupEntry is printed instead of the bare record when --guess is set.
type lookupEntry struct {
	Record *opensubtitles.MediaRecord `json:"record"`
	Guess  *metadata.VideoInfo        `json:"guess,omitempty"`
}

var lookupCmd = &cobra.Command{
	Use:   "lookup PATH...",
	Short: "Identify video files by their OpenSubtitles hash",
	Long: `Computes the hash of every file and asks OpenSubtitles about all of
them in a single call. Prints a JSON object mapping each path to its record,
or null when the file could not be hashed or is unknown. Directories are
replaced by the video files they contain.

Examples:
  osdbinfos lookup movie.mkv
  osdbinfos lookup --format table ~/Videos/*.mkv
  osdbinfos lookup --guess episode.avi
  osdbinfos lookup -r ~/Videos`,
	Args: requirePaths,
	RunE: runLookup,
}

func init() {
	RootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().StringVarP(&lookupFormat, "format", "f", "json", "Output format (json, table)")
	lookupCmd.Flags().BoolVar(&lookupGuess, "guess", false, "Add a guess from the file name for files without a match")
	lookupCmd.Flags().BoolVarP(&lookupRecursive, "recursive", "r", false, "Descend into subdirectories")
}

func runLookup(cmd *cobra.Command, args []string) error {
	if lookupFormat != "json" && lookupFormat != "table" {
		return fmt.Errorf("invalid --format: %s. Must be one of: json, table", lookupFormat)
	}

	logger := newLogger(cmd.ErrOrStderr())
	ctx := cmd.Context()

	paths, err := processor.NewProcessor(logger).ExpandPaths(ctx, args, lookupRecursive)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no video files found in %v", args)
	}

	svc, err := NewServiceFunc(logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	records, err := svc.LookupFiles(ctx, paths)
	if err != nil {
		logger.WithError(err).Debug("Lookup failed")
		return fmt.Errorf("lookup failed: %w", err)
	}

	guesses := make(map[string]*metadata.VideoInfo)
	if lookupGuess {
		for _, path := range paths {
			if rec := records[path]; rec == nil || !rec.Matched {
				guesses[path] = metadata.Guess(ctx, path)
			}
		}
	}

	if lookupFormat == "table" {
		fmt.Fprintln(cmd.OutOrStdout(), lookupTable(paths, records, guesses))
		return nil
	}

	var out interface{} = records
	if lookupGuess {
		entries := make(map[string]lookupEntry, len(records))
		for path, rec := range records {
			entries[path] = lookupEntry{Record: rec, Guess: guesses[path]}
		}
		out = entries
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func lookupTable(paths []string, records map[string]*opensubtitles.MediaRecord, guesses map[string]*metadata.VideoInfo) string {
	headers := []string{"Path", "Hash", "Kind", "IMDb", "Title", "Year / Episode"}
	if len(guesses) > 0 {
		headers = append(headers, "Guess")
	}

	rows := make([][]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		if seen[path] {
			continue
		}
		seen[path] = true

		row := []string{path, "", "", "", "", ""}
		if rec := records[path]; rec != nil {
			row[1] = rec.MovieHash
			if rec.Matched {
				row[2] = string(rec.Kind)
				row[3] = rec.IMDbID
				switch rec.Kind {
				case opensubtitles.KindEpisode:
					row[4] = rec.SeriesTitle
					if rec.EpisodeTitle != "" {
						row[4] += " - " + rec.EpisodeTitle
					}
					row[5] = episodeLabel(rec.SeasonNumber, rec.EpisodeNumber)
				default:
					row[4] = rec.MovieName
					row[5] = rec.MovieYear
				}
			} else {
				row[4] = "(no match)"
			}
		}
		if g := guesses[path]; g != nil {
			row = append(row, guessLabel(g))
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows)
}

func episodeLabel(season, episode *int) string {
	s, e := "?", "?"
	if season != nil {
		s = fmt.Sprintf("%02d", *season)
	}
	if episode != nil {
		e = fmt.Sprintf("%02d", *episode)
	}
	return "S" + s + "E" + e
}

func guessLabel(g *metadata.VideoInfo) string {
	label := g.Title
	if g.Year > 0 {
		label += " (" + strconv.Itoa(g.Year) + ")"
	}
	if g.Season > 0 || g.Episode > 0 {
		label += fmt.Sprintf(" S%02dE%02d", g.Season, g.Episode)
	}
	if g.NFOIMDbID != "" {
		label += " " + g.NFOIMDbID
	}
	return label
}
