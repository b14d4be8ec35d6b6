package opensubtitles

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	coreErrors "github.com/MeetLima/osdbinfos/pkg/core/errors"
	"github.com/MeetLima/osdbinfos/pkg/core/fileops"
	log "github.com/sirupsen/logrus"
)

// FingerprintLookuper resolves fingerprints to media records.
// *Client implements it; the cache package wraps it.
type FingerprintLookuper interface {
	LookupFingerprints(ctx context.Context, fingerprints []string) (map[string]MediaRecord, error)
}

var _ FingerprintLookuper = (*Client)(nil)

// FileResolver maps local files to media records through a FingerprintLookuper.
type FileResolver struct {
	Lookuper FingerprintLookuper
	Workers  int // files hashed concurrently; 0 uses fileops.DefaultWorkers
	Logger   *log.Logger
}

// LookupFiles fingerprints paths and looks them up in one batch. Every path
// is a key of the result. The value is nil when the file could not be
// fingerprinted or the reply did not mention its fingerprint, and an
// unmatched record when the service does not know the fingerprint.
func (r *FileResolver) LookupFiles(ctx context.Context, paths []string) (map[string]*MediaRecord, error) {
	logger := r.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	fingerprints := fileops.HashFiles(ctx, paths, r.Workers, logger)

	result := make(map[string]*MediaRecord, len(paths))
	var hashes []string
	seen := make(map[string]bool, len(fingerprints))
	for _, path := range paths {
		result[path] = nil
		fp, ok := fingerprints[path]
		if !ok || seen[fp.String()] {
			continue
		}
		seen[fp.String()] = true
		hashes = append(hashes, fp.String())
	}

	if len(hashes) == 0 {
		logger.Warn("None of the files could be fingerprinted, skipping lookup")
		return result, nil
	}

	records, err := r.Lookuper.LookupFingerprints(ctx, hashes)
	if err != nil {
		return nil, err
	}

	for path, fp := range fingerprints {
		if rec, ok := records[fp.String()]; ok {
			result[path] = &rec
		}
	}
	return result, nil
}

// LookupFiles fingerprints paths and looks them up with this client.
func (c *Client) LookupFiles(ctx context.Context, paths []string) (map[string]*MediaRecord, error) {
	r := &FileResolver{Lookuper: c, Workers: c.config.HashWorkers, Logger: c.logger}
	return r.LookupFiles(ctx, paths)
}

// LookupFingerprints calls CheckMovieHash for the distinct non-empty
// fingerprints. An empty request fails with ErrEmptyRequest without any
// remote call.
func (c *Client) LookupFingerprints(ctx context.Context, fingerprints []string) (map[string]MediaRecord, error) {
	hashes := dedupe(fingerprints)
	if len(hashes) == 0 {
		c.logger.Error("Empty list of hashes")
		return nil, coreErrors.ErrEmptyRequest
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debugf("Get infos for %d hashes", len(hashes))
	reply, err := c.call(ctx, "CheckMovieHash", func(token interface{}) []interface{} {
		return []interface{}{token, hashes}
	})
	if err != nil {
		return nil, err
	}

	records, err := ParseCheckHashData(reply["data"], c.logger)
	if err != nil {
		c.logger.WithError(err).Error("Could not parse CheckMovieHash reply")
		return nil, err
	}

	c.persist(ctx)
	return records, nil
}

// InsertHashes submits fingerprint/IMDb pairs with InsertMovieHash. Every
// record needs an IMDb id; the "tt" prefix is stripped before sending.
func (c *Client) InsertHashes(ctx context.Context, records []InsertHashRecord) (*InsertAck, error) {
	if len(records) == 0 {
		return nil, coreErrors.ErrEmptyRequest
	}

	params := make([]interface{}, 0, len(records))
	for i, rec := range records {
		imdbID := strings.TrimPrefix(strings.TrimSpace(rec.IMDbID), "tt")
		if imdbID == "" {
			return nil, fmt.Errorf("%w: imdbid is missing for record %d (%s)", coreErrors.ErrMandatoryParameterMissing, i, rec.MovieHash)
		}
		p := map[string]interface{}{
			"moviehash":     rec.MovieHash,
			"moviebytesize": strconv.FormatInt(rec.MovieByteSize, 10),
			"imdbid":        imdbID,
		}
		if rec.MovieTimeMS > 0 {
			p["movietimems"] = strconv.FormatInt(rec.MovieTimeMS, 10)
		}
		if rec.MovieFPS > 0 {
			p["moviefps"] = fmt.Sprintf("%.3f", rec.MovieFPS)
		}
		if rec.MovieFilename != "" {
			p["moviefilename"] = rec.MovieFilename
		}
		params = append(params, p)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debugf("Insert %d hashes", len(params))
	reply, err := c.call(ctx, "InsertMovieHash", func(token interface{}) []interface{} {
		return []interface{}{token, params}
	})
	if err != nil {
		return nil, err
	}

	c.persist(ctx)
	return parseInsertAck(reply["data"]), nil
}

// dedupe drops empty entries and duplicates, keeping the first occurrence.
func dedupe(fingerprints []string) []string {
	seen := make(map[string]bool, len(fingerprints))
	out := make([]string, 0, len(fingerprints))
	for _, fp := range fingerprints {
		fp = strings.TrimSpace(fp)
		if fp == "" || seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, fp)
	}
	return out
}
