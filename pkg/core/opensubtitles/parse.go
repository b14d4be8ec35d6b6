package opensubtitles

import (
	"fmt"
	"strconv"
	"strings"

	coreErrors "github.com/MeetLima/osdbinfos/pkg/core/errors"
	log "github.com/sirupsen/logrus"
)

// ParseCheckHashData turns the data section of a CheckMovieHash reply into one
// record per fingerprint. The section is either a struct keyed by fingerprint
// or, on some servers, an array of structs carrying their own MovieHash.
// Anything else is ErrInvalidResultShape.
func ParseCheckHashData(data interface{}, logger *log.Logger) (map[string]MediaRecord, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}

	entries, err := checkHashEntries(data)
	if err != nil {
		return nil, err
	}

	result := make(map[string]MediaRecord, len(entries))
	for hash, entry := range entries {
		result[hash] = parseEntry(hash, entry, logger)
	}
	return result, nil
}

func checkHashEntries(data interface{}) (map[string]interface{}, error) {
	switch v := data.(type) {
	case map[string]interface{}:
		return v, nil
	case []interface{}:
		entries := make(map[string]interface{}, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			hash, ok := stringField(obj, "MovieHash")
			if !ok || hash == "" {
				continue
			}
			entries[hash] = obj
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("%w: can't parse %T", coreErrors.ErrInvalidResultShape, data)
	}
}

func parseEntry(hash string, raw interface{}, logger *log.Logger) MediaRecord {
	obj, ok := raw.(map[string]interface{})
	if !ok || len(obj) == 0 {
		if !isEmpty(raw) {
			logger.Debugf("Ignoring unexpected %T entry for hash %s", raw, hash)
		}
		return MediaRecord{MovieHash: hash}
	}

	rec := MediaRecord{MovieHash: hash, Matched: true}
	if id, ok := stringField(obj, "MovieImdbID"); ok && id != "" {
		rec.IMDbID = NormalizeIMDbID(id)
	}
	kind, _ := stringField(obj, "MovieKind")
	rec.Kind = MediaKind(kind)

	switch rec.Kind {
	case KindMovie:
		rec.MovieName, _ = stringField(obj, "MovieName")
		rec.MovieYear, _ = stringField(obj, "MovieYear")
	case KindEpisode:
		if title, ok := stringField(obj, "MovieName"); ok {
			rec.SeriesTitle, rec.EpisodeTitle = splitEpisodeTitle(title)
		}
		rec.SeasonNumber = intField(obj, "SeriesSeason", hash, logger)
		rec.EpisodeNumber = intField(obj, "SeriesEpisode", hash, logger)
	}
	return rec
}

// NormalizeIMDbID returns id as "tt" followed by at least 7 digits.
func NormalizeIMDbID(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "tt") {
		return id
	}
	if len(id) < 7 {
		id = strings.Repeat("0", 7-len(id)) + id
	}
	return "tt" + id
}

// splitEpisodeTitle splits `"Series Title" Episode Title` into its two parts.
// Missing parts are returned empty.
func splitEpisodeTitle(title string) (series, episode string) {
	parts := strings.Split(title, `"`)
	if len(parts) > 1 {
		series = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		episode = strings.TrimSpace(parts[2])
	}
	return
}

func stringField(obj map[string]interface{}, key string) (string, bool) {
	return stringValue(obj[key])
}

func stringValue(raw interface{}) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int:
		return strconv.Itoa(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}

// intField returns nil when the value is missing or not a number.
func intField(obj map[string]interface{}, key, hash string, logger *log.Logger) *int {
	var n int
	switch v := obj[key].(type) {
	case nil:
		logger.Debugf("%s was missing for hash %s", key, hash)
		return nil
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			logger.WithError(err).Debugf("%s was not an integer for hash %s", key, hash)
			return nil
		}
		n = parsed
	case int64:
		n = int(v)
	case int:
		n = v
	case float64:
		n = int(v)
	default:
		logger.Debugf("%s has unexpected type %T for hash %s", key, v, hash)
		return nil
	}
	return &n
}

func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	}
	return false
}

func parseInsertAck(data interface{}) *InsertAck {
	ack := &InsertAck{Data: data}
	if obj, ok := data.(map[string]interface{}); ok {
		ack.Accepted = stringList(obj["accepted_moviehashes"])
		ack.NewIMDbIDs = stringList(obj["new_imdbs"])
	}
	return ack
}

func stringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := stringValue(item); ok {
			out = append(out, s)
		}
	}
	return out
}
