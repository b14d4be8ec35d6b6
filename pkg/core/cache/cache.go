// Package cache memoizes fingerprint lookups in a store.Store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/MeetLima/osdbinfos/internal/constants"
	"github.com/MeetLima/osdbinfos/pkg/core/opensubtitles"
	"github.com/MeetLima/osdbinfos/pkg/core/store"
	log "github.com/sirupsen/logrus"
)

const keyPrefix = "lookup/"

// Lookuper wraps a FingerprintLookuper and caches each record it returns for
// TTL. Only fingerprints missing from the cache are sent to the wrapped
// lookuper.
type Lookuper struct {
	next   opensubtitles.FingerprintLookuper
	store  store.Store
	ttl    time.Duration
	logger *log.Logger
}

var _ opensubtitles.FingerprintLookuper = (*Lookuper)(nil)

// New creates a caching Lookuper. A ttl <= 0 uses constants.DefaultCacheTTL.
func New(next opensubtitles.FingerprintLookuper, st store.Store, ttl time.Duration, logger *log.Logger) *Lookuper {
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Lookuper{next: next, store: st, ttl: ttl, logger: logger}
}

// LookupFingerprints implements opensubtitles.FingerprintLookuper.
func (l *Lookuper) LookupFingerprints(ctx context.Context, fingerprints []string) (map[string]opensubtitles.MediaRecord, error) {
	result := make(map[string]opensubtitles.MediaRecord, len(fingerprints))
	var misses []string
	seen := make(map[string]bool, len(fingerprints))

	for _, fp := range fingerprints {
		if fp == "" || seen[fp] {
			continue
		}
		seen[fp] = true
		if rec, ok := l.get(ctx, fp); ok {
			result[fp] = rec
			continue
		}
		misses = append(misses, fp)
	}

	l.logger.WithFields(log.Fields{"hits": len(result), "misses": len(misses)}).Debug("Lookup cache")
	if len(misses) == 0 {
		if len(result) == 0 {
			// Let the wrapped lookuper report the empty request.
			return l.next.LookupFingerprints(ctx, fingerprints)
		}
		return result, nil
	}

	fetched, err := l.next.LookupFingerprints(ctx, misses)
	if err != nil {
		return nil, err
	}
	for fp, rec := range fetched {
		result[fp] = rec
		l.set(ctx, fp, rec)
	}
	return result, nil
}

// Invalidate removes the cached record for fingerprint.
func (l *Lookuper) Invalidate(ctx context.Context, fingerprint string) error {
	err := l.store.Delete(ctx, keyPrefix+fingerprint)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func (l *Lookuper) get(ctx context.Context, fp string) (opensubtitles.MediaRecord, bool) {
	var rec opensubtitles.MediaRecord
	data, err := l.store.Get(ctx, keyPrefix+fp)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.logger.WithError(err).Debugf("Could not read cached record for %s", fp)
		}
		return rec, false
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		l.logger.WithError(err).Debugf("Dropping corrupt cached record for %s", fp)
		return rec, false
	}
	return rec, true
}

func (l *Lookuper) set(ctx context.Context, fp string, rec opensubtitles.MediaRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		l.logger.WithError(err).Warnf("Could not encode record for %s", fp)
		return
	}
	if err := l.store.Set(ctx, keyPrefix+fp, data, l.ttl); err != nil {
		l.logger.WithError(err).Warnf("Could not cache record for %s", fp)
	}
}
