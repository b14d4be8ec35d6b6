package cmd

import (
	"context"
	"fmt"

	"github.com/MeetLima/osdbinfos/pkg/core/cache"
	"github.com/MeetLima/osdbinfos/pkg/core/opensubtitles"
	"github.com/MeetLima/osdbinfos/pkg/core/session"
	"github.com/MeetLima/osdbinfos/pkg/core/store"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Service is what the commands need from OpenSubtitles.
type Service interface {
	LookupFiles(ctx context.Context, paths []string) (map[string]*opensubtitles.MediaRecord, error)
	InsertHashes(ctx context.Context, records []opensubtitles.InsertHashRecord) (*opensubtitles.InsertAck, error)
	Session() session.Session
	SessionValid() bool
	Close() error
}

// NewServiceFunc allows overriding the service creation for testing.
var NewServiceFunc = newService

type service struct {
	*opensubtitles.Client
	resolver *opensubtitles.FileResolver
	store    store.Store
}

func (s *service) LookupFiles(ctx context.Context, paths []string) (map[string]*opensubtitles.MediaRecord, error) {
	return s.resolver.LookupFiles(ctx, paths)
}

func (s *service) Close() error {
	return s.store.Close()
}

// newService builds a client from the viper configuration. The session and,
// when enabled, the lookup cache share one store.
func newService(logger *log.Logger) (Service, error) {
	backend := viper.GetString(CfgKeyStateBackend)
	dir := viper.GetString(CfgKeyStateDir)
	st, err := store.Open(backend, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s state in %s: %w", backend, dir, err)
	}

	client, err := opensubtitles.NewClient(opensubtitles.Config{
		Username:    viper.GetString(CfgKeyUsername),
		Password:    viper.GetString(CfgKeyPassword),
		Language:    viper.GetString(CfgKeyLanguage),
		UserAgent:   viper.GetString(CfgKeyUserAgent),
		Endpoint:    viper.GetString(CfgKeyEndpoint),
		Timeout:     viper.GetDuration(CfgKeyTimeout),
		HashWorkers: viper.GetInt(CfgKeyHashWorkers),
		Store:       st,
		Logger:      logger,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	var lookuper opensubtitles.FingerprintLookuper = client
	if viper.GetBool(CfgKeyCacheEnabled) {
		lookuper = cache.New(client, st, viper.GetDuration(CfgKeyCacheTTL), logger)
	}

	return &service{
		Client: client,
		resolver: &opensubtitles.FileResolver{
			Lookuper: lookuper,
			Workers:  viper.GetInt(CfgKeyHashWorkers),
			Logger:   logger,
		},
		store: st,
	}, nil
}
