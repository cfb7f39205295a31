package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"go.uber.org/zap"

	"ossia/internal/artwork"
	"ossia/internal/config"
	"ossia/internal/engine"
	"ossia/internal/lastfm"
	"ossia/internal/logger"
	"ossia/internal/mpris"
	"ossia/internal/notify"
	"ossia/internal/piped"
	"ossia/internal/related"
	"ossia/internal/resolve"
	"ossia/internal/sink"
	"ossia/internal/song"
	"ossia/internal/spotify"
)

const (
	appName     = "ossia"
	cacheDBName = "related.db"
)

var errMissingCredentials = errors.New(
	"lastfm api key and spotify client id/secret are required; see config.toml")

// searchDeps is the minimal wiring needed to resolve a query: no audio
// output, no cache, no session.
type searchDeps struct {
	cfg      *config.Config
	log      *zap.Logger
	pipeline *resolve.Pipeline
	spotify  *spotify.Client
}

func newSearchDeps() (*searchDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !cfg.HasLastfmConfig() || !cfg.HasSpotifyConfig() {
		return nil, errMissingCredentials
	}

	logCfg := cfg.GetLogConfig()
	log, err := logger.New(logCfg.Level, logCfg.MaxSizeMB, logCfg.MaxBackups)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	sp := spotify.New(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret)
	pipeline := resolve.New(lastfm.New(cfg.Lastfm.APIKey), sp, log)

	return &searchDeps{cfg: cfg, log: log, pipeline: pipeline, spotify: sp}, nil
}

func (d *searchDeps) close() {
	_ = d.log.Sync()
}

// app is the full playback wiring: search deps plus audio sink, engine,
// recommendation cache and the desktop integrations.
type app struct {
	*searchDeps

	engine    *engine.Engine
	snk       *sink.Beep
	cache     *related.Cache
	mprisAdpt *mpris.Adapter
	announcer *notify.Announcer
	scrobbler *lastfm.Scrobbler
}

func newApp() (*app, error) {
	deps, err := newSearchDeps()
	if err != nil {
		return nil, err
	}

	snk, err := sink.NewBeep()
	if err != nil {
		deps.close()
		return nil, fmt.Errorf("init audio: %w", err)
	}

	cachePath, err := xdg.CacheFile(filepath.Join(appName, cacheDBName))
	if err != nil {
		deps.close()
		return nil, err
	}
	cache, err := related.OpenCache(cachePath, deps.cfg.GetCacheConfig().TTL())
	if err != nil {
		deps.close()
		return nil, fmt.Errorf("open recommendation cache: %w", err)
	}

	engCfg := deps.cfg.GetEngineConfig()
	eng := engine.New(engine.Deps{
		Sink:     snk,
		Resolver: piped.New(deps.cfg.Piped.Instance),
		Related:  related.NewCachingSource(deps.spotify, cache, deps.log),
		Features: deps.spotify,
		Colors:   artwork.NewExtractor(deps.spotify, deps.log),
		Log:      deps.log,
	}, engine.Options{
		MaxConsecutiveFailures: engCfg.MaxConsecutiveFailures,
		ResolveTimeout:         engCfg.ResolveTimeout(),
	})

	a := &app{
		searchDeps: deps,
		engine:     eng,
		snk:        snk,
		cache:      cache,
	}

	if deps.cfg.HasScrobbleConfig() {
		a.scrobbler = lastfm.NewScrobbler(deps.cfg.Lastfm.APIKey, deps.cfg.Lastfm.APISecret)
	}

	if notifier, err := notify.New(); err == nil {
		a.announcer = notify.NewAnnouncer(notifier)
	}

	if adapter, err := mpris.New(eng); err == nil {
		a.mprisAdpt = adapter
	} else {
		deps.log.Warn("mpris unavailable", zap.Error(err))
	}

	return a, nil
}

func (a *app) close() {
	if a.mprisAdpt != nil {
		_ = a.mprisAdpt.Close()
	}
	_ = a.engine.Close()
	_ = a.snk.Close()
	_ = a.cache.Close()
	a.searchDeps.close()
}

// eventLoop drives the desktop integrations from engine events until the
// subscription is closed. Run it in its own goroutine.
func (a *app) eventLoop(sub *engine.Subscription, onTrack func(prev, cur *song.Track)) {
	var startedAt time.Time

	for {
		select {
		case <-sub.Done:
			return
		case ev := <-sub.TrackChanged:
			if ev.Previous != nil && a.scrobbler != nil && a.scrobbler.IsAuthenticated() {
				_ = a.scrobbler.Scrobble(lastfm.ScrobbleTrack{
					Artist:    ev.Previous.Artist,
					Track:     ev.Previous.Title,
					Duration:  ev.Previous.Duration,
					Timestamp: startedAt,
				})
			}
			if ev.Current != nil {
				startedAt = time.Now()
				a.announcer.NowPlaying(ev.Current)
				if a.scrobbler != nil && a.scrobbler.IsAuthenticated() {
					_ = a.scrobbler.UpdateNowPlaying(lastfm.ScrobbleTrack{
						Artist:   ev.Current.Artist,
						Track:    ev.Current.Title,
						Duration: ev.Current.Duration,
					})
				}
			}
			if onTrack != nil {
				onTrack(ev.Previous, ev.Current)
			}
		}
	}
}
