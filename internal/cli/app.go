package cli

import (
	"fmt"

	"github.com/framefeed/framefeed/internal/album"
	"github.com/framefeed/framefeed/internal/cache"
	"github.com/framefeed/framefeed/internal/config"
	"github.com/framefeed/framefeed/internal/events"
	"github.com/framefeed/framefeed/internal/registry"
	"github.com/framefeed/framefeed/internal/remotefs"
	"github.com/framefeed/framefeed/internal/scheduler"
	"github.com/framefeed/framefeed/internal/state"
)

// app is the wired component graph behind every command. Commands build it
// once at the start of RunE and close it on the way out.
type app struct {
	cfg      *config.Config
	bus      *events.Bus
	registry *registry.Registry
	state    *state.Store
	albums   *album.Store
	cache    *cache.DiskCache
	factory  *remotefs.Factory
	sched    *scheduler.Scheduler
}

// newApp loads configuration and opens every store the commands touch.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	reg, err := registry.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open server registry: %w", err)
	}
	st, err := state.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open download state: %w", err)
	}
	albums, err := album.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open album store: %w", err)
	}
	diskCache, err := cache.NewDiskCache(cfg.CacheDir)
	if err != nil {
		albums.Close()
		return nil, fmt.Errorf("failed to open photo cache: %w", err)
	}

	bus := events.NewBus(0)
	factory := remotefs.NewFactory(cfg.Download)
	sched := scheduler.New(cfg.Download, factory, diskCache, albums, st, bus, GetLogger())

	return &app{
		cfg:      cfg,
		bus:      bus,
		registry: reg,
		state:    st,
		albums:   albums,
		cache:    diskCache,
		factory:  factory,
		sched:    sched,
	}, nil
}

// Close releases the stores and the event bus.
func (a *app) Close() {
	a.albums.Close()
	a.bus.Close()
}

