package cmd

import (
	"context"

	"github.com/Aman-CERP/indexhub/internal/config"
	"github.com/Aman-CERP/indexhub/internal/manager"
	"github.com/Aman-CERP/indexhub/internal/metrics"
	"github.com/Aman-CERP/indexhub/internal/store"
)

// app bundles the wired indexing stack for one command invocation.
type app struct {
	store   *store.BleveStore
	manager *manager.Manager
	metrics *metrics.Metrics
}

// newApp builds the store and manager from the loaded configuration and
// registers every configured index.
func newApp(cfg *config.Config) (*app, error) {
	bs, err := store.NewBleveStore(store.Options{
		RootDir:        cfg.Store.RootDir,
		AnalyzedFields: cfg.Store.AnalyzedFields,
		TermCacheSize:  cfg.Store.TermCacheSize,
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	mgr := manager.New(bs, manager.Options{
		Retry:   cfg.RetryConfig(),
		Logger:  log,
		Metrics: m,
	})
	for _, idx := range cfg.Indexes {
		if err := mgr.Register(idx.ID); err != nil {
			_ = bs.Close()
			return nil, err
		}
	}
	return &app{store: bs, manager: mgr, metrics: m}, nil
}

// register ensures an index named on the command line is managed even when
// it is absent from the configuration.
func (a *app) register(id string) error {
	return a.manager.Register(id)
}

// close shuts the manager down, draining queued jobs, then the store.
func (a *app) close(ctx context.Context) error {
	if err := a.manager.Close(ctx); err != nil {
		_ = a.store.Close()
		return err
	}
	return a.store.Close()
}
