package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/boxoffice-cli/internal/config"
	"github.com/sells-group/boxoffice-cli/internal/fetcher"
	"github.com/sells-group/boxoffice-cli/internal/figures"
	"github.com/sells-group/boxoffice-cli/internal/mojo"
	"github.com/sells-group/boxoffice-cli/internal/pipeline"
	"github.com/sells-group/boxoffice-cli/internal/resilience"
	"github.com/sells-group/boxoffice-cli/internal/store"
)

// pipelineEnv holds the store, the Mojo client and the pipeline needed by
// the scrape and inspect commands.
type pipelineEnv struct {
	Store    store.Store
	Mojo     *mojo.Client
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.Path)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newPageFetcher builds the HTTP fetcher for one site, paced by delay and
// backed by the store's page cache unless noCache is set.
func newPageFetcher(fc config.FetchConfig, delay time.Duration, cache fetcher.PageCache, noCache bool) fetcher.PageFetcher {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    fc.UserAgent,
		Timeout:      fc.Timeout(),
		Delay:        delay,
		Retry:        resilience.FromFetchConfig(fc.MaxRetries, fc.InitialBackoffMs),
		MaxBodyBytes: int64(fc.MaxBodyMB) << 20,
	})
	if noCache || cache == nil {
		return f
	}
	return fetcher.NewCachedFetcher(f, cache, fc.CacheTTL())
}

// initPipeline sets up the store, the Mojo client and the Pipeline. Callers
// should defer env.Close().
func initPipeline(ctx context.Context, outDir string, noCache bool) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if !noCache {
		if n, err := st.DeleteExpiredPages(ctx); err != nil {
			zap.L().Warn("failed to prune page cache", zap.Error(err))
		} else if n > 0 {
			zap.L().Debug("pruned page cache", zap.Int("pages", n))
		}
	}

	dis := figures.New(cfg.Figures)
	client := mojo.NewClient(newPageFetcher(cfg.Fetch, cfg.Fetch.Delay(), st, noCache), cfg.Mojo.BaseURL, dis)

	return &pipelineEnv{
		Store:    st,
		Mojo:     client,
		Pipeline: pipeline.New(st, client, outDir, dis.Policy().Version),
	}, nil
}
