// Package catalog serves region and fish views derived from the upstream
// record list.
package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/kapu/noaa-fisheries-web-go/internal/domain"
	"github.com/kapu/noaa-fisheries-web-go/internal/service/cache"
	"github.com/kapu/noaa-fisheries-web-go/internal/service/fishapi"
	"github.com/kapu/noaa-fisheries-web-go/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Catalog loads records through an optional shared cache and hands out
// per-render passes.
type Catalog struct {
	fetcher fishapi.Fetcher
	cache   cache.RecordCache
	ttl     time.Duration
	logger  *zap.Logger
}

func New(fetcher fishapi.Fetcher, recordCache cache.RecordCache, ttl time.Duration, logger *zap.Logger) *Catalog {
	return &Catalog{
		fetcher: fetcher,
		cache:   recordCache,
		ttl:     ttl,
		logger:  logger,
	}
}

// NewPass starts one render pass. Every lookup made through the pass shares
// a single record fetch.
func (c *Catalog) NewPass() *Pass {
	return &Pass{catalog: c}
}

// load reads the shared cache and falls back to upstream. Cache failures are
// logged and never fail the load.
func (c *Catalog) load(ctx context.Context) ([]domain.FishRecord, error) {
	if c.cache != nil {
		records, ok, err := c.cache.GetRecords(ctx)
		if err != nil {
			c.logger.Warn("Record cache read failed", zap.Error(err))
		} else if ok {
			c.logger.Debug("Record cache hit", zap.Int("count", len(records)))
			return records, nil
		}
	}

	records, err := c.fetcher.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetRecords(ctx, records, c.ttl); err != nil {
			c.logger.Warn("Record cache write failed", zap.Error(err))
		}
	}
	return records, nil
}

// Pass memoizes the record list and region index for one render. It is safe
// for concurrent use; concurrent callers wait for the same fetch.
type Pass struct {
	catalog *Catalog

	mu      sync.Mutex
	loaded  bool
	records []domain.FishRecord
	index   *Index
	err     error
}

func (p *Pass) ensure(ctx context.Context) (*Index, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		p.records, p.err = p.catalog.load(ctx)
		if p.err == nil {
			p.index = BuildIndex(p.records, p.catalog.logger)
		}
		p.loaded = true
	}
	return p.index, p.err
}

// Records returns the full upstream list.
func (p *Pass) Records(ctx context.Context) ([]domain.FishRecord, error) {
	if _, err := p.ensure(ctx); err != nil {
		return nil, err
	}
	return p.records, nil
}

func (p *Pass) Index(ctx context.Context) (*Index, error) {
	return p.ensure(ctx)
}

func (p *Pass) GetRegions(ctx context.Context) ([]domain.RegionSummary, error) {
	ix, err := p.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(ix), nil
}

func (p *Pass) region(ctx context.Context, regionID string) (*Region, error) {
	ix, err := p.ensure(ctx)
	if err != nil {
		return nil, err
	}
	region, ok := ix.Lookup(regionID)
	if !ok {
		return nil, errors.NewNotFoundError("region", regionID)
	}
	return region, nil
}

func (p *Pass) GetRegionSummary(ctx context.Context, regionID string) (domain.RegionSummary, error) {
	region, err := p.region(ctx, regionID)
	if err != nil {
		return domain.RegionSummary{}, err
	}
	return region.Summary(), nil
}

func (p *Pass) GetFishForRegion(ctx context.Context, regionID string) ([]domain.FishRecord, error) {
	region, err := p.region(ctx, regionID)
	if err != nil {
		return nil, err
	}
	return region.Fish, nil
}

func (p *Pass) GetFish(ctx context.Context, regionID, fishID string) (domain.FishRecord, error) {
	region, err := p.region(ctx, regionID)
	if err != nil {
		return domain.FishRecord{}, err
	}
	fish, ok := region.FindFish(fishID)
	if !ok {
		return domain.FishRecord{}, errors.NewNotFoundError("fish", fishID)
	}
	return fish, nil
}

// RegionPage is everything the region page renders.
type RegionPage struct {
	Summary domain.RegionSummary
	Fish    []domain.FishRecord
}

// LoadRegionPage fetches the summary and the fish list together. The first
// failure cancels the other lookup.
func (p *Pass) LoadRegionPage(ctx context.Context, regionID string) (RegionPage, error) {
	var page RegionPage

	g := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	g.Go(func(ctx context.Context) error {
		summary, err := p.GetRegionSummary(ctx, regionID)
		page.Summary = summary
		return err
	})
	g.Go(func(ctx context.Context) error {
		fish, err := p.GetFishForRegion(ctx, regionID)
		page.Fish = fish
		return err
	})

	if err := g.Wait(); err != nil {
		return RegionPage{}, err
	}
	return page, nil
}

// FishPage is everything the fish detail page renders.
type FishPage struct {
	Region domain.RegionSummary
	Fish   domain.FishRecord
}

func (p *Pass) LoadFishPage(ctx context.Context, regionID, fishID string) (FishPage, error) {
	var page FishPage

	g := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	g.Go(func(ctx context.Context) error {
		summary, err := p.GetRegionSummary(ctx, regionID)
		page.Region = summary
		return err
	})
	g.Go(func(ctx context.Context) error {
		fish, err := p.GetFish(ctx, regionID, fishID)
		page.Fish = fish
		return err
	})

	if err := g.Wait(); err != nil {
		return FishPage{}, err
	}
	return page, nil
}
