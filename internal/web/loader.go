package web

import (
	"context"

	"github.com/kapu/noaa-fisheries-web-go/internal/domain"
	"github.com/kapu/noaa-fisheries-web-go/internal/prefetch"
	"github.com/kapu/noaa-fisheries-web-go/internal/reveal"
	"github.com/kapu/noaa-fisheries-web-go/internal/service/catalog"
	"github.com/kapu/noaa-fisheries-web-go/internal/session"
	"github.com/kapu/noaa-fisheries-web-go/pkg/errors"
)

// SessionLoader resolves session hellos against the catalog. Every hello
// starts its own catalog pass.
type SessionLoader struct {
	catalog *catalog.Catalog
}

func NewSessionLoader(c *catalog.Catalog) *SessionLoader {
	return &SessionLoader{catalog: c}
}

func (l *SessionLoader) LoadPage(ctx context.Context, kind session.PageKind, regionID, fishID string) (session.Page, error) {
	pass := l.catalog.NewPass()
	page := session.Page{Kind: kind, RegionID: regionID}

	switch kind {
	case session.PageRegion:
		fish, err := pass.GetFishForRegion(ctx, regionID)
		if err != nil {
			return session.Page{}, err
		}
		page.Fish = fish

	case session.PageFish:
		fish, err := pass.GetFish(ctx, regionID, fishID)
		if err != nil {
			return session.Page{}, err
		}
		page.Fish = []domain.FishRecord{fish}

	case session.PageHome:
		ix, err := pass.Index(ctx)
		if err != nil {
			return session.Page{}, err
		}
		for _, region := range ix.Regions() {
			page.Regions = append(page.Regions, prefetch.RegionFish{Region: region.Name, Fish: region.Fish})
		}

	default:
		return session.Page{}, errors.NewValidationError("unknown page kind", "page", string(kind))
	}
	return page, nil
}

// CardRenderer renders revealed batches with the same card template as the
// region page.
type CardRenderer struct {
	eagerCount int
}

func NewCardRenderer(eagerCount int) *CardRenderer {
	return &CardRenderer{eagerCount: eagerCount}
}

func (r *CardRenderer) RenderCards(page session.Page, batch reveal.Batch) (string, error) {
	cards := buildCards(page.RegionID, batch.From, r.eagerCount, batch.Items)
	return executeTemplate("cards", cards)
}
