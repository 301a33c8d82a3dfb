package catalog

import (
	"fmt"
	"strings"

	"github.com/kapu/noaa-fisheries-web-go/internal/domain"
	"github.com/kapu/noaa-fisheries-web-go/internal/util"
	"go.uber.org/zap"
)

// Region is one region and its records in upstream order.
type Region struct {
	ID   string
	Name string
	Fish []domain.FishRecord
}

// Index groups records by region in first-seen order and assigns every
// region a unique URL id.
type Index struct {
	regions []*Region
	byID    map[string]*Region
}

// BuildIndex groups records by NOAAFisheriesRegion. Records with an empty
// region are skipped. When two distinct names normalize to the same id, the
// later one gets a numeric suffix ("-2", "-3", ...).
func BuildIndex(records []domain.FishRecord, logger *zap.Logger) *Index {
	ix := &Index{byID: make(map[string]*Region)}
	byName := make(map[string]*Region)

	for _, record := range records {
		name := strings.TrimSpace(record.NOAAFisheriesRegion)
		if name == "" {
			continue
		}

		region, ok := byName[name]
		if !ok {
			region = &Region{Name: name, ID: ix.uniqueID(name, logger)}
			byName[name] = region
			ix.byID[region.ID] = region
			ix.regions = append(ix.regions, region)
		}
		region.Fish = append(region.Fish, record)
	}
	return ix
}

func (ix *Index) uniqueID(name string, logger *zap.Logger) string {
	base := domain.RegionNameToID(name)
	if _, taken := ix.byID[base]; !taken {
		return base
	}

	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, taken := ix.byID[candidate]; !taken {
			logger.Warn("Region id collision",
				zap.String("region", name),
				zap.String("existing", ix.byID[base].Name),
				zap.String("assigned_id", candidate),
			)
			return candidate
		}
	}
}

func (ix *Index) Regions() []*Region {
	return ix.regions
}

func (ix *Index) Len() int {
	return len(ix.regions)
}

// Lookup resolves a URL id. Ids that differ only in case resolve too.
func (ix *Index) Lookup(id string) (*Region, bool) {
	if region, ok := ix.byID[id]; ok {
		return region, true
	}
	region, ok := ix.byID[strings.ToLower(strings.TrimSpace(id))]
	return region, ok
}

// FindFish resolves a fish by the slug of its species name.
func (r *Region) FindFish(fishID string) (domain.FishRecord, bool) {
	for _, fish := range r.Fish {
		if util.Slugify(fish.SpeciesName) == fishID {
			return fish, true
		}
	}
	return domain.FishRecord{}, false
}

// Summary derives the statistics of one region.
func (r *Region) Summary() domain.RegionSummary {
	var calories, fat []float64
	for _, fish := range r.Fish {
		if v, ok := domain.ParseNutrient(fish.Calories); ok {
			calories = append(calories, v)
		}
		if v, ok := domain.ParseNutrient(fish.FatTotal); ok {
			fat = append(fat, v)
		}
	}

	return domain.RegionSummary{
		ID:          r.ID,
		Name:        r.Name,
		FishCount:   len(r.Fish),
		AvgCalories: util.Mean(calories),
		AvgFat:      util.Mean(fat),
	}
}

// Aggregate derives one summary per region in first-seen order. It does no
// I/O and returns the same output for the same input order.
func Aggregate(records []domain.FishRecord) []domain.RegionSummary {
	return summarize(BuildIndex(records, zap.NewNop()))
}

func summarize(ix *Index) []domain.RegionSummary {
	summaries := make([]domain.RegionSummary, 0, ix.Len())
	for _, region := range ix.regions {
		summaries = append(summaries, region.Summary())
	}
	return summaries
}
