package prefetch

import (
	"time"

	"github.com/kapu/noaa-fisheries-web-go/internal/constants"
	"github.com/kapu/noaa-fisheries-web-go/internal/domain"
	"github.com/kapu/noaa-fisheries-web-go/internal/eventloop"
	"github.com/kapu/noaa-fisheries-web-go/internal/util"
	"github.com/kapu/noaa-fisheries-web-go/pkg/errors"
	"go.uber.org/zap"
)

type Config struct {
	// TierSize is K: items [0,K) get their whole gallery, items [K,2K) get
	// their first image after TierStagger.
	TierSize    int
	TierStagger time.Duration
	// Residency is how long a transport hint stays installed before it is
	// revoked. Zero keeps hints until the session ends.
	Residency time.Duration
	// RegionStagger spaces out regions in ScheduleForRegions.
	RegionStagger time.Duration
	// PriorityRegions is how many leading regions use low rather than auto
	// priority for their background images.
	PriorityRegions int
	Debug           bool
}

func DefaultConfig() Config {
	return Config{
		TierSize:        constants.PrefetchConfig.TierSize,
		TierStagger:     constants.PrefetchConfig.TierStagger,
		Residency:       constants.PrefetchConfig.Residency,
		RegionStagger:   constants.PrefetchConfig.RegionStagger,
		PriorityRegions: constants.PrefetchConfig.PriorityRegions,
	}
}

// RegionFish is one region's ordered fish list.
type RegionFish struct {
	Region string
	Fish   []domain.FishRecord
}

// Scheduler issues prefetch directives in priority tiers and never issues
// the same URL twice for its ledger. Every method must run on the session
// event loop that sched belongs to.
type Scheduler struct {
	sched  eventloop.Scheduler
	ledger *Ledger
	sink   Sink
	cfg    Config
	logger *zap.Logger

	timers   map[uint64]eventloop.Timer
	timerSeq uint64
	nextID   uint64
	alive    bool
}

func NewScheduler(sched eventloop.Scheduler, ledger *Ledger, sink Sink, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.TierSize <= 0 {
		cfg.TierSize = constants.PrefetchConfig.TierSize
	}
	if ledger == nil {
		ledger = NewLedger()
	}
	return &Scheduler{
		sched:  sched,
		ledger: ledger,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
		timers: make(map[uint64]eventloop.Timer),
		alive:  true,
	}
}

func (s *Scheduler) Ledger() *Ledger {
	return s.ledger
}

// ScheduleForRegion runs the region page plan over an ordered fish list.
// Tier 1 is issued before it returns; tier 2 follows after TierStagger.
// It returns the number of tier 1 directives issued.
func (s *Scheduler) ScheduleForRegion(fish []domain.FishRecord) int {
	if !s.alive || len(fish) == 0 {
		return 0
	}

	k := util.Min(s.cfg.TierSize, len(fish))
	issued := 0
	for i := 0; i < k; i++ {
		if s.cfg.Debug {
			s.logger.Debug("Tier 1 card",
				zap.Int("card", i+1),
				zap.String("species", fish[i].SpeciesName),
				zap.Int("images", len(fish[i].ImageGallery)),
			)
		}
		issued += s.prefetchGallery(&fish[i], i == 0)
	}

	end := util.Min(2*k, len(fish))
	if end > k {
		follow := fish[k:end]
		s.after(s.cfg.TierStagger, func() {
			for i := range follow {
				url, ok := follow[i].FirstImageURL()
				if !ok {
					continue
				}
				if s.cfg.Debug {
					s.logger.Debug("Tier 2 card",
						zap.Int("card", k+i+1),
						zap.String("species", follow[i].SpeciesName),
					)
				}
				s.prefetch(url, domain.PriorityLow, TierFollow)
			}
		})
	}
	return issued
}

// prefetchGallery issues every gallery image of a tier 1 card. A card with no
// usable gallery image falls back to its illustration.
func (s *Scheduler) prefetchGallery(fish *domain.FishRecord, lead bool) int {
	issued := 0
	first := true
	for _, img := range fish.ImageGallery {
		if img.Src == "" {
			continue
		}
		priority := domain.PriorityLow
		if lead && first {
			priority = domain.PriorityHigh
		}
		first = false
		if s.prefetch(img.Src, priority, TierLead) {
			issued++
		}
	}
	if first {
		if url, ok := fish.FirstImageURL(); ok {
			priority := domain.PriorityLow
			if lead {
				priority = domain.PriorityHigh
			}
			if s.prefetch(url, priority, TierLead) {
				issued++
			}
		}
	}
	return issued
}

// ScheduleOnCardVisible prefetches the gallery images after the first one,
// in slider navigation order, once a card scrolls into view. URLs already
// issued by the tiers are skipped.
func (s *Scheduler) ScheduleOnCardVisible(fish domain.FishRecord) int {
	if !s.alive {
		return 0
	}

	issued := 0
	for _, idx := range GalleryPreloadOrder(len(fish.ImageGallery)) {
		if s.prefetch(fish.ImageGallery[idx].Src, domain.PriorityLow, TierCard) {
			issued++
		}
	}
	if s.cfg.Debug && issued > 0 {
		s.logger.Debug("Card gallery prefetched",
			zap.String("species", fish.SpeciesName),
			zap.Int("issued", issued),
		)
	}
	return issued
}

// ScheduleForRegions warms the first images of every region for the home
// page. Region i starts i*RegionStagger after the call. Within a region the
// first fish is high priority and the next ones low, or auto past the
// leading PriorityRegions regions.
func (s *Scheduler) ScheduleForRegions(regions []RegionFish) {
	if !s.alive {
		return
	}

	for i, region := range regions {
		background := domain.PriorityLow
		if i >= s.cfg.PriorityRegions {
			background = domain.PriorityAuto
		}
		fish := region.Fish
		name := region.Region
		s.after(time.Duration(i)*s.cfg.RegionStagger, func() {
			n := util.Min(s.cfg.TierSize, len(fish))
			for j := 0; j < n; j++ {
				url, ok := fish[j].FirstImageURL()
				if !ok {
					continue
				}
				priority := background
				if j == 0 {
					priority = domain.PriorityHigh
				}
				s.prefetch(url, priority, TierRegion)
			}
			if s.cfg.Debug {
				s.logger.Debug("Region first images prefetched", zap.String("region", name))
			}
		})
	}
}

// GalleryPreloadOrder lists gallery indexes after the first in the order the
// slider reaches them: next, previous (the last image), then the rest.
func GalleryPreloadOrder(n int) []int {
	if n < 2 {
		return nil
	}
	order := []int{1}
	if n > 2 {
		order = append(order, n-1)
	}
	for i := 2; i < n-1; i++ {
		order = append(order, i)
	}
	return order
}

// prefetch checks and marks the ledger and issues one directive. Failures are
// logged as warnings and never retried.
func (s *Scheduler) prefetch(url string, priority domain.Priority, tier Tier) bool {
	if !s.alive || url == "" || s.ledger.Has(url) {
		return false
	}

	s.nextID++
	d := Directive{
		ID:       s.nextID,
		URL:      url,
		Priority: priority,
		Tier:     tier,
		IssuedAt: s.sched.Now(),
	}

	if err := s.sink.Issue(d); err != nil {
		warning := errors.NewPrefetchWarning(url, err)
		s.logger.Warn("Failed to prefetch image",
			zap.String("url", url),
			zap.String("tier", tier.String()),
			zap.Error(warning),
		)
		return false
	}
	s.ledger.Mark(url)

	if s.cfg.Debug {
		s.logger.Debug("Prefetch issued",
			zap.String("url", url),
			zap.String("tier", tier.String()),
			zap.String("priority", priority.String()),
		)
	}

	if s.cfg.Residency > 0 {
		s.after(s.cfg.Residency, func() {
			s.sink.Revoke(d)
		})
	}
	return true
}

func (s *Scheduler) after(d time.Duration, fn func()) {
	s.timerSeq++
	id := s.timerSeq
	s.timers[id] = s.sched.After(d, func() {
		delete(s.timers, id)
		if !s.alive {
			return
		}
		fn()
	})
}

// Pending counts stagger and residency timers not yet fired.
func (s *Scheduler) Pending() int {
	return len(s.timers)
}

// Teardown cancels every pending stagger and residency timer. Hints already
// installed go away with the page.
func (s *Scheduler) Teardown() {
	if !s.alive {
		return
	}
	s.alive = false
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
