// Package session runs one browser page: it owns the page's event loop,
// viewport observer, prefetch ledger and reveal controller, and talks to the
// browser over a message channel.
package session

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kapu/noaa-fisheries-web-go/internal/constants"
	"github.com/kapu/noaa-fisheries-web-go/internal/eventloop"
	"github.com/kapu/noaa-fisheries-web-go/internal/prefetch"
	"github.com/kapu/noaa-fisheries-web-go/internal/reveal"
	"github.com/kapu/noaa-fisheries-web-go/internal/viewport"
	"github.com/kapu/noaa-fisheries-web-go/pkg/errors"
	"go.uber.org/zap"
)

// Outbox delivers messages to the browser. Send must not block.
type Outbox interface {
	Send(msg OutboundMessage) error
}

// PageLoader resolves a hello message to page data. It may block on I/O.
type PageLoader interface {
	LoadPage(ctx context.Context, kind PageKind, regionID, fishID string) (Page, error)
}

// CardRenderer renders the cards of a revealed batch as an HTML fragment.
type CardRenderer interface {
	RenderCards(page Page, batch reveal.Batch) (string, error)
}

type Config struct {
	InitialCount    int
	Reveal          reveal.Config
	ScrollThreshold int
	// MarginPx grows the viewport for the sentinel and card observations.
	MarginPx int
	Prefetch prefetch.Config
}

// CardHandle is the element id of the card at index in the fish grid.
func CardHandle(index int) viewport.ElementHandle {
	return viewport.ElementHandle(cardHandlePrefix + strconv.Itoa(index))
}

// Session holds the state of one page. Apart from Dispatch, every method runs
// on the session loop.
type Session struct {
	id       string
	loop     eventloop.Scheduler
	out      Outbox
	loader   PageLoader
	renderer CardRenderer
	cfg      Config
	logger   *zap.Logger

	observer   *viewport.Observer
	ledger     *prefetch.Ledger
	prefetcher *prefetch.Scheduler
	controller *reveal.Controller
	scroll     *reveal.ScrollTrigger
	cards      []*viewport.Observation

	page   Page
	opened bool
	closed bool
}

func New(id string, loop eventloop.Scheduler, out Outbox, loader PageLoader, renderer CardRenderer, cfg Config, logger *zap.Logger) *Session {
	logger = logger.With(zap.String("session", id))
	if cfg.Prefetch.TierSize <= 0 {
		cfg.Prefetch.TierSize = constants.PrefetchConfig.TierSize
	}

	s := &Session{
		id:       id,
		loop:     loop,
		out:      out,
		loader:   loader,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
		observer: viewport.NewObserver(logger),
		ledger:   prefetch.NewLedger(),
	}
	s.observer.SetWatchHook(s.onWatch)
	s.prefetcher = prefetch.NewScheduler(loop, s.ledger, outboxSink{s}, cfg.Prefetch, logger)
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Ledger() *prefetch.Ledger {
	return s.ledger
}

func (s *Session) Controller() *reveal.Controller {
	return s.controller
}

func (s *Session) Observer() *viewport.Observer {
	return s.observer
}

// Dispatch routes one browser message onto the session loop. It is safe to
// call from the connection reader; hello blocks while the page loads.
func (s *Session) Dispatch(ctx context.Context, msg InboundMessage) {
	if msg.Type != MsgHello {
		s.loop.Post(func() { s.Handle(msg) })
		return
	}

	page, err := s.loader.LoadPage(ctx, msg.Page, msg.RegionID, msg.FishID)
	if err != nil {
		s.logger.Warn("Failed to load session page",
			zap.String("page", string(msg.Page)),
			zap.String("region_id", msg.RegionID),
			zap.Error(err),
		)
		message := loadFailureMessage(err)
		s.loop.Post(func() {
			s.send(OutboundMessage{Type: MsgError, Message: message})
		})
		return
	}

	intersection := msg.Intersection
	s.loop.Post(func() { s.Open(page, intersection) })
}

// loadFailureMessage is the text shown to the browser. Error details stay in
// the server log.
func loadFailureMessage(err error) string {
	if errors.IsNotFound(err) {
		return "Page not found"
	}
	return "Failed to load region data"
}

// Handle applies a non-hello message.
func (s *Session) Handle(msg InboundMessage) {
	if s.closed {
		return
	}

	switch msg.Type {
	case MsgIntersect:
		s.observer.Deliver(msg.Entries...)
	case MsgScroll:
		if s.scroll != nil && msg.LastItem != nil && msg.Viewport != nil {
			s.scroll.OnScroll(*msg.LastItem, *msg.Viewport)
		}
	case MsgTeardown:
		s.Close()
	default:
		s.logger.Debug("Ignoring unknown message", zap.String("type", msg.Type))
	}
}

// Open starts driving page. Only the first call has any effect.
func (s *Session) Open(page Page, intersection bool) {
	if s.closed || s.opened {
		return
	}
	s.opened = true
	s.page = page

	switch page.Kind {
	case PageRegion:
		s.openRegion(intersection)
	case PageFish:
		s.send(OutboundMessage{Type: MsgReady, SessionID: s.id})
		for _, fish := range page.Fish {
			s.prefetcher.ScheduleOnCardVisible(fish)
		}
	case PageHome:
		s.send(OutboundMessage{Type: MsgReady, SessionID: s.id})
		s.prefetcher.ScheduleForRegions(page.Regions)
	default:
		s.logger.Warn("Unknown page kind", zap.String("page", string(page.Kind)))
		return
	}

	s.logger.Debug("Session opened",
		zap.String("page", string(page.Kind)),
		zap.String("region_id", page.RegionID),
		zap.Int("fish", len(page.Fish)),
	)
}

func (s *Session) openRegion(intersection bool) {
	strategy := reveal.StrategyScrollPolling
	if intersection {
		strategy = reveal.StrategyIntersection
	}
	s.send(OutboundMessage{Type: MsgReady, SessionID: s.id, Strategy: strategy})

	var trigger reveal.Trigger
	if intersection {
		trigger = reveal.NewSentinelTrigger(s.observer, SentinelHandle, s.cfg.MarginPx)
	} else {
		s.scroll = reveal.NewScrollTrigger(s.cfg.ScrollThreshold)
		trigger = s.scroll
	}

	window := reveal.NewWindow(s.page.Fish, s.cfg.InitialCount)
	s.controller = reveal.NewController(FishGridList, window, s.loop, s.cfg.Reveal, trigger, s.onBatch, s.logger)

	s.prefetcher.ScheduleForRegion(s.page.Fish)
	s.observeCards(0, window.VisibleCount())
}

func (s *Session) onBatch(batch reveal.Batch) {
	html, err := s.renderer.RenderCards(s.page, batch)
	if err != nil {
		s.logger.Error("Failed to render cards",
			zap.Int("from", batch.From),
			zap.Int("to", batch.To),
			zap.Error(err),
		)
		return
	}

	s.send(OutboundMessage{
		Type: MsgReveal,
		Reveal: &RevealPayload{
			List:    FishGridList,
			From:    batch.From,
			To:      batch.To,
			HasMore: batch.HasMore,
			HTML:    html,
		},
	})
	s.observeCards(batch.From, batch.To)
}

// observeCards watches rendered cards not already covered by tier 1, which
// prefetches every gallery image of its cards up front.
func (s *Session) observeCards(from, to int) {
	start := from
	if start < s.cfg.Prefetch.TierSize {
		start = s.cfg.Prefetch.TierSize
	}
	for i := start; i < to; i++ {
		fish := s.page.Fish[i]
		if len(fish.ImageGallery) < 2 {
			continue
		}
		s.cards = append(s.cards, s.observer.Observe(CardHandle(i), s.cfg.MarginPx, func() {
			s.prefetcher.ScheduleOnCardVisible(fish)
		}))
	}
}

func (s *Session) onWatch(handle viewport.ElementHandle, marginPx int, watch bool) {
	if s.closed {
		return
	}
	msg := OutboundMessage{Type: MsgRelease, Handle: handle}
	if watch {
		msg = OutboundMessage{Type: MsgObserve, Handle: handle, MarginPx: marginPx}
	}
	s.send(msg)
}

// Close tears down every timer and observation. Timers that fire afterwards
// find their owners dead and do nothing.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true

	if s.controller != nil {
		s.controller.Teardown()
	}
	for _, obs := range s.cards {
		obs.Teardown()
	}
	s.cards = nil
	s.observer.TeardownAll()
	s.prefetcher.Teardown()

	stats := s.ledger.Stats()
	s.logger.Debug("Session closed", zap.Int("prefetched", stats.CachedURLs))
}

func (s *Session) Closed() bool {
	return s.closed
}

func (s *Session) send(msg OutboundMessage) error {
	if err := s.out.Send(msg); err != nil {
		s.logger.Debug("Failed to send message", zap.String("type", msg.Type), zap.Error(err))
		return err
	}
	return nil
}

// outboxSink turns prefetch directives into browser messages.
type outboxSink struct {
	s *Session
}

func (o outboxSink) Issue(d prefetch.Directive) error {
	if o.s.closed {
		return fmt.Errorf("session %s closed", o.s.id)
	}
	return o.s.send(OutboundMessage{Type: MsgPrefetch, Directive: &d})
}

func (o outboxSink) Revoke(d prefetch.Directive) {
	if o.s.closed {
		return
	}
	_ = o.s.send(OutboundMessage{Type: MsgRevoke, Directive: &d})
}
