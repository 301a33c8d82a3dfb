package reveal

import (
	"time"

	"github.com/kapu/noaa-fisheries-web-go/internal/constants"
	"github.com/kapu/noaa-fisheries-web-go/internal/domain"
	"github.com/kapu/noaa-fisheries-web-go/internal/eventloop"
	"go.uber.org/zap"
)

type State int

const (
	Idle State = iota
	Loading
	Exhausted
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Exhausted:
		return "exhausted"
	default:
		return "idle"
	}
}

type Config struct {
	BatchSize int
	// Delay is the minimum time between a trigger and the batch becoming
	// visible. Triggers arriving meanwhile are ignored.
	Delay time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize: constants.PaginationConfig.LoadMoreCount,
		Delay:     constants.PaginationConfig.LoadMoreDelay,
	}
}

// Batch describes items that just became visible.
type Batch struct {
	From    int
	To      int
	Items   []domain.FishRecord
	HasMore bool
}

// Trigger decides when the controller should load the next batch. Exactly
// one trigger drives a controller.
type Trigger interface {
	// Arm starts listening. It is called once at construction and again
	// after every committed batch while more items remain.
	Arm(c *Controller)
	Disarm()
}

// Controller runs the Idle -> Loading -> Idle|Exhausted state machine of one
// Window. It must only be used from its scheduler's loop.
type Controller struct {
	window   *Window
	sched    eventloop.Scheduler
	cfg      Config
	trigger  Trigger
	onBatch  func(Batch)
	state    State
	pending  eventloop.Timer
	alive    bool
	logger   *zap.Logger
	listName string
}

func NewController(listName string, window *Window, sched eventloop.Scheduler, cfg Config, trigger Trigger, onBatch func(Batch), logger *zap.Logger) *Controller {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = constants.PaginationConfig.LoadMoreCount
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}

	c := &Controller{
		window:   window,
		sched:    sched,
		cfg:      cfg,
		trigger:  trigger,
		onBatch:  onBatch,
		alive:    true,
		logger:   logger,
		listName: listName,
	}

	if window.HasMore() {
		c.state = Idle
		if trigger != nil {
			trigger.Arm(c)
		}
	} else {
		c.state = Exhausted
	}
	return c
}

func (c *Controller) Window() *Window {
	return c.window
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) VisibleItems() []domain.FishRecord {
	return c.window.VisibleItems()
}

func (c *Controller) HasMore() bool {
	return c.window.HasMore()
}

// LoadMore schedules the next batch. It reports false, doing nothing, when
// a batch is already loading, nothing remains, or the controller is torn
// down.
func (c *Controller) LoadMore() bool {
	if !c.alive || c.state != Idle || !c.window.HasMore() {
		return false
	}

	c.state = Loading
	c.pending = c.sched.After(c.cfg.Delay, c.commit)

	c.logger.Debug("Loading more items",
		zap.String("list", c.listName),
		zap.Int("visible", c.window.VisibleCount()),
		zap.Int("total", c.window.Len()),
	)
	return true
}

func (c *Controller) commit() {
	if !c.alive {
		return
	}
	c.pending = nil

	from, to := c.window.grow(c.cfg.BatchSize)
	if c.window.HasMore() {
		c.state = Idle
	} else {
		c.state = Exhausted
	}

	c.logger.Debug("Batch revealed",
		zap.String("list", c.listName),
		zap.Int("from", from),
		zap.Int("to", to),
		zap.String("state", c.state.String()),
	)

	if c.onBatch != nil {
		c.onBatch(Batch{
			From:    from,
			To:      to,
			Items:   c.window.items[from:to],
			HasMore: c.window.HasMore(),
		})
	}

	if c.state == Idle && c.alive && c.trigger != nil {
		c.trigger.Arm(c)
	}
}

// Teardown cancels a pending batch and disarms the trigger. A timer that
// fires anyway finds the controller dead and does nothing.
func (c *Controller) Teardown() {
	if !c.alive {
		return
	}
	c.alive = false
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	if c.trigger != nil {
		c.trigger.Disarm()
	}
}
