package session

import (
	"github.com/kapu/noaa-fisheries-web-go/internal/domain"
	"github.com/kapu/noaa-fisheries-web-go/internal/prefetch"
	"github.com/kapu/noaa-fisheries-web-go/internal/reveal"
	"github.com/kapu/noaa-fisheries-web-go/internal/viewport"
)

// Browser -> server message types.
const (
	MsgHello     = "hello"
	MsgIntersect = "intersect"
	MsgScroll    = "scroll"
	MsgTeardown  = "teardown"
)

// Server -> browser message types.
const (
	MsgReady    = "ready"
	MsgObserve  = "observe"
	MsgRelease  = "release"
	MsgReveal   = "reveal"
	MsgPrefetch = "prefetch"
	MsgRevoke   = "revoke"
	MsgError    = "error"
)

type PageKind string

const (
	PageHome   PageKind = "home"
	PageRegion PageKind = "region"
	PageFish   PageKind = "fish"
)

// Element ids shared with the page templates.
const (
	SentinelHandle   viewport.ElementHandle = "fish-grid-sentinel"
	FishGridList                            = "fish-grid"
	cardHandlePrefix                        = "fish-card-"
)

type InboundMessage struct {
	Type string `json:"type"`

	// hello
	Page         PageKind `json:"page,omitempty"`
	RegionID     string   `json:"regionId,omitempty"`
	FishID       string   `json:"fishId,omitempty"`
	Intersection bool     `json:"intersection,omitempty"`

	// intersect
	Entries []viewport.Entry `json:"entries,omitempty"`

	// scroll
	LastItem *viewport.Rect `json:"lastItem,omitempty"`
	Viewport *viewport.Size `json:"viewport,omitempty"`
}

type OutboundMessage struct {
	Type      string                 `json:"type"`
	SessionID string                 `json:"sessionId,omitempty"`
	Strategy  reveal.Strategy        `json:"strategy,omitempty"`
	Handle    viewport.ElementHandle `json:"handle,omitempty"`
	MarginPx  int                    `json:"marginPx,omitempty"`
	Reveal    *RevealPayload         `json:"reveal,omitempty"`
	Directive *prefetch.Directive    `json:"directive,omitempty"`
	Message   string                 `json:"message,omitempty"`
}

// RevealPayload carries the cards of one committed batch.
type RevealPayload struct {
	List    string `json:"list"`
	From    int    `json:"from"`
	To      int    `json:"to"`
	HasMore bool   `json:"hasMore"`
	HTML    string `json:"html"`
}

// Page is the data a session drives: the region list for region pages, the
// single record for fish pages, every region's list for the home page.
type Page struct {
	Kind     PageKind
	RegionID string
	Fish     []domain.FishRecord
	Regions  []prefetch.RegionFish
}

type ConnState string

const (
	ConnStateOpen    ConnState = "OPEN"
	ConnStateClosing ConnState = "CLOSING"
	ConnStateClosed  ConnState = "CLOSED"
)

func (s ConnState) String() string {
	return string(s)
}
