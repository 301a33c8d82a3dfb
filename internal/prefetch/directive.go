package prefetch

import (
	"fmt"
	"time"

	"github.com/kapu/noaa-fisheries-web-go/internal/domain"
)

// Tier names the part of the schedule that produced a directive.
type Tier int

const (
	TierLead Tier = iota + 1
	TierFollow
	TierCard
	TierRegion
)

func (t Tier) String() string {
	switch t {
	case TierLead:
		return "tier1"
	case TierFollow:
		return "tier2"
	case TierCard:
		return "card"
	case TierRegion:
		return "region"
	default:
		return "unknown"
	}
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func ParseTier(s string) (Tier, error) {
	switch s {
	case "tier1":
		return TierLead, nil
	case "tier2":
		return TierFollow, nil
	case "card":
		return TierCard, nil
	case "region":
		return TierRegion, nil
	default:
		return 0, fmt.Errorf("unknown prefetch tier %q", s)
	}
}

// Directive asks the browser to prefetch one image.
type Directive struct {
	ID       uint64          `json:"id"`
	URL      string          `json:"url"`
	Priority domain.Priority `json:"priority"`
	Tier     Tier            `json:"tier"`
	IssuedAt time.Time       `json:"issuedAt"`
}

// Sink delivers directives to the browser. Issue installs the transport hint;
// Revoke removes it once its residency expires.
type Sink interface {
	Issue(d Directive) error
	Revoke(d Directive)
}

// RecordingSink keeps every directive in memory. Fail, when set, decides
// whether Issue rejects a directive.
type RecordingSink struct {
	Issued  []Directive
	Revoked []Directive
	Fail    func(d Directive) error
}

func (s *RecordingSink) Issue(d Directive) error {
	if s.Fail != nil {
		if err := s.Fail(d); err != nil {
			return err
		}
	}
	s.Issued = append(s.Issued, d)
	return nil
}

func (s *RecordingSink) Revoke(d Directive) {
	s.Revoked = append(s.Revoked, d)
}

// CountURL reports how many issued directives target url.
func (s *RecordingSink) CountURL(url string) int {
	n := 0
	for _, d := range s.Issued {
		if d.URL == url {
			n++
		}
	}
	return n
}

// ByTier returns issued directives produced by tier, in issue order.
func (s *RecordingSink) ByTier(tier Tier) []Directive {
	var out []Directive
	for _, d := range s.Issued {
		if d.Tier == tier {
			out = append(out, d)
		}
	}
	return out
}
