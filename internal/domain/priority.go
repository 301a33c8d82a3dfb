package domain

import "fmt"

// Priority is the fetch priority hint attached to a prefetch directive.
// The zero value is PriorityAuto. Values are ordered Low < Auto < High.
type Priority int

const (
	PriorityLow  Priority = -1
	PriorityAuto Priority = 0
	PriorityHigh Priority = 1
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "auto"
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityAuto, PriorityHigh:
		return true
	default:
		return false
	}
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("invalid priority %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return PriorityLow, nil
	case "auto", "":
		return PriorityAuto, nil
	case "high":
		return PriorityHigh, nil
	default:
		return PriorityAuto, fmt.Errorf("unknown priority %q", s)
	}
}
