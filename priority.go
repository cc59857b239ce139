package taskq

import "fmt"

// Priority represents the priority of a task. The zero value is unknown and
// is rejected by [Queue.Add].
type Priority struct {
	priority
}

// ParsePriority creates a new [Priority] from the given value. Values that
// do not name a recognised level produce a [Priority] for which IsValid
// reports false.
func ParsePriority(p any) Priority {
	switch v := p.(type) {
	case Priority:
		return v
	case string:
		return Priority{stringToPriority(v)}
	case fmt.Stringer:
		return Priority{stringToPriority(v.String())}
	case int:
		return Priority{priority(v)}
	case int64:
		return Priority{priority(int(v))}
	case int32:
		return Priority{priority(int(v))}
	default:
		return Priority{priorityUnknown}
	}
}

// Ordinal returns the numeric level. Lower values are more urgent.
func (p Priority) Ordinal() int {
	return int(p.priority)
}

// MoreUrgentThan reports whether p is dequeued ahead of o.
func (p Priority) MoreUrgentThan(o Priority) bool {
	return p.priority < o.priority
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

func (p *Priority) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	*p = ParsePriority(s)
	return nil
}

// Priorities is a more typical enum like structure from other languages, ported
// to Go. It may be used to reference a [Priority] value by name.
var Priorities = priorityContainer{
	Unknown: Priority{priorityUnknown},
	High:    Priority{priorityHigh},
	Medium:  Priority{priorityMedium},
	Low:     Priority{priorityLow},
}

// All returns every recognised priority, most urgent first. Unknown is not
// included.
func (c priorityContainer) All() []Priority {
	return []Priority{c.High, c.Medium, c.Low}
}

type priority int

const (
	priorityUnknown priority = 0
	priorityHigh    priority = 1
	priorityMedium  priority = 2
	priorityLow     priority = 3
)

var (
	strPriorityMap = map[priority]string{
		priorityHigh:   "high",
		priorityMedium: "medium",
		priorityLow:    "low",
	}

	typePriorityMap = map[string]priority{
		"high":   priorityHigh,
		"medium": priorityMedium,
		"low":    priorityLow,
	}
)

func (p priority) String() string {
	if s, ok := strPriorityMap[p]; ok {
		return s
	}
	if p == priorityUnknown {
		return "unknown"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// IsValid reports whether the priority is one of the recognised levels.
func (p priority) IsValid() bool {
	_, ok := strPriorityMap[p]
	return ok
}

func stringToPriority(s string) priority {
	if v, ok := typePriorityMap[s]; ok {
		return v
	}
	return priorityUnknown
}

type priorityContainer struct {
	Unknown Priority
	High    Priority
	Medium  Priority
	Low     Priority
}
