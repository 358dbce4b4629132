package watcher

import "fmt"

// Op is the kind of change an Event reports.
type Op int

const (
	Add Op = iota + 1
	Change
	Remove
)

func (o Op) String() string {
	switch o {
	case Add:
		return "add"
	case Change:
		return "change"
	case Remove:
		return "remove"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Event is a change to one function source file, keyed by absolute path.
type Event struct {
	Op   Op
	Path string
}

// merge folds next into prev for the same path.
func merge(prev, next Op) Op {
	switch {
	case next == Remove:
		return Remove
	case prev == Remove && next == Add:
		// Editors that save by delete-and-recreate.
		return Change
	case prev == Add:
		return Add
	default:
		return next
	}
}
