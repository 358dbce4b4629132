package watcher

import "time"

type pending struct {
	ev Event
	at time.Time
}

// queue holds events until they have been quiet for the debounce window.
// Only an event for the same path as the last queued one is merged, so the
// order across paths is exactly the arrival order.
type queue struct {
	debounce time.Duration
	items    []pending
}

func (q *queue) push(ev Event, now time.Time) {
	if n := len(q.items); n > 0 && q.items[n-1].ev.Path == ev.Path && now.Sub(q.items[n-1].at) < q.debounce {
		last := &q.items[n-1]
		last.ev.Op = merge(last.ev.Op, ev.Op)
		last.at = now
		return
	}
	q.items = append(q.items, pending{ev: ev, at: now})
}

// ready pops every event whose window has closed.
func (q *queue) ready(now time.Time) []Event {
	var out []Event
	for len(q.items) > 0 && now.Sub(q.items[0].at) >= q.debounce {
		out = append(out, q.items[0].ev)
		q.items = q.items[1:]
	}
	return out
}

// wait returns how long until the head event is ready.
func (q *queue) wait(now time.Time) (time.Duration, bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	d := q.items[0].at.Add(q.debounce).Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}
