package connection

// recentIDsSize bounds how many sender ids are remembered
const recentIDsSize = 256

// recentIDs remembers the last sender-stamped message ids, oldest evicted
// first. A retried append lands close to its first copy.
type recentIDs struct {
	seen map[string]struct{}
	ring []string
	next int
}

func newRecentIDs(size int) *recentIDs {
	return &recentIDs{
		seen: make(map[string]struct{}, size),
		ring: make([]string, size),
	}
}

// add records id and reports whether it was new. Empty ids are always new.
func (r *recentIDs) add(id string) bool {
	if id == "" {
		return true
	}
	if _, ok := r.seen[id]; ok {
		return false
	}
	if old := r.ring[r.next]; old != "" {
		delete(r.seen, old)
	}
	r.ring[r.next] = id
	r.seen[id] = struct{}{}
	r.next = (r.next + 1) % len(r.ring)
	return true
}
