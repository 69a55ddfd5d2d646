package budget

import "time"

// Decision is the outcome of one take: the post-increment usage measured
// against the effective cap. The increment has already happened.
type Decision struct {
	kind     Kind
	allowed  bool
	used     int64
	cap      int64
	limit    int64
	bucket   int64
	degraded bool
}

// NewDecision builds a decision; allowed is derived as used <= cap.
func NewDecision(k Kind, used int64, l Limits, bucket int64) Decision {
	c := l.Cap()
	return Decision{
		kind:    k,
		allowed: used <= c,
		used:    used,
		cap:     c,
		limit:   l.PerMinute,
		bucket:  bucket,
	}
}

// DegradedDecision is returned by fail-open callers when the store is unreachable.
func DegradedDecision(k Kind, l Limits, bucket int64) Decision {
	return Decision{
		kind:     k,
		allowed:  true,
		cap:      l.Cap(),
		limit:    l.PerMinute,
		bucket:   bucket,
		degraded: true,
	}
}

// Kind returns the budgeted resource kind.
func (d Decision) Kind() Kind { return d.kind }

// Allowed reports whether usage is within the cap (inclusive).
func (d Decision) Allowed() bool { return d.allowed }

// Used returns the post-increment usage in the bucket.
func (d Decision) Used() int64 { return d.used }

// Cap returns limit * burst multiplier.
func (d Decision) Cap() int64 { return d.cap }

// Limit returns the configured per-minute limit.
func (d Decision) Limit() int64 { return d.limit }

// Remaining returns max(0, cap-used).
func (d Decision) Remaining() int64 {
	if r := d.cap - d.used; r > 0 {
		return r
	}
	return 0
}

// Bucket returns the minute index the increment landed in.
func (d Decision) Bucket() int64 { return d.bucket }

// ResetsAt returns when the next bucket starts.
func (d Decision) ResetsAt() time.Time { return BucketEnd(d.bucket) }

// Degraded reports whether the decision was made without reaching the store.
func (d Decision) Degraded() bool { return d.degraded }
