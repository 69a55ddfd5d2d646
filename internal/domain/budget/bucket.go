package budget

import (
	"fmt"
	"time"
)

// Window is the width of one counter bucket.
const Window = time.Minute

// Bucket returns the aligned minute index floor(unix_ms / 60000).
// All callers share the same wall-clock buckets.
func Bucket(t time.Time) int64 {
	ms := t.UnixMilli()
	w := Window.Milliseconds()
	b := ms / w
	if ms < 0 && ms%w != 0 {
		b--
	}
	return b
}

// BucketEnd returns the instant the bucket stops receiving increments.
func BucketEnd(bucket int64) time.Time {
	return time.UnixMilli((bucket + 1) * Window.Milliseconds()).UTC()
}

// Key builds the counter key for (kind, org, bucket) under prefix.
func Key(prefix string, k Kind, orgID string, bucket int64) string {
	return fmt.Sprintf("%sbudget:%s:%s:%d", prefix, k, orgID, bucket)
}
