package logging

import "strings"

// ProgressSampler thins per-item progress lines for non-interactive runs. It
// emits when the completed share of a unit crosses a bucket boundary or when
// the unit changes.
type ProgressSampler struct {
	bucketSize float64
	lastUnit   string
	lastBucket int
}

// NewProgressSampler constructs a sampler with the given bucket width in
// percent. Non-positive widths fall back to 10%.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether progress of done out of total items in unit is
// worth a log line. A zero total never logs.
func (s *ProgressSampler) ShouldLog(unit string, done, total int) bool {
	if s == nil {
		return true
	}
	if total <= 0 {
		return false
	}
	unit = strings.TrimSpace(unit)
	emit := false
	if unit != s.lastUnit {
		s.lastUnit = unit
		s.lastBucket = -1
		emit = true
	}
	percent := float64(done) / float64(total) * 100
	bucket := int(percent / s.bucketSize)
	if done >= total {
		bucket = int(100 / s.bucketSize)
	}
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}

// Reset clears the sampler state.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastUnit = ""
	s.lastBucket = -1
}
