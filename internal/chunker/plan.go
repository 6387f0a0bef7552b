package chunker

import "math"

// Span is a half-open time range [Start, End) in seconds.
type Span struct {
	Start float64
	End   float64
}

// Length returns the span duration in seconds.
func (s Span) Length() float64 {
	return s.End - s.Start
}

// Plan divides totalSeconds into contiguous spans of lengthSeconds. Span i
// covers [i*L, min((i+1)*L, D)); the last span may be shorter. The spans never
// overlap, leave no gaps, and sum to totalSeconds. Non-positive inputs yield nil.
func Plan(totalSeconds float64, lengthSeconds int) []Span {
	if totalSeconds <= 0 || lengthSeconds <= 0 || math.IsNaN(totalSeconds) || math.IsInf(totalSeconds, 0) {
		return nil
	}
	length := float64(lengthSeconds)
	count := int(math.Ceil(totalSeconds / length))
	spans := make([]Span, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * length
		end := math.Min(float64(i+1)*length, totalSeconds)
		if i == count-1 {
			end = totalSeconds
		}
		spans = append(spans, Span{Start: start, End: end})
	}
	return spans
}
