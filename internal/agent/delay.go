package agent

import (
	"context"
	"time"
)

// Delays are the artificial latencies standing in for model calls.
type Delays struct {
	Analysis     time.Duration
	Knowledge    time.Duration
	Consultation time.Duration
}

func DefaultDelays() Delays {
	return Delays{
		Analysis:     1500 * time.Millisecond,
		Knowledge:    2000 * time.Millisecond,
		Consultation: 1500 * time.Millisecond,
	}
}

// Scale multiplies every delay by f. A factor <= 0 disables the delays.
func (d Delays) Scale(f float64) Delays {
	return Delays{
		Analysis:     ScaleDuration(d.Analysis, f),
		Knowledge:    ScaleDuration(d.Knowledge, f),
		Consultation: ScaleDuration(d.Consultation, f),
	}
}

func ScaleDuration(d time.Duration, f float64) time.Duration {
	if f <= 0 {
		return 0
	}
	return time.Duration(float64(d) * f)
}

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
