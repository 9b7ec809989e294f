// ABOUTME: Switch schedule for offline rendering
// ABOUTME: Parses "<time>:<source>" lists into frame-accurate events
package render

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSchedule is returned for malformed or out-of-range events.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Event switches to Source at frame AtFrame.
type Event struct {
	AtFrame int
	Source  int
}

// Schedule is a list of switch events.
type Schedule []Event

// ParseSchedule parses comma-separated "<time>:<source>" pairs. time is a
// Go duration ("2.5s", "750ms") or a bare frame count.
func ParseSchedule(s string, sampleRate int) (Schedule, error) {
	var sched Schedule
	s = strings.TrimSpace(s)
	if s == "" {
		return sched, nil
	}

	for _, part := range strings.Split(s, ",") {
		at, src, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not <time>:<source>", ErrInvalidSchedule, part)
		}

		frame, err := parseFrame(strings.TrimSpace(at), sampleRate)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSchedule, part, err)
		}

		idx, err := strconv.Atoi(strings.TrimSpace(src))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: source must be an index", ErrInvalidSchedule, part)
		}

		sched = append(sched, Event{AtFrame: frame, Source: idx})
	}

	return sched, nil
}

func parseFrame(s string, sampleRate int) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative frame %d", n)
		}
		return n, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative time %v", d)
	}
	return int(math.Round(d.Seconds() * float64(sampleRate))), nil
}

// sorted validates the events against inputs and returns them ordered by
// frame. Events at the same frame keep their order.
func (s Schedule) sorted(inputs int) (Schedule, error) {
	out := make(Schedule, len(s))
	copy(out, s)

	for _, ev := range out {
		if ev.AtFrame < 0 {
			return nil, fmt.Errorf("%w: negative frame %d", ErrInvalidSchedule, ev.AtFrame)
		}
		if ev.Source < 0 || ev.Source >= inputs {
			return nil, fmt.Errorf("%w: source %d out of range [0, %d)", ErrInvalidSchedule, ev.Source, inputs)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].AtFrame < out[j].AtFrame })
	return out, nil
}
