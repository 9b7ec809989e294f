// ABOUTME: Processor configuration
// ABOUTME: Bus layout, sample rate and fade length with validation
package router

import (
	"errors"
	"fmt"
	"time"

	"github.com/Resonate-Protocol/resonate-selector/pkg/audio"
)

// DefaultTransitionLength is the fade duration used when none is configured.
const DefaultTransitionLength = time.Second

// ErrInvalidConfig is returned by NewProcessor for unusable settings.
var ErrInvalidConfig = errors.New("invalid router config")

// Config holds processor configuration
type Config struct {
	Layout           audio.Layout
	SampleRate       int
	TransitionLength time.Duration // 0 = DefaultTransitionLength
}

func (c *Config) validate() error {
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.TransitionLength == 0 {
		c.TransitionLength = DefaultTransitionLength
	}
	if c.TransitionLength < 0 {
		return fmt.Errorf("%w: transition length must be positive, got %v", ErrInvalidConfig, c.TransitionLength)
	}
	return nil
}
