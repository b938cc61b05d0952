//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealWatcher watches lines on a Linux GPIO character device.
type RealWatcher struct {
	chip      *gpiocdev.Chip
	debounce  time.Duration
	activeLow bool
}

// NewRealWatcher opens the named chip (e.g. "gpiochip0").
// A zero debounce disables kernel debouncing.
func NewRealWatcher(chipName string, debounce time.Duration, activeLow bool) (*RealWatcher, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &RealWatcher{
		chip:      chip,
		debounce:  debounce,
		activeLow: activeLow,
	}, nil
}

// Watch requests the line as an input with both-edge detection.
func (w *RealWatcher) Watch(offset int, handler func(LineEvent)) (Line, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			handler(LineEvent{
				Offset: evt.Offset,
				Active: evt.Type == gpiocdev.LineEventRisingEdge,
				Time:   time.Now(),
			})
		}),
	}
	if w.activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	if w.debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(w.debounce))
	}

	line, err := w.chip.RequestLine(offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request line %d: %w", offset, err)
	}
	return &realLine{line: line}, nil
}

// Close releases the chip. Lines still open keep their own file descriptors
// and must be closed by their owners.
func (w *RealWatcher) Close() error {
	if w.chip == nil {
		return nil
	}
	if err := w.chip.Close(); err != nil {
		return fmt.Errorf("close chip: %w", err)
	}
	return nil
}

type realLine struct {
	line *gpiocdev.Line
}

// Close reconfigures the line as a plain input before releasing it so the
// pin is left without edge detection.
func (l *realLine) Close() error {
	var errs []error
	if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithoutEdges); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
	}
	if err := l.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
