// Package gpio watches GPIO lines that carry gesture interrupts.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// LineEvent is an edge observed on a watched line.
type LineEvent struct {
	Offset int
	Active bool // true on the edge into the active level
	Time   time.Time
}

// Line is a watched line. Close stops delivering events for it.
type Line interface {
	Close() error
}

// Watcher requests lines and delivers their edges to a handler.
// Handlers may run on a goroutine owned by the watcher.
type Watcher interface {
	// Watch starts edge detection on the line at offset.
	Watch(offset int, handler func(LineEvent)) (Line, error)

	// Close releases the chip.
	Close() error
}

// Default line offsets (BCM numbering) for the sensor hub interrupt lines.
const (
	DefaultLineCamera    = 17
	DefaultLineFlatUp    = 27
	DefaultLineStow      = 22
	DefaultLineIRWake    = 23
	DefaultLineIRSilence = 24
)
