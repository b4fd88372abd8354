// Package overlay tracks how many modal views want the control toolbar
// hidden. Views may stack, so hiding is reference counted and showing only
// happens once the count is back at zero.
package overlay

import "sync/atomic"

// HideCounter is a saturating hide reference count.
//
// Thread-safety: all methods are safe for concurrent use.
type HideCounter struct {
	count       atomic.Int32
	pendingShow atomic.Bool
}

// Hide registers one more view that needs the toolbar hidden. It returns
// the new count.
func (c *HideCounter) Hide() int {
	c.pendingShow.Store(false)
	return int(c.count.Add(1))
}

// Show releases one hide. The decrement never goes below zero. It reports
// whether the toolbar should be shown now; when other views still hold it
// hidden, the show is remembered for TakePendingShow.
func (c *HideCounter) Show() bool {
	for {
		cur := c.count.Load()
		if cur <= 0 {
			break
		}
		if c.count.CompareAndSwap(cur, cur-1) {
			break
		}
	}
	if c.count.Load() > 0 {
		c.pendingShow.Store(true)
		return false
	}
	return true
}

// ForceShow clears every hide, for use when the count is known to have
// drifted. It always reports that the toolbar should be shown.
func (c *HideCounter) ForceShow() bool {
	c.count.Store(0)
	c.pendingShow.Store(false)
	return true
}

// TakePendingShow reports and clears a show that was deferred while hidden.
// It only fires once the count has reached zero.
func (c *HideCounter) TakePendingShow() bool {
	if c.count.Load() > 0 {
		return false
	}
	return c.pendingShow.CompareAndSwap(true, false)
}

// Hidden reports whether any view still holds the toolbar hidden.
func (c *HideCounter) Hidden() bool {
	return c.count.Load() > 0
}

// Count returns the current hide count.
func (c *HideCounter) Count() int {
	return int(c.count.Load())
}
