package engine

import "github.com/iamNilotpal/emberstore/internal/keyindex"

// reclaimItem is one entry waiting in the delayed reclamation queue. The
// queue is FIFO by deadline: every item uses the same delay, so deadlines
// are non-decreasing and a sweep can stop at the first non-expired item.
type reclaimItem struct {
	key      string
	entry    *keyindex.LiveEntry
	deadline int64
}

// enqueueReclaim appends entry to the tail of the reclamation queue with a
// deadline reclaimDelayMillis in the future, arming the timer if it is not
// already armed.
func (e *Engine) enqueueReclaim(key string, entry *keyindex.LiveEntry) {
	e.reclaimQueue = append(e.reclaimQueue, &reclaimItem{
		key:      key,
		entry:    entry,
		deadline: e.clock.NowMillis() + e.reclaimDelayMillis,
	})
	e.armTimer()
}

// removeFromQueueIfPresent drops entry from the queue if Delete reaches it
// before its deadline fires.
func (e *Engine) removeFromQueueIfPresent(entry *keyindex.LiveEntry) {
	for i, item := range e.reclaimQueue {
		if item.entry == entry {
			e.reclaimQueue = append(e.reclaimQueue[:i], e.reclaimQueue[i+1:]...)
			return
		}
	}
}

// armTimer schedules onTimerFired for the queue head's deadline, if the
// queue is non-empty and no timer is currently armed.
func (e *Engine) armTimer() {
	if e.timerArmed || len(e.reclaimQueue) == 0 {
		return
	}
	delay := e.reclaimQueue[0].deadline - e.clock.NowMillis()
	if delay < 0 {
		delay = 0
	}
	e.timerArmed = true
	e.timerHandle = e.clock.SetTimer(delay, e.onTimerFired)
}

// cancelTimer disarms the reclamation timer, if armed.
func (e *Engine) cancelTimer() {
	if !e.timerArmed {
		return
	}
	e.clock.ClearTimer(e.timerHandle)
	e.timerArmed = false
}

// onTimerFired is the timer callback: it drains expired reclamations,
// compacts if that opened a hole, and re-arms for whatever remains in the
// queue. Treated as a fresh top-level call; errors are logged rather than
// surfaced since there is no caller to return them to.
func (e *Engine) onTimerFired() {
	e.timerArmed = false
	if e.closed {
		return
	}

	openedHole, err := e.checkReclaim()
	if err != nil {
		e.logger.Errorw("reclamation sweep failed", "error", err)
		e.armTimer()
		return
	}
	if openedHole {
		if err := e.runCompactionLoop(); err != nil {
			e.logger.Errorw("post-reclamation compaction failed", "error", err)
		}
	}
	e.armTimer()
}

// checkReclaimLoop repeatedly runs checkReclaim followed by compaction
// until a sweep leaves no mid-file hole.
func (e *Engine) checkReclaimLoop() (bool, error) {
	any := false
	for {
		openedHole, err := e.checkReclaim()
		if err != nil {
			return any, err
		}
		if !openedHole {
			return any, nil
		}
		any = true
		if err := e.runCompactionLoop(); err != nil {
			return any, err
		}
	}
}

// checkReclaim drains every queue item whose deadline has passed, freeing
// its blocks and removing it from the key index, and reports whether doing
// so left a mid-file hole in either file.
func (e *Engine) checkReclaim() (openedHole bool, err error) {
	now := e.clock.NowMillis()

	var remaining []*reclaimItem
	for _, item := range e.reclaimQueue {
		if item.deadline > now {
			remaining = append(remaining, item)
			continue
		}
		if e.freeLiveEntry(item.entry) {
			openedHole = true
		}
		e.index.RemoveEntry(item.key, item.entry)
	}
	e.reclaimQueue = remaining

	if err := e.truncateIfShrunkFile(e.entriesFile, e.entriesDir, &e.entriesSize); err != nil {
		return openedHole, err
	}
	if err := e.truncateIfShrunkFile(e.dataFile, e.dataDir, &e.dataSize); err != nil {
		return openedHole, err
	}
	return openedHole, nil
}
