package reactor

import (
	"container/heap"
	"sync/atomic"
	"time"
)

// TimerQueue dispatches callbacks at or after a specified time, optionally
// repeating, backed by one kernel timer descriptor armed for the earliest
// pending expiration. All operations besides AddTimer/Cancel (which may be
// called from any goroutine) run on the owning Loop.
type TimerQueue struct {
	loop    *Loop
	fd      int
	channel *Channel
	logger  *Logger

	heap   timerHeap
	active map[timerSeq]*timerEntry

	callingExpired  bool
	cancelingTimers map[timerSeq]bool

	// nextSeq is incremented atomically because AddTimer may be called
	// from any goroutine, not just the owning loop.
	nextSeq atomic.Uint64
}

func newTimerQueue(loop *Loop, logger *Logger) (*TimerQueue, error) {
	fd, err := createTimerFd()
	if err != nil {
		return nil, err
	}
	tq := &TimerQueue{
		loop:            loop,
		fd:              fd,
		logger:          logger,
		active:          make(map[timerSeq]*timerEntry),
		cancelingTimers: make(map[timerSeq]bool),
	}
	tq.channel = newChannel(loop, fd)
	tq.channel.SetReadCallback(tq.handleRead)
	tq.channel.EnableReading()
	return tq, nil
}

// AddTimer posts a construction task to the owning loop and returns a
// stable identifier usable with Cancel.
func (tq *TimerQueue) AddTimer(cb func(), when time.Time, interval time.Duration) TimerID {
	entry := &timerEntry{
		expiration: when,
		callback:   cb,
		interval:   interval,
		seq:        timerSeq(tq.nextSeq.Add(1)),
		index:      -1,
	}
	tq.loop.RunInLoop(func() {
		tq.addTimerInLoop(entry)
	})
	return TimerID{seq: entry.seq}
}

// Cancel posts a cancellation task to the owning loop.
func (tq *TimerQueue) Cancel(id TimerID) {
	tq.loop.RunInLoop(func() {
		tq.cancelInLoop(id)
	})
}

func (tq *TimerQueue) addTimerInLoop(entry *timerEntry) {
	earliestChanged := len(tq.heap) == 0 || entry.expiration.Before(tq.heap[0].expiration)
	heap.Push(&tq.heap, entry)
	tq.active[entry.seq] = entry
	if earliestChanged {
		if err := resetTimerFd(tq.fd, entry.expiration); err != nil {
			tq.logger.Err().Err(err).Log(`timer descriptor arm failed`)
		}
	}
}

func (tq *TimerQueue) cancelInLoop(id TimerID) {
	entry, ok := tq.active[id.seq]
	if !ok {
		return
	}
	delete(tq.active, id.seq)
	if entry.index >= 0 {
		heap.Remove(&tq.heap, entry.index)
	}
	if tq.callingExpired {
		// the callback for this timer is on the stack right now; suppress
		// its re-insertion in reset without interrupting the current call.
		tq.cancelingTimers[id.seq] = true
	}
}

func (tq *TimerQueue) handleRead(receiveTime time.Time) {
	if err := readTimerFd(tq.fd); err != nil {
		tq.logger.Err().Err(err).Log(`timer descriptor read error`)
	}

	expired := tq.getExpired(receiveTime)

	tq.callingExpired = true
	for _, e := range expired {
		e.callback()
	}
	tq.callingExpired = false

	tq.reset(expired, receiveTime)
}

func (tq *TimerQueue) getExpired(now time.Time) []*timerEntry {
	var expired []*timerEntry
	for len(tq.heap) > 0 && !tq.heap[0].expiration.After(now) {
		e := heap.Pop(&tq.heap).(*timerEntry)
		expired = append(expired, e)
	}
	return expired
}

func (tq *TimerQueue) reset(expired []*timerEntry, now time.Time) {
	for _, e := range expired {
		if e.interval > 0 && !tq.cancelingTimers[e.seq] {
			e.expiration = now.Add(e.interval)
			heap.Push(&tq.heap, e)
		} else {
			delete(tq.active, e.seq)
		}
		delete(tq.cancelingTimers, e.seq)
	}
	if len(tq.heap) > 0 {
		if err := resetTimerFd(tq.fd, tq.heap[0].expiration); err != nil {
			tq.logger.Err().Err(err).Log(`timer descriptor re-arm failed`)
		}
	}
}

func (tq *TimerQueue) close() error {
	tq.channel.DisableAll()
	tq.channel.Remove()
	return closeTimerFd(tq.fd)
}
