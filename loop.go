package reactor

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Loop is a single-threaded reactor: poll, dispatch ready Channels, then
// run any tasks queued from other goroutines. A Loop owns exactly one
// Poller, one TimerQueue, and one wakeup channel, and it is the sole
// place their state is mutated. At most one Loop may run per OS thread;
// Run pins its goroutine with runtime.LockOSThread for exactly this
// reason.
type Loop struct {
	logger *Logger

	poller     Poller
	timerQueue *TimerQueue

	wakeupReadFd, wakeupWriteFd int
	wakeupChannel               *Channel

	mu           sync.Mutex
	pendingFuncs []func()

	looping       atomic.Bool
	quit          atomic.Bool
	eventHandling bool
	callingQueued bool

	iteration      uint64
	pollReturnTime time.Time

	activeChannels       []*Channel
	currentActiveChannel *Channel

	threadID atomic.Int64

	userContext any
}

// NewLoop constructs a Loop and its Poller, wakeup descriptor, and Timer
// Queue, but does not start it; call Run on the goroutine meant to own it.
func NewLoop(logger *Logger) (*Loop, error) {
	if logger == nil {
		logger = discardLogger
	}
	l := &Loop{logger: logger}
	l.threadID.Store(-1)

	poller, err := newPoller(logger)
	if err != nil {
		return nil, err
	}
	l.poller = poller

	rfd, wfd, err := createWakeFd()
	if err != nil {
		_ = poller.Close()
		return nil, err
	}
	l.wakeupReadFd, l.wakeupWriteFd = rfd, wfd
	l.wakeupChannel = newChannel(l, rfd)
	l.wakeupChannel.SetReadCallback(l.handleWakeupRead)
	l.wakeupChannel.EnableReading()

	tq, err := newTimerQueue(l, logger)
	if err != nil {
		_ = closeWakeFd(rfd, wfd)
		_ = poller.Close()
		return nil, err
	}
	l.timerQueue = tq

	return l, nil
}

// IsInLoopGoroutine reports whether the calling goroutine is running on
// this Loop's owning OS thread, or whether the Loop has not started yet
// (in which case every goroutine is considered "in loop", matching the
// construction-time Channel setup above).
func (l *Loop) IsInLoopGoroutine() bool {
	owner := l.threadID.Load()
	return owner == -1 || owner == currentThreadID()
}

func (l *Loop) assertInLoopGoroutine(what string) {
	if !l.IsInLoopGoroutine() {
		l.logger.Fatal().
			Err(ErrWrongThread).
			Int64(`owner`, l.threadID.Load()).
			Int64(`caller`, currentThreadID()).
			Str(`op`, what).
			Log(`reactor: method called from outside the owning loop thread`)
	}
}

// Run executes the reactor loop on the calling goroutine until Quit is
// called. It returns ErrLoopAlreadyRunning if called concurrently on a
// Loop that is already running.
func (l *Loop) Run() error {
	if !l.looping.CompareAndSwap(false, true) {
		return ErrLoopAlreadyRunning
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tid := currentThreadID()
	if !registerLoopForThread(tid, l) {
		l.logger.Fatal().Int64(`thread`, tid).Log(`reactor: a second loop was created on one OS thread`)
	}
	l.threadID.Store(tid)
	defer func() {
		unregisterLoopForThread(tid)
		l.threadID.Store(-1)
		l.looping.Store(false)
	}()

	l.quit.Store(false)

	for !l.quit.Load() {
		l.activeChannels = l.activeChannels[:0]
		pollReturnTime, err := l.poller.Poll(pollTimeout, &l.activeChannels)
		if err != nil {
			l.logger.Err().Err(err).Log(`reactor: poller error`)
			continue
		}
		l.pollReturnTime = pollReturnTime
		l.iteration++

		l.eventHandling = true
		for _, ch := range l.activeChannels {
			l.currentActiveChannel = ch
			ch.HandleEvent(pollReturnTime)
		}
		l.currentActiveChannel = nil
		l.eventHandling = false

		l.doPendingFunctors()
	}

	return nil
}

// Quit is thread-safe. It requests the loop stop after its current
// iteration; if called from another goroutine it also wakes the loop out
// of a blocking poll.
func (l *Loop) Quit() {
	l.quit.Store(true)
	if !l.IsInLoopGoroutine() {
		l.Wakeup()
	}
}

// RunInLoop invokes f immediately if called from the owning goroutine,
// otherwise it is equivalent to QueueInLoop.
func (l *Loop) RunInLoop(f func()) {
	if l.IsInLoopGoroutine() {
		f()
		return
	}
	l.QueueInLoop(f)
}

// QueueInLoop is thread-safe. It appends f to the pending task queue,
// waking the loop if the caller is not the owning goroutine, or if the
// loop is currently draining that same queue (so a task queued by a task
// is not stranded until the next poll).
func (l *Loop) QueueInLoop(f func()) {
	l.mu.Lock()
	l.pendingFuncs = append(l.pendingFuncs, f)
	callingQueued := l.callingQueued
	l.mu.Unlock()

	if !l.IsInLoopGoroutine() || callingQueued {
		l.Wakeup()
	}
}

// doPendingFunctors swaps the queued-task slice under the mutex into a
// local one, then runs it with the mutex released, so callback execution
// never blocks concurrent QueueInLoop callers and can itself re-queue.
func (l *Loop) doPendingFunctors() {
	l.mu.Lock()
	l.callingQueued = true
	funcs := l.pendingFuncs
	l.pendingFuncs = nil
	l.mu.Unlock()

	for _, f := range funcs {
		f()
	}

	l.callingQueued = false
}

// updateChannel synchronizes ch's interest mask with the Poller; it must
// be called on the owning goroutine.
func (l *Loop) updateChannel(ch *Channel) {
	l.assertInLoopGoroutine(`updateChannel`)
	l.poller.UpdateChannel(ch)
}

// removeChannel removes ch from the Poller; it must be called on the
// owning goroutine, and must not target a Channel currently being
// dispatched unless it is the current active Channel.
func (l *Loop) removeChannel(ch *Channel) {
	l.assertInLoopGoroutine(`removeChannel`)
	if !ch.events.IsNone() {
		l.logger.Fatal().Err(ErrChannelInterestNotEmpty).Int(`fd`, ch.fd).Log(`reactor: removeChannel precondition violated`)
	}
	if l.eventHandling && l.currentActiveChannel != ch {
		for _, c := range l.activeChannels {
			if c == ch {
				l.logger.Fatal().Int(`fd`, ch.fd).Log(`reactor: channel removed mid-dispatch while not the active channel`)
			}
		}
	}
	l.poller.RemoveChannel(ch)
}

// hasChannel reports whether ch is currently tracked by the Poller.
func (l *Loop) hasChannel(ch *Channel) bool {
	l.assertInLoopGoroutine(`hasChannel`)
	return l.poller.HasChannel(ch)
}

// RunAt schedules cb to run at or after when.
func (l *Loop) RunAt(when time.Time, cb func()) TimerID {
	return l.timerQueue.AddTimer(cb, when, 0)
}

// RunAfter schedules cb to run at or after delay from now.
func (l *Loop) RunAfter(delay time.Duration, cb func()) TimerID {
	return l.RunAt(time.Now().Add(delay), cb)
}

// RunEvery schedules cb to run repeatedly, starting after interval and
// then every interval thereafter, until cancelled.
func (l *Loop) RunEvery(interval time.Duration, cb func()) TimerID {
	return l.timerQueue.AddTimer(cb, time.Now().Add(interval), interval)
}

// CancelTimer cancels a previously scheduled timer.
func (l *Loop) CancelTimer(id TimerID) {
	l.timerQueue.Cancel(id)
}

// Wakeup forces the loop out of a blocking poll by writing to its counter
// descriptor.
func (l *Loop) Wakeup() {
	if err := writeWake(l.wakeupWriteFd); err != nil {
		l.logger.Err().Err(err).Log(`reactor: wakeup write failed`)
	}
}

func (l *Loop) handleWakeupRead(time.Time) {
	if err := drainWake(l.wakeupReadFd); err != nil {
		l.logger.Err().Err(err).Log(`reactor: wakeup drain failed`)
	}
}

// Iteration returns the number of poll cycles completed so far.
func (l *Loop) Iteration() uint64 { return l.iteration }

// PollReturnTime returns the timestamp captured when the most recent
// poll call woke up.
func (l *Loop) PollReturnTime() time.Time { return l.pollReturnTime }

// SetContext attaches arbitrary user state to the loop.
func (l *Loop) SetContext(v any) { l.userContext = v }

// Context returns the user state previously attached with SetContext.
func (l *Loop) Context() any { return l.userContext }

// Close releases the Loop's Poller, wakeup descriptor, and Timer Queue
// descriptor. Call only after Run has returned.
func (l *Loop) Close() error {
	var err error
	if e := l.timerQueue.close(); e != nil {
		err = e
	}
	l.wakeupChannel.DisableAll()
	l.wakeupChannel.Remove()
	if e := closeWakeFd(l.wakeupReadFd, l.wakeupWriteFd); e != nil {
		err = e
	}
	if e := l.poller.Close(); e != nil {
		err = e
	}
	return err
}

// NewChannel constructs a Channel for fd, owned by this Loop.
func (l *Loop) NewChannel(fd int) *Channel {
	return newChannel(l, fd)
}
