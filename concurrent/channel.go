/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package concurrent

import (
	"sync"

	"github.com/lkrlang/lkr/value"
)

// RecvStatus classifies the outcome of a non-blocking receive attempt (spec
// §4.4.2's try_recv: "None when would block; Some((true, v)) with a value;
// Some((false, Nil)) when closed-and-empty").
type RecvStatus int

const (
	RecvBlocked RecvStatus = iota
	RecvValue
	RecvClosed
)

// Channel is the runtime-private object behind a script-visible
// value.ChannelHandle, bounded (Capacity != nil) or unbounded (spec
// §4.4.2). Grounded on scm/sync.go's "mutex" builtin — serialize access via
// a single lock rather than a native Go channel — generalized from a
// single-slot serialization primitive to a FIFO buffer with its own
// backpressure and close semantics.
type Channel struct {
	mu       sync.Mutex
	buf      []value.V
	capacity *int64 // nil = unbounded
	closed   bool
	wake     chan struct{} // closed and replaced on every state change

	// recvMu is the "async mutex" spec §4.4.2 requires around the receiver
	// half: "only one awaiting receiver holds it at a time; try_recv
	// returns None when the mutex is contended."
	recvMu sync.Mutex
}

// NewChannel constructs a Channel; capacity nil means unbounded.
func NewChannel(capacity *int64) *Channel {
	return &Channel{capacity: capacity, wake: make(chan struct{})}
}

// waitChan returns the current wake generation; callers select/receive on
// it to be notified of the next state change without holding c.mu.
func (c *Channel) waitChan() chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wake
}

// broadcastLocked wakes every current waiter; c.mu must be held.
func (c *Channel) broadcastLocked() {
	close(c.wake)
	c.wake = make(chan struct{})
}

// TrySend implements try_send (spec §4.4.2): Ok(true) on success, Ok(false)
// when bounded-full, Err when closed.
func (c *Channel) TrySend(v value.V) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, value.NewError(value.ErrRuntimeProtocol, "send on a closed channel")
	}
	if c.capacity != nil && int64(len(c.buf)) >= *c.capacity {
		return false, nil
	}
	c.buf = append(c.buf, v)
	c.broadcastLocked()
	return true, nil
}

// Send implements the blocking send (spec §4.4.2): await until there is
// room; Ok(false) when the channel closes mid-operation. The calling VM's
// thread blocks here (spec §5.1's suspension-point list).
func (c *Channel) Send(v value.V) (bool, error) {
	for {
		ok, err := c.TrySend(v)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return false, nil
		}
		wake := c.wake
		c.mu.Unlock()
		<-wake
	}
}

// tryTakeLocked assumes c.mu is held and either takes the head of buf,
// reports closed-and-empty, or reports would-block.
func (c *Channel) tryTakeLocked() (value.V, RecvStatus) {
	if len(c.buf) > 0 {
		v := c.buf[0]
		c.buf = c.buf[1:]
		c.broadcastLocked()
		return v, RecvValue
	}
	if c.closed {
		return value.Nil, RecvClosed
	}
	return value.Nil, RecvBlocked
}

// TryRecv implements try_recv (spec §4.4.2), including the "only one
// awaiting receiver" contention rule.
func (c *Channel) TryRecv() (value.V, RecvStatus, error) {
	if !c.recvMu.TryLock() {
		return value.Nil, RecvBlocked, nil
	}
	defer c.recvMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	v, status := c.tryTakeLocked()
	return v, status, nil
}

// Recv implements the blocking recv (spec §4.4.2): blocks; returns
// (false, Nil) when closed-empty. Holds recvMu for the whole wait so a
// concurrent TryRecv sees it as contended, matching the single-awaiting-
// receiver rule.
func (c *Channel) Recv() (value.V, bool, error) {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()
	for {
		c.mu.Lock()
		v, status := c.tryTakeLocked()
		wake := c.wake
		c.mu.Unlock()
		switch status {
		case RecvValue:
			return v, true, nil
		case RecvClosed:
			return value.Nil, false, nil
		}
		<-wake
	}
}

// Close flips the shared closed flag (spec §4.4.2): subsequent non-blocking
// operations observe it and deliver close semantics.
func (c *Channel) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		c.broadcastLocked()
	}
	c.mu.Unlock()
}
