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
	"testing"
	"time"

	"github.com/lkrlang/lkr/value"
)

func TestChannelTrySendRecvBounded(t *testing.T) {
	capacity := int64(1)
	ch := NewChannel(&capacity)

	ok, err := ch.TrySend(value.NewInt(1))
	if err != nil || !ok {
		t.Fatalf("expected first try_send to succeed, got ok=%v err=%v", ok, err)
	}
	ok, err = ch.TrySend(value.NewInt(2))
	if err != nil || ok {
		t.Fatalf("expected second try_send on a full bounded channel to report false, got ok=%v err=%v", ok, err)
	}

	v, status, err := ch.TryRecv()
	if err != nil || status != RecvValue || v.Int() != 1 {
		t.Fatalf("expected (1, RecvValue), got (%v, %v, %v)", v, status, err)
	}
	_, status, err = ch.TryRecv()
	if err != nil || status != RecvBlocked {
		t.Fatalf("expected RecvBlocked on an empty channel, got (%v, %v)", status, err)
	}
}

func TestChannelUnboundedNeverRejectsSend(t *testing.T) {
	ch := NewChannel(nil)
	for i := 0; i < 100; i++ {
		ok, err := ch.TrySend(value.NewInt(int64(i)))
		if err != nil || !ok {
			t.Fatalf("unbounded try_send %d failed: ok=%v err=%v", i, ok, err)
		}
	}
}

func TestChannelCloseSemantics(t *testing.T) {
	ch := NewChannel(nil)
	ch.Close()

	_, err := ch.TrySend(value.NewInt(1))
	if err == nil {
		t.Fatalf("expected try_send on a closed channel to raise")
	}
	ok, err := ch.Send(value.NewInt(1))
	if err != nil || ok {
		t.Fatalf("expected send on a closed channel to report false with no error, got ok=%v err=%v", ok, err)
	}
	_, status, err := ch.TryRecv()
	if err != nil || status != RecvClosed {
		t.Fatalf("expected RecvClosed on a closed empty channel, got (%v, %v)", status, err)
	}
}

func TestChannelRecvBlocksUntilSend(t *testing.T) {
	ch := NewChannel(nil)
	result := make(chan value.V, 1)
	go func() {
		v, hasMore, err := ch.Recv()
		if err != nil || !hasMore {
			t.Errorf("expected (v, true, nil), got (%v, %v, %v)", v, hasMore, err)
		}
		result <- v
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-result:
		t.Fatalf("recv returned before any send happened")
	default:
	}

	if _, err := ch.TrySend(value.NewInt(42)); err != nil {
		t.Fatalf("try_send: %v", err)
	}

	select {
	case v := <-result:
		if v.Int() != 42 {
			t.Fatalf("expected 42, got %v", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("recv never woke up after send")
	}
}

func TestChannelTryRecvContendedWhileRecvBlocked(t *testing.T) {
	ch := NewChannel(nil)
	started := make(chan struct{})
	go func() {
		close(started)
		ch.Recv() //nolint:errcheck // intentionally blocks forever; channel is never sent to or closed
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	_, status, err := ch.TryRecv()
	if err != nil || status != RecvBlocked {
		t.Fatalf("expected try_recv to report RecvBlocked while a blocking recv holds the async mutex, got (%v, %v)", status, err)
	}
}
