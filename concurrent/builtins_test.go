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

	"github.com/lkrlang/lkr/value"
)

func TestRegisterGlobalsExposesEveryConcurrencyVerb(t *testing.T) {
	rt := NewRuntime()
	ctx := value.NewVmContext(nil)
	rt.RegisterGlobals(ctx)

	names := []string{
		"newChannel", "try_send", "send", "try_recv", "recv",
		"close", "select$block", "join", "cancel",
	}
	for _, name := range names {
		if _, ok := ctx.LoadGlobal(name); !ok {
			t.Errorf("expected global %q to be registered", name)
		}
	}
}

func TestChannelBuiltinsRoundTrip(t *testing.T) {
	rt := NewRuntime()
	ctx := value.NewVmContext(nil)
	rt.RegisterGlobals(ctx)

	newChannel, _ := ctx.LoadGlobal("newChannel")
	chVal, err := newChannel.GoFunction()([]value.V{value.NewInt(1), value.NewStr("int")}, ctx)
	if err != nil {
		t.Fatalf("newChannel: %v", err)
	}
	if chVal.Kind() != value.KindChannel {
		t.Fatalf("expected a channel value, got kind %v", chVal.Kind())
	}

	trySend, _ := ctx.LoadGlobal("try_send")
	result, err := trySend.GoFunction()([]value.V{chVal, value.NewInt(9)}, ctx)
	if err != nil || !result.Bool() {
		t.Fatalf("try_send: result=%v err=%v", result, err)
	}

	tryRecv, _ := ctx.LoadGlobal("try_recv")
	result, err = tryRecv.GoFunction()([]value.V{chVal}, ctx)
	if err != nil {
		t.Fatalf("try_recv: %v", err)
	}
	pair := result.List()
	if !pair[0].Bool() || pair[1].Int() != 9 {
		t.Fatalf("expected (true, 9), got %v", pair)
	}

	closeFn, _ := ctx.LoadGlobal("close")
	if _, err := closeFn.GoFunction()([]value.V{chVal}, ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	result, err = tryRecv.GoFunction()([]value.V{chVal}, ctx)
	if err != nil {
		t.Fatalf("try_recv after close: %v", err)
	}
	pair = result.List()
	if pair[0].Bool() {
		t.Fatalf("expected the closed-and-empty pair (false, Nil), got %v", pair)
	}
}

func TestCloseBuiltinRejectsNonChannel(t *testing.T) {
	rt := NewRuntime()
	ctx := value.NewVmContext(nil)
	rt.RegisterGlobals(ctx)

	closeFn, _ := ctx.LoadGlobal("close")
	_, err := closeFn.GoFunction()([]value.V{value.NewInt(1)}, ctx)
	if err == nil {
		t.Fatalf("expected close to reject a non-channel argument")
	}
}

func TestJoinAndCancelBuiltinsRoundTrip(t *testing.T) {
	rt := NewRuntime()
	ctx := value.NewVmContext(nil)
	rt.RegisterGlobals(ctx)

	task, err := rt.Spawn(ctx, closureReturning(value.NewInt(42)))
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	joinFn, _ := ctx.LoadGlobal("join")
	result, err := joinFn.GoFunction()([]value.V{task}, ctx)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if result.Int() != 42 {
		t.Fatalf("expected 42, got %v", result)
	}

	cancelFn, _ := ctx.LoadGlobal("cancel")
	if _, err := cancelFn.GoFunction()([]value.V{task}, ctx); err != nil {
		t.Fatalf("cancel on an already-finished task should be a no-op, got %v", err)
	}
}
