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

import "github.com/lkrlang/lkr/value"

// RegisterGlobals defines the channel/task globals a compiled module can
// call directly (the compiler only special-cases `spawn`/`await` as
// expression forms, per compiler/expr.go; every other concurrency verb is
// an ordinary named-global call, registered here the way
// scm/scheduler.go's init_scheduler and scm/sync.go's init_sync register
// their builtins into Globalenv once at startup).
func (rt *Runtime) RegisterGlobals(ctx *value.VmContext) {
	ctx.DefineGlobal("newChannel", value.NewGoFunction(rt.newChannelBuiltin))
	ctx.DefineGlobal("try_send", value.NewGoFunction(rt.trySendBuiltin))
	ctx.DefineGlobal("send", value.NewGoFunction(rt.sendBuiltin))
	ctx.DefineGlobal("try_recv", value.NewGoFunction(rt.tryRecvBuiltin))
	ctx.DefineGlobal("recv", value.NewGoFunction(rt.recvBuiltin))
	ctx.DefineGlobal("close", value.NewGoFunction(rt.closeBuiltin))
	ctx.DefineGlobal("select$block", value.NewGoFunction(rt.selectBlockBuiltin))
	ctx.DefineGlobal("join", value.NewGoFunction(rt.joinBuiltin))
	ctx.DefineGlobal("cancel", value.NewGoFunction(rt.cancelBuiltin))
}

func asValueError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*value.Error); ok {
		return err
	}
	return value.NewError(value.ErrRuntimeProtocol, "%v", err)
}

// newChannelBuiltin(capacity, innerType): capacity is Nil for unbounded or
// an Int for bounded; innerType is an optional descriptive string (spec
// §3.1's ChannelHandle.inner_type, purely cosmetic/diagnostic).
func (rt *Runtime) newChannelBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	var capacity *int64
	if len(args) > 0 && !args[0].IsNil() {
		c := args[0].Int()
		capacity = &c
	}
	innerType := ""
	if len(args) > 1 {
		innerType = args[1].Str()
	}
	rt.mu.Lock()
	rt.nextChannelID++
	id := rt.nextChannelID
	rt.channels[id] = NewChannel(capacity)
	rt.mu.Unlock()
	return value.NewChannel(id, capacity, innerType), nil
}

func (rt *Runtime) trySendBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	if len(args) != 2 {
		return value.Nil, ctx.Raise(value.NewError(value.ErrRuntimeProtocol, "try_send expects (channel, value)"))
	}
	ch := rt.channelFromValue(args[0])
	if ch == nil {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "try_send expects a channel"))
	}
	ok, err := ch.TrySend(args[1])
	if err != nil {
		return value.Nil, ctx.Raise(asValueError(err).(*value.Error))
	}
	return value.NewBool(ok), nil
}

func (rt *Runtime) sendBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	if len(args) != 2 {
		return value.Nil, ctx.Raise(value.NewError(value.ErrRuntimeProtocol, "send expects (channel, value)"))
	}
	ch := rt.channelFromValue(args[0])
	if ch == nil {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "send expects a channel"))
	}
	ok, err := ch.Send(args[1])
	if err != nil {
		return value.Nil, ctx.Raise(asValueError(err).(*value.Error))
	}
	return value.NewBool(ok), nil
}

// tryRecvBuiltin returns Nil for "would block", or a 2-element list
// [hasValue bool, value] otherwise (spec §4.4.2's try_recv Option/Result
// collapsed into one script-visible shape: Nil is the "None" case, the list
// distinguishes "Some((true, v))" from "Some((false, Nil))").
func (rt *Runtime) tryRecvBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	if len(args) != 1 {
		return value.Nil, ctx.Raise(value.NewError(value.ErrRuntimeProtocol, "try_recv expects (channel)"))
	}
	ch := rt.channelFromValue(args[0])
	if ch == nil {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "try_recv expects a channel"))
	}
	v, status, err := ch.TryRecv()
	if err != nil {
		return value.Nil, ctx.Raise(asValueError(err).(*value.Error))
	}
	switch status {
	case RecvValue:
		return value.NewList([]value.V{value.NewBool(true), v}), nil
	case RecvClosed:
		return value.NewList([]value.V{value.NewBool(false), value.Nil}), nil
	default:
		return value.Nil, nil
	}
}

func (rt *Runtime) recvBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	if len(args) != 1 {
		return value.Nil, ctx.Raise(value.NewError(value.ErrRuntimeProtocol, "recv expects (channel)"))
	}
	ch := rt.channelFromValue(args[0])
	if ch == nil {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "recv expects a channel"))
	}
	v, hasMore, err := ch.Recv()
	if err != nil {
		return value.Nil, ctx.Raise(asValueError(err).(*value.Error))
	}
	return value.NewList([]value.V{value.NewBool(hasMore), v}), nil
}

func (rt *Runtime) closeBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	if len(args) != 1 {
		return value.Nil, ctx.Raise(value.NewError(value.ErrRuntimeProtocol, "close expects (channel)"))
	}
	ch := rt.channelFromValue(args[0])
	if ch == nil {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "close expects a channel"))
	}
	ch.Close()
	return value.Nil, nil
}

func (rt *Runtime) selectBlockBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	if len(args) != 5 {
		return value.Nil, ctx.Raise(value.NewError(value.ErrRuntimeProtocol, "select$block expects 5 arguments"))
	}
	res, err := rt.SelectBlock(args[0].List(), args[1].List(), args[2].List(), args[3].List(), args[4].Truthy())
	if err != nil {
		return value.Nil, ctx.Raise(asValueError(err).(*value.Error))
	}
	return res, nil
}

func (rt *Runtime) joinBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	if len(args) != 1 {
		return value.Nil, ctx.Raise(value.NewError(value.ErrRuntimeProtocol, "join expects (task)"))
	}
	v, err := rt.Join(args[0])
	if err != nil {
		return value.Nil, ctx.Raise(asValueError(err).(*value.Error))
	}
	return v, nil
}

func (rt *Runtime) cancelBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	if len(args) != 1 || args[0].Kind() != value.KindTask {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "cancel expects a task"))
	}
	rt.Cancel(args[0])
	return value.Nil, nil
}
