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

// SelectBlock implements select$block (spec §4.4.3): four parallel lists
// (types, channels, values, guards) plus hasDefault. Returns
// [isDefault bool, caseIndex int, payload] (caseIndex -1 for the default
// case). Go has no exact analogue of Rust's select_all race over arbitrary
// futures, so the await phase (step 4) is built from the same primitive
// scm/sync.go's "mutex" builtin uses for serialization — poll under a lock,
// then sleep until *something* changes — generalized here into "attempt the
// non-blocking fast path across every guarded arm; if none is ready, wait
// for any participating channel's wake signal and retry". Because the only
// state-mutating step is the atomic TrySend/TryRecv attempt itself, looping
// like this can never double-consume a message even though several arms are
// watched at once.
func (rt *Runtime) SelectBlock(types, channels, values, guards []value.V, hasDefault bool) (value.V, error) {
	n := len(types)
	arms := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if i < len(guards) && !guards[i].Truthy() {
			continue
		}
		arms = append(arms, i)
	}

	attempt := func() (value.V, bool, error) {
		for _, i := range arms {
			ch := rt.channelFromValue(channels[i])
			if ch == nil {
				return value.Nil, false, value.NewError(value.ErrType, "select: arm %d is not a channel", i)
			}
			switch types[i].Str() {
			case "recv":
				v, status, err := ch.TryRecv()
				if err != nil {
					return value.Nil, false, err
				}
				switch status {
				case RecvValue:
					return selectResult(false, int64(i), value.NewList([]value.V{value.NewBool(true), v})), true, nil
				case RecvClosed:
					return selectResult(false, int64(i), value.NewList([]value.V{value.NewBool(false), value.Nil})), true, nil
				}
			case "send":
				ok, err := ch.TrySend(values[i])
				if err != nil {
					return value.Nil, false, err
				}
				if ok {
					return selectResult(false, int64(i), value.NewBool(true)), true, nil
				}
			default:
				return value.Nil, false, value.NewError(value.ErrType, "select: arm %d has unknown type %q", i, types[i].Str())
			}
		}
		return value.Nil, false, nil
	}

	if res, ready, err := attempt(); err != nil {
		return value.Nil, err
	} else if ready {
		return res, nil
	}

	if hasDefault {
		return selectResult(true, -1, value.Nil), nil
	}

	anyWake := make(chan struct{}, 1)
	arm := func() {
		for _, i := range arms {
			ch := rt.channelFromValue(channels[i])
			wake := ch.waitChan()
			go func(wake chan struct{}) {
				<-wake
				select {
				case anyWake <- struct{}{}:
				default:
				}
			}(wake)
		}
	}
	arm()
	for {
		<-anyWake
		if res, ready, err := attempt(); err != nil {
			return value.Nil, err
		} else if ready {
			return res, nil
		}
		// another select won the race on the same wake; re-arm and retry
		arm()
	}
}

func selectResult(isDefault bool, idx int64, payload value.V) value.V {
	return value.NewList([]value.V{value.NewBool(isDefault), value.NewInt(idx), payload})
}
