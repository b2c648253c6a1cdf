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
package value

import "sync"

// ModuleResolver provides the surrounding global/builtin environment a
// closure's Global captures and LoadGlobal resolve against (spec §3.4).
// Implemented by the compiler's module loader in production and by a flat
// map in tests, following the teacher's storage.Database "resolve by name"
// indirection (storage/database.go).
type ModuleResolver interface {
	Get(name string) (V, bool)
	GetBuiltin(name string) (V, bool)
}

// TypeSnapshot is a read-only view of whatever the (out-of-scope) type
// checker computed before handing off to the VM; the VM never mutates it and
// treats a nil snapshot as "no type information available".
type TypeSnapshot interface {
	LookupDeclaredType(name string) (string, bool)
}

// VmContext carries everything a running frame needs beyond its own register
// window (spec §3.4): the writable global lexical frame, the module
// resolver, a call-stack used only for diagnostics, and an optional
// read-only type snapshot.
type VmContext struct {
	mu      sync.RWMutex
	globals map[string]V

	Resolver ModuleResolver
	Types    TypeSnapshot

	callStack []Frame
}

func NewVmContext(resolver ModuleResolver) *VmContext {
	return &VmContext{
		globals:  make(map[string]V),
		Resolver: resolver,
	}
}

// Clone produces a fresh VmContext for a spawned task (spec §4.4.1: "clone
// the invoking VmContext"). The global map is snapshotted by value rather
// than shared, matching §5.3's "globals: single-writer, single-reader by
// construction (only one VM executes a given context at a time)" — a
// spawned task gets its own VM and must not contend on the parent's
// globals map. Resolver and Types are shared (read-only, spec §3.4).
func (c *VmContext) Clone() *VmContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := &VmContext{
		globals:  make(map[string]V, len(c.globals)),
		Resolver: c.Resolver,
		Types:    c.Types,
	}
	for k, v := range c.globals {
		out.globals[k] = v
	}
	return out
}

func (c *VmContext) LoadGlobal(name string) (V, bool) {
	c.mu.RLock()
	v, ok := c.globals[name]
	c.mu.RUnlock()
	if ok {
		return v, true
	}
	if c.Resolver != nil {
		if v, ok := c.Resolver.Get(name); ok {
			return v, true
		}
		return c.Resolver.GetBuiltin(name)
	}
	return Nil, false
}

func (c *VmContext) DefineGlobal(name string, v V) {
	c.mu.Lock()
	c.globals[name] = v
	c.mu.Unlock()
}

// PushFrame records a call-stack entry for diagnostics (spec §3.4: "push/pop
// occurs on call/return boundaries and on inlined frames identically").
func (c *VmContext) PushFrame(functionName, location string) {
	c.callStack = append(c.callStack, Frame{
		FunctionName: functionName,
		Location:     location,
		Depth:        len(c.callStack),
	})
}

func (c *VmContext) PopFrame() {
	if len(c.callStack) > 0 {
		c.callStack = c.callStack[:len(c.callStack)-1]
	}
}

// CallStackReport returns the current call stack, innermost frame first
// (spec §6.4: "ordering proceeds from innermost to outermost").
func (c *VmContext) CallStackReport() []Frame {
	out := make([]Frame, len(c.callStack))
	for i, f := range c.callStack {
		out[len(c.callStack)-1-i] = f
	}
	return out
}

// Raise attaches the current call-stack report to err, matching the outer
// exec_with driver's contract (spec §4.2.5).
func (c *VmContext) Raise(err *Error) *Error {
	return err.WithCallStack(c.CallStackReport())
}
