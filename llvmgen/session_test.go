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

package llvmgen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lkrlang/lkr/value"
)

func newTestSession() (*RuntimeABI, *CompileSession) {
	abi := newTestABI()
	return abi, NewCompileSession(abi)
}

func TestCompileSessionBeginResets(t *testing.T) {
	abi, s := newTestSession()
	s.RegisterSearchPath(ptrLen("/tmp/modules"))
	namePtr, nameLen, srcPtr, srcLen := bundledArgs("m", "export x = 1")
	s.RegisterBundledModule(namePtr, nameLen, srcPtr, srcLen)
	jp, jl := ptrLen(`[{"name":"m"}]`)
	s.RegisterImports(jp, jl)

	s.Begin()

	if len(s.searchPaths) != 0 || len(s.bundledModules) != 0 || len(s.pendingImports) != 0 {
		t.Fatalf("Begin did not reset session state: %+v", s)
	}
	_ = abi
}

func bundledArgs(name, src string) (int64, int64, int64, int64) {
	np, nl := ptrLen(name)
	sp, sl := ptrLen(src)
	return np, nl, sp, sl
}

func TestCompileSessionRegisterSearchPathAndBundledModule(t *testing.T) {
	_, s := newTestSession()
	s.RegisterSearchPath(ptrLen("/usr/local/lkr"))
	if len(s.searchPaths) != 1 || s.searchPaths[0] != "/usr/local/lkr" {
		t.Fatalf("search paths = %v", s.searchPaths)
	}
	np, nl, sp, sl := bundledArgs("strings", "export len = ...")
	s.RegisterBundledModule(np, nl, sp, sl)
	if _, ok := s.bundledModules["strings"]; !ok {
		t.Fatalf("bundled module \"strings\" was not registered")
	}
}

func TestCompileSessionRegisterImportsMalformedJSON(t *testing.T) {
	abi, s := newTestSession()
	jp, jl := ptrLen(`not json`)
	result := s.RegisterImports(jp, jl)
	if result != NilValue {
		t.Fatalf("RegisterImports with malformed JSON = %d, want NilValue", result)
	}
	if abi.LastError() == nil {
		t.Fatalf("RegisterImports with malformed JSON should set LastError")
	}
}

func TestApplyImportsPrefersResolverGlobalOverBundled(t *testing.T) {
	abi, s := newTestSession()
	np, nl, sp, sl := bundledArgs("math", "export pi = 3")
	s.RegisterBundledModule(np, nl, sp, sl)

	wantNs := value.NewObject("math", map[string]value.V{"pi": value.NewFloat(3.14)})
	abi.ctx.DefineGlobal("math", wantNs)

	jp, jl := ptrLen(`[{"name":"math"}]`)
	s.RegisterImports(jp, jl)
	if ok := s.ApplyImports(); ok != EncodeBool(true) {
		t.Fatalf("ApplyImports failed: %v", abi.LastError())
	}

	got, ok := abi.ctx.LoadGlobal("math")
	if !ok {
		t.Fatalf("ApplyImports did not bind alias \"math\"")
	}
	if !got.IsObject() || got.ObjectFields()["pi"].Float() != 3.14 {
		t.Fatalf("alias \"math\" resolved to %v, want the resolver-visible global", got)
	}
}

func TestApplyImportsFallsBackToBundledModule(t *testing.T) {
	abi, s := newTestSession()
	np, nl, sp, sl := bundledArgs("collections", "export List = ...")
	s.RegisterBundledModule(np, nl, sp, sl)

	jp, jl := ptrLen(`[{"name":"collections","alias":"coll"}]`)
	s.RegisterImports(jp, jl)
	if ok := s.ApplyImports(); ok != EncodeBool(true) {
		t.Fatalf("ApplyImports failed: %v", abi.LastError())
	}
	if _, ok := abi.ctx.LoadGlobal("coll"); !ok {
		t.Fatalf("ApplyImports did not bind the explicit alias \"coll\"")
	}
}

func TestApplyImportsFallsBackToSearchPath(t *testing.T) {
	abi, s := newTestSession()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "util.lkr"), []byte("export f = ..."), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	pp, pl := ptrLen(dir)
	s.RegisterSearchPath(pp, pl)

	jp, jl := ptrLen(`[{"name":"util"}]`)
	s.RegisterImports(jp, jl)
	if ok := s.ApplyImports(); ok != EncodeBool(true) {
		t.Fatalf("ApplyImports failed to resolve via search path: %v", abi.LastError())
	}
	if _, ok := abi.ctx.LoadGlobal("util"); !ok {
		t.Fatalf("ApplyImports did not bind alias \"util\" found via search path")
	}
}

func TestApplyImportsNotFoundFails(t *testing.T) {
	abi, s := newTestSession()
	jp, jl := ptrLen(`[{"name":"nonexistent"}]`)
	s.RegisterImports(jp, jl)
	if ok := s.ApplyImports(); ok != NilValue {
		t.Fatalf("ApplyImports of an unresolvable module should fail, got %d", ok)
	}
	if abi.LastError() == nil {
		t.Fatalf("ApplyImports of an unresolvable module should set LastError")
	}
}
