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

// cmd/lkr is a thin interactive driver over the engine packages. It does not
// parse script source text (spec §1 places tokenization/surface parsing out
// of scope): instead it ships a small gallery of programs already expressed
// as ast.Stmt trees and lets the operator run, inspect, or AOT-lower them by
// name, the way scm/prompt.go's Repl() reads and evaluates one line at a
// time but substitutes "parse the line" for "look the name up".
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"

	"tinygo.org/x/go-llvm"

	"github.com/lkrlang/lkr/ast"
	"github.com/lkrlang/lkr/compiler"
	"github.com/lkrlang/lkr/concurrent"
	"github.com/lkrlang/lkr/llvmgen"
	"github.com/lkrlang/lkr/value"
	"github.com/lkrlang/lkr/vm"
)

const (
	newprompt = "\033[32mlkr>\033[0m "
	resultprompt = "\033[31m=\033[0m "
)

func main() {
	fmt.Print(`lkr interactive console
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;
Type "list" to see the program gallery, "help" for commands, "exit" to quit.
`)

	vmInstance := vm.NewVM()
	runtime := concurrent.NewRuntime()
	vmInstance.Concurrency = runtime

	ctx := value.NewVmContext(nil)
	runtime.RegisterGlobals(ctx)

	repl(vmInstance, ctx)
}

func repl(vmInstance *vm.VM, ctx *value.VmContext) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            newprompt,
		HistoryFile:       ".lkr-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			panic(err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Println("panic:", r)
				}
			}()
			dispatch(vmInstance, ctx, line)
		}()
	}
}

func dispatch(vmInstance *vm.VM, ctx *value.VmContext, line string) {
	fields := strings.Fields(line)
	cmd := fields[0]
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch cmd {
	case "help":
		fmt.Println(`commands:
  list           show the program gallery
  run <name>     compile and run a gallery program through the interpreter
  lower <name>   compile and AOT-lower a gallery program through llvmgen
  exit, quit     leave the console`)
	case "list":
		names := make([]string, 0, len(gallery))
		for name := range gallery {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-12s %s\n", name, gallery[name].doc)
		}
	case "run":
		runDemo(vmInstance, ctx, arg)
	case "lower":
		lowerDemo(arg)
	case "exit", "quit":
		os.Exit(0)
	default:
		fmt.Printf("unknown command %q; type \"help\"\n", cmd)
	}
}

func runDemo(vmInstance *vm.VM, ctx *value.VmContext, name string) {
	prog, ok := gallery[name]
	if !ok {
		fmt.Printf("no such program %q; type \"list\"\n", name)
		return
	}
	fn, err := compiler.CompileProgram(prog.stmts(), name, "cmd/lkr")
	if err != nil {
		fmt.Println("compile error:", err)
		return
	}
	results, err := vmInstance.Run(fn, nil, ctx)
	if err != nil {
		fmt.Println("runtime error:", err)
		for _, frame := range ctx.CallStackReport() {
			fmt.Printf("  at %s (%s)\n", frame.FunctionName, frame.Location)
		}
		return
	}
	fmt.Print(resultprompt)
	for i, r := range results {
		if i > 0 {
			fmt.Print(", ")
		}
		fmt.Print(vm.Display(r))
	}
	fmt.Println()
}

// lowerDemo exercises the AOT path without an LLVM execution engine wired
// in: it proves a gallery program either lowers cleanly (every opcode it
// uses has an llvmgen.emit case) or names exactly which instruction forced
// a fallback to the interpreter (llvmgen.UnsupportedOpError).
func lowerDemo(name string) {
	prog, ok := gallery[name]
	if !ok {
		fmt.Printf("no such program %q; type \"list\"\n", name)
		return
	}
	fn, err := compiler.CompileProgram(prog.stmts(), name, "cmd/lkr")
	if err != nil {
		fmt.Println("compile error:", err)
		return
	}

	llctx := llvm.NewContext()
	defer llctx.Dispose()
	b := llctx.NewBuilder()
	defer b.Dispose()
	m := llctx.NewModule(name)

	if _, err := llvmgen.LowerFunction(m, b, name, fn); err != nil {
		if uerr, ok := err.(*llvmgen.UnsupportedOpError); ok {
			fmt.Printf("not AOT-lowerable: %s at instruction %d (falls back to the interpreter)\n", uerr.Code, uerr.Index)
			return
		}
		fmt.Println("lowering error:", err)
		return
	}
	fmt.Printf("%q lowered to an LLVM function with no unsupported opcodes\n", name)
}
