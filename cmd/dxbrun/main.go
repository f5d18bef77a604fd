// Command dxbrun drives a compiled Diannex (.dxb) file through a simulated
// game loop: it loads the container, runs a scene, and prints dialogue
// text / choice prompts to the terminal, reading the player's selections
// and "continue" keypresses from stdin. It also disassembles a .dxb file
// for debugging, in the teacher's `smog disassemble` idiom (cmd/smog).
package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/diannexlang/dx/pkg/bytecode"
	"github.com/diannexlang/dx/pkg/config"
	"github.com/diannexlang/dx/pkg/container"
	"github.com/diannexlang/dx/pkg/external"
	"github.com/diannexlang/dx/pkg/logging"
	"github.com/diannexlang/dx/pkg/translation"
	"github.com/diannexlang/dx/pkg/vm"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		fmt.Printf("dxbrun version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	case "run":
		runCommand(os.Args[2:])
	case "debug":
		debugCommand(os.Args[2:])
	case "disasm", "disassemble":
		disasmCommand(os.Args[2:])
	case "funcs":
		for _, n := range external.NewDemoRegistry().Names() {
			fmt.Println(n)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("dxbrun - Diannex bytecode interpreter CLI")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dxbrun run <file.dxb> [scene] [-config cfg.yaml]   Run a scene")
	fmt.Println("  dxbrun debug <file.dxb> [scene]                   Run a scene under the interactive debugger")
	fmt.Println("  dxbrun disasm <file.dxb>                          Disassemble instructions")
	fmt.Println("  dxbrun funcs                                      List the demo external functions")
	fmt.Println("  dxbrun version                                    Show version")
	fmt.Println("  dxbrun help                                       Show this help")
}

func runCommand(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no .dxb file specified")
		os.Exit(1)
	}
	path := args[0]
	scene := "start"
	cfgPath := ""
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-config":
			if i+1 < len(args) {
				i++
				cfgPath = args[i]
			}
		default:
			scene = args[i]
		}
	}

	cfg := config.Default()
	if cfgPath != "" {
		c, err := config.Load(cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = c
	}
	if cfg.Seed != 0 {
		rand.Seed(cfg.Seed)
	}

	log := logging.NewStderr(cfg.LogLevel)

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	bin, err := container.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding DXB: %v\n", err)
		os.Exit(1)
	}

	handler := external.NewDemoRegistry()
	interp := vm.New(bin, handler, vm.WithLogger(log), vm.WithStrictMode(cfg.Strict))

	ctx := context.Background()
	if cfg.TranslationFile != "" {
		lines, err := translation.LoadFile(cfg.TranslationFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading translation file: %v\n", err)
			os.Exit(1)
		}
		interp.LoadTranslationFile(ctx, lines)
	}

	if err := interp.RunScene(ctx, scene); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting scene %q: %v\n", scene, err)
		os.Exit(1)
	}

	driveGameLoop(ctx, interp)
}

// driveGameLoop pumps Update until the VM pauses, then handles whichever
// pause condition fired (spec.md §4.8, §5): dialogue text (wait for
// Enter), a choice (read a selection), or scene completion (stop).
func driveGameLoop(ctx context.Context, interp *vm.VM) {
	stdin := bufio.NewScanner(os.Stdin)
	for {
		for !interp.Paused() {
			if err := interp.Update(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
				os.Exit(1)
			}
		}

		if interp.SceneCompleted() {
			fmt.Println("-- scene complete --")
			return
		}

		if interp.SelectChoice() {
			choices := interp.Choices()
			for i, c := range choices {
				fmt.Printf("  %d) %s\n", i+1, c)
			}
			choice := readChoice(stdin, len(choices))
			if err := interp.ChooseChoice(choice); err != nil {
				fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
				os.Exit(1)
			}
			continue
		}

		if interp.RunningText() {
			if text, ok := interp.CurrentText(); ok {
				fmt.Println(text)
			}
			fmt.Print("-- press enter to continue --")
			stdin.Scan()
			interp.Resume()
			continue
		}

		// paused with none of the above set should not happen per spec.md
		// §8's invariant, but don't spin forever if it does.
		return
	}
}

func readChoice(stdin *bufio.Scanner, n int) int {
	for {
		fmt.Print("> ")
		if !stdin.Scan() {
			return 0
		}
		text := strings.TrimSpace(stdin.Text())
		i, err := strconv.Atoi(text)
		if err != nil || i < 1 || i > n {
			fmt.Printf("enter a number between 1 and %d\n", n)
			continue
		}
		return i - 1
	}
}

// debugCommand runs a scene with a vm.Debugger attached and stepping
// enabled from the first instruction, so the user immediately gets a
// "debug>" prompt instead of watching dialogue fly by (pkg/vm/debugger.go).
func debugCommand(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no .dxb file specified")
		os.Exit(1)
	}
	path := args[0]
	scene := "start"
	if len(args) > 1 {
		scene = args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	bin, err := container.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding DXB: %v\n", err)
		os.Exit(1)
	}

	interp := vm.New(bin, external.NewDemoRegistry())
	dbg := vm.NewDebugger(interp)
	dbg.Enable()
	dbg.SetStepMode(true)

	ctx := context.Background()
	if err := interp.RunScene(ctx, scene); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting scene %q: %v\n", scene, err)
		os.Exit(1)
	}

	for !interp.SceneCompleted() {
		if err := interp.Update(ctx); err != nil {
			if err == vm.ErrDebugAborted {
				fmt.Println("-- debugger aborted --")
				return
			}
			fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
			os.Exit(1)
		}
		if interp.Paused() && !interp.SceneCompleted() {
			if interp.RunningText() {
				if text, ok := interp.CurrentText(); ok {
					fmt.Printf("[text] %s\n", text)
				}
				interp.Resume()
			} else if interp.SelectChoice() {
				choices := interp.Choices()
				for i, c := range choices {
					fmt.Printf("  %d) %s\n", i+1, c)
				}
				stdin := bufio.NewScanner(os.Stdin)
				if err := interp.ChooseChoice(readChoice(stdin, len(choices))); err != nil {
					fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
					os.Exit(1)
				}
			}
		}
	}
	fmt.Println("-- scene complete --")
}

func disasmCommand(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no .dxb file specified")
		os.Exit(1)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	bin, err := container.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding DXB: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("=== DXB Disassembly: %s (version %d) ===\n\n", args[0], bin.Version)
	fmt.Printf("Scenes: %d, Functions: %d, Definitions: %d, Strings: %d, Translations: %d\n\n",
		len(bin.Scenes), len(bin.Functions), len(bin.Definitions), len(bin.StringTable), len(bin.TranslationTable))
	if len(bin.ExternalFunctionList) > 0 {
		fmt.Println("Declared external functions:")
		for _, sym := range bin.ExternalFunctionList {
			name := "?"
			if int(sym) < len(bin.StringTable) {
				name = bin.StringTable[sym]
			}
			fmt.Printf("  %s (declared=%v)\n", name, bin.DeclaresExternalFunction(sym))
		}
		fmt.Println()
	}
	fmt.Print(bytecode.Disassemble(bin.Instructions))
}
