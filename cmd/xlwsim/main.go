// Command xlwsim drives a set of demo add-in functions against the simulated
// spreadsheet host.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/davidclayton/xlw/host"
	"github.com/davidclayton/xlw/simhost"
	"github.com/davidclayton/xlw/xlcall"
)

func main() {
	var (
		abiName     = flag.String("abi", "modern", "Host ABI: legacy or modern")
		book        = flag.String("book", "", "Workbook (.xlsx) to load as sheet constants")
		funcName    = flag.String("call", "", "Function to call")
		callArgs    = flag.String("args", "", "Comma-separated arguments: numbers, TRUE/FALSE, #N/A, R1C1:R2C2 refs or text")
		list        = flag.Bool("list", false, "List registered functions and exit")
		xlsxOut     = flag.String("xlsx", "", "Write the result to this workbook")
		verbose     = flag.Bool("v", false, "Development logging to stderr")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	abi, ok := xlcall.ParseABI(*abiName)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown ABI %q\n", *abiName)
		os.Exit(1)
	}

	log := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		log = l
	}
	defer func() { _ = log.Sync() }()
	host.SetLogger(log)

	ctx := context.Background()
	sim, err := newSimulator(ctx, abi, *book, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer sim.Close(ctx)

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "stdout is not a terminal, ignoring -i")
		} else {
			if err := runInteractive(sim); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := run(sim, *funcName, *callArgs, *xlsxOut, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(sim *simulator, funcName, argStr, xlsxOut string, listOnly bool) error {
	fmt.Printf("Host ABI: %s\n", sim.abi)
	fmt.Printf("Sheets: %d\n", len(sim.host.Sheets()))

	if listOnly || funcName == "" {
		fmt.Printf("\nRegistered functions:\n")
		fmt.Println(renderFunctions(sim.host.Registrations()))
		if funcName == "" && !listOnly {
			fmt.Printf("\nUse -call to call a function.\n")
		}
		return nil
	}

	var raw []string
	if argStr != "" {
		raw = strings.Split(argStr, ",")
	}

	fmt.Printf("\nCalling %s(%s)...\n", funcName, strings.Join(raw, ", "))
	res, err := sim.call(funcName, raw)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}
	fmt.Printf("Result: %s\n", res.kind)
	fmt.Println(renderMatrix(res.cells))

	if xlsxOut != "" {
		f, err := os.Create(xlsxOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", xlsxOut, err)
		}
		if err := simhost.WriteMatrixXLSX(f, "Result", res.cells); err != nil {
			_ = f.Close()
			return fmt.Errorf("write %s: %w", xlsxOut, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", xlsxOut)
	}
	return nil
}
