package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL needs; tests provide a stub.
type execIface interface {
	Exec(ctx context.Context, args []string) error
}

// runREPL reads commands line by line and dispatches them to a. Errors are
// printed and the loop continues. It returns on EOF, "exit" or "quit", or
// when ctx is done.
func runREPL(ctx context.Context, a execIface, scanner *bufio.Scanner, out io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprint(out, "attach> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return
		}

		if err := a.Exec(ctx, parts); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

// Repl runs the interactive loop over in.
func (a *App) Repl(ctx context.Context, in io.Reader) {
	fmt.Fprintln(a.out, "attachctl (type 'help' for commands)")
	runREPL(ctx, a, bufio.NewScanner(in), a.out)
}
