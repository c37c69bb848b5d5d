// Command kassir runs the offline-first sale sync for one register.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kassir-pos/possync/internal/cli"
)

func main() {
	err := cli.NewRootCommand().ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "kassir: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
