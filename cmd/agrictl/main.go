// Command agrictl validates, exports and submits agritrade records, and can
// run the gateway.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tbourn/agritrade-gateway/internal/cli"
)

var version = "dev"

func main() {
	cmd := cli.NewRootCommand(version)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
