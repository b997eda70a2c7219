// Command cliplogd runs the cliplog daemon in the foreground. It is meant for
// service managers (systemd, launchd) that supervise the process themselves.
package main

import (
	"fmt"
	"os"

	"github.com/berrythewa/cliplog/internal/cli"
)

func main() {
	if err := cli.NewServiceCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
