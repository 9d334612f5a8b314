// norse - action bindings for desktop mouse and keyboard input
package main

import (
	"fmt"
	"os"
	"runtime"

	"norse/internal/cli"
)

var version = "0.1.0"

func init() {
	// the tray event loop and the raw input window must stay on the main thread
	runtime.LockOSThread()
}

func main() {
	err := cli.NewRootCommand(version).Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
