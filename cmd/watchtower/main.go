// Command watchtower is a terminal client for the insider threat detection
// service: log in, inspect alerts and incidents, and watch the live dashboard.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "watchtower: %v\n", err)
		os.Exit(1)
	}
}
