// Command hydroflow runs the sediment-yield workflow: hydrology, optional
// fault correlation, watershed delineation and BQART.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hydroflow:", err)
		os.Exit(exitCode(err))
	}
}
