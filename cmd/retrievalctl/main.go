// Command retrievalctl runs registry actions in process, without the HTTP
// gateway. It reads the same environment as retrieval-gateway.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
