// Package main is the entrypoint for the local identity-provider
// emulator. It serves the Cognito-compatible amz-json-1.1 API on a
// single port.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aelexs/cognitolocal/internal/server"
)

func main() {
	if err := server.Run(context.Background(), nil); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
