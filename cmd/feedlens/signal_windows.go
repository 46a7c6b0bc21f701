//go:build windows

package main

import (
	"os"
)

// shutdownSignals trigger a graceful shutdown. Windows only delivers os.Interrupt (Ctrl+C).
var shutdownSignals = []os.Signal{os.Interrupt}
