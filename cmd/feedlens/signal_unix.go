//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals trigger a graceful shutdown. SIGTERM is what systemd and kubernetes send.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
