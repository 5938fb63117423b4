// Command frameloop opens a window and drives the frame loop, clearing
// the screen every frame.
package main

import (
	"os"
	"runtime"
)

func init() {
	// glfw and the presentation engine must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
