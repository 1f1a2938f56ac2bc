package transport

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// recoverWithLog recovers from panics in connection goroutines (reader,
// writer, reconnector) and logs them instead of bringing down the whole
// process over one bad relay response.
//
// Example:
//
//	go func() {
//	    defer recoverWithLog(logger, "writer")
//	    // ... goroutine work
//	}()
func recoverWithLog(logger *slog.Logger, name string) {
	if r := recover(); r != nil {
		stack := string(debug.Stack())
		logger.Error("panic recovered",
			"goroutine", name,
			"panic", fmt.Sprintf("%v", r),
			"stack", stack)
	}
}
