package concurrency

import (
	"log/slog"
	"runtime/debug"
)

// SafeGo runs fn on its own goroutine. A panic is logged with the routine
// name and stack, then handed to onPanic when it is set.
func SafeGo(name string, fn func(), onPanic func(interface{})) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Panic recovered", "routine", name, "panic", r, "stack", string(debug.Stack()))
				if onPanic != nil {
					onPanic(r)
				}
			}
		}()
		fn()
	}()
}
