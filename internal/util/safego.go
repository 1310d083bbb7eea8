package util

import (
	"runtime/debug"

	"github.com/windingtree/wt-client/internal/logging"
)

// SafeGo runs fn in a goroutine, recovering and logging any panic so a
// misbehaving callback cannot take the client down.
func SafeGo(fn func()) {
	SafeGoWithName("", fn)
}

// SafeGoWithName is SafeGo with a goroutine name attached to panic logs.
// The returned channel is closed once fn has returned or panicked.
//
// Example:
//
//	done := util.SafeGoWithName("log-subscription", func() {
//	    // goroutine code here
//	})
//	<-done
func SafeGoWithName(name string, fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				logging.Error("goroutine panic recovered",
					"goroutine", name,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
	return done
}
