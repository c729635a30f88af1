//go:build linux

package tracer

import "golang.org/x/sys/unix"

// ThreadID returns the kernel thread id of the calling thread. Goroutines
// migrate between threads, so this identifies the OS thread that happened
// to deliver the event — the same meaning the interposition hosts attach
// to it.
func ThreadID() int32 {
	return int32(unix.Gettid())
}
