//go:build !linux

package tracer

// ThreadID is a stub on platforms without a cheap thread-id syscall; events
// carry the process id instead, which keeps records well-formed without
// pretending to per-thread precision.
func ThreadID() int32 {
	return int32(getpid())
}
