// ABOUTME: Command ingress package
// ABOUTME: Lock-free hand-off of switch commands into the audio callback
// Package ingress carries switch commands from control goroutines into the
// real-time audio callback.
//
// Any number of goroutines may Send concurrently; exactly one consumer (the
// audio callback) polls with TryReceive. Neither side blocks or takes a lock.
// The queue is bounded: when it is full the oldest pending command is dropped
// so the newest request always gets through.
//
// Example:
//
//	q := ingress.NewQueue(1024)
//	q.Send(ingress.Command{Source: 2})
//	for cmd, ok := q.TryReceive(); ok; cmd, ok = q.TryReceive() {
//	    apply(cmd.Source)
//	}
package ingress
