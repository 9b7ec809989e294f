// ABOUTME: Real-time crossfade router package
// ABOUTME: Transition state machine and per-block audio processor
// Package router implements the switching engine that runs inside the audio
// callback.
//
// A Processor owns a Transition and drains switch commands from an
// ingress.Queue at the start of every block. For each frame it writes a blend
// of the previous and active input buses using the crossfade law, then
// advances the transition by one frame. Process never allocates, locks or
// blocks.
//
// Example:
//
//	queue := ingress.NewQueue(ingress.DefaultCapacity)
//	proc, err := router.NewProcessor(router.Config{
//	    Layout:           audio.Layout{Inputs: 3, Channels: 2},
//	    SampleRate:       48000,
//	    TransitionLength: time.Second,
//	}, queue)
//
//	// From the audio callback:
//	proc.Process(in, out)
//
//	// From any goroutine:
//	queue.Send(ingress.Command{Source: 2})
//	status := proc.Status()
package router
