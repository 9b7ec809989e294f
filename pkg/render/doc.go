// ABOUTME: Offline rendering package
// ABOUTME: Drives the router over decoded sources with a scripted switch schedule
// Package render runs the router without an audio device.
//
// A Renderer feeds source readers through a router.Processor in fixed blocks.
// Switch events from a Schedule are sent through the same command queue the
// live control plane uses; blocks are split at event frames so each switch
// takes effect exactly at its AtFrame. Output is bit-for-bit reproducible
// for the same inputs and schedule.
//
// Example:
//
//	sched, _ := render.ParseSchedule("2s:1,5s:0", 48000)
//	res, err := render.RenderWAV(cfg, buffers, sched, outFile)
package render
