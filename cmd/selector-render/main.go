// ABOUTME: Offline render tool for the selector router
// ABOUTME: Mixes audio files through a switch schedule into a WAV file
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Resonate-Protocol/resonate-selector/internal/version"
	"github.com/Resonate-Protocol/resonate-selector/pkg/audio/source"
	"github.com/Resonate-Protocol/resonate-selector/pkg/render"
)

var (
	output     = flag.String("o", "selector-render.wav", "Output WAV file")
	schedule   = flag.String("schedule", "", `Switch events "<time>:<source>,...", e.g. "2s:1,5.5s:0"`)
	transition = flag.Duration("transition", 0, "Crossfade duration (default 1s)")
	channels   = flag.Int("channels", 0, "Output channels (default: channels of the first input)")
	blockSize  = flag.Int("block", render.DefaultBlockFrames, "Block size in frames")
	bitDepth   = flag.Int("bits", 16, "Output bit depth: 16 or 24")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n\nusage: selector-render [flags] input0 input1 ...\n\n", version.String())
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	buffers := make([]*source.Buffer, flag.NArg())
	for i, path := range flag.Args() {
		buf, err := source.Open(path)
		if err != nil {
			log.Fatalf("Input %d: %v", i, err)
		}
		buffers[i] = buf
	}

	ch := *channels
	if ch == 0 {
		ch = buffers[0].Channels()
	}

	sched, err := render.ParseSchedule(*schedule, buffers[0].SampleRate)
	if err != nil {
		log.Fatalf("Schedule error: %v", err)
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}
	defer f.Close()

	res, err := render.RenderWAV(render.Config{
		Channels:         ch,
		TransitionLength: *transition,
		BlockFrames:      *blockSize,
		BitDepth:         *bitDepth,
	}, buffers, sched, f)
	if err != nil {
		f.Close()
		os.Remove(*output)
		log.Fatalf("Render failed: %v", err)
	}

	fmt.Printf("Wrote %s: %d frames, %d switches, final source %d\n",
		*output, res.Frames, res.Switches, res.Final.Active)
}
