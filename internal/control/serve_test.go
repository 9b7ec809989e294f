// ABOUTME: Tests for the line loop and stdin session
// ABOUTME: Covers replies, quit handling and malformed input
package control

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestServeReplies(t *testing.T) {
	d, sender := newTestDispatcher(t, nil)

	input := "1\n\nbogus\nradio\n"
	var output bytes.Buffer
	if err := d.ServeStdin(context.Background(), strings.NewReader(input), &output); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "ok 1 line\ninvalid source\nok 2 radio\n"
	if output.String() != want {
		t.Errorf("expected %q, got %q", want, output.String())
	}

	cmds := sender.sent()
	if len(cmds) != 2 || cmds[0].Source != 1 || cmds[1].Source != 2 {
		t.Errorf("unexpected commands %+v", cmds)
	}
	if d.Registry().Len() != 0 {
		t.Error("stdin session should be closed after EOF")
	}
}

func TestServeQuitStopsReading(t *testing.T) {
	d, sender := newTestDispatcher(t, nil)
	s := d.Open("test", "")
	defer d.Close(s)

	var output bytes.Buffer
	err := d.Serve(context.Background(), s, strings.NewReader("0\nquit\n2\n"), &output)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output.String() != "ok 0 mic\nbye\n" {
		t.Errorf("unexpected output %q", output.String())
	}
	if len(sender.sent()) != 1 {
		t.Errorf("lines after quit must be ignored, got %+v", sender.sent())
	}
}

func TestServeLineTooLong(t *testing.T) {
	d, sender := newTestDispatcher(t, nil)
	s := d.Open("test", "")
	defer d.Close(s)

	input := strings.Repeat("x", MaxLineBytes+10) + "\n1\n"
	var output bytes.Buffer
	if err := d.Serve(context.Background(), s, strings.NewReader(input), &output); err == nil {
		t.Fatal("expected error for over-long line")
	}
	if len(sender.sent()) != 0 {
		t.Error("malformed session must not enqueue")
	}
}

func TestServeCancelled(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	s := d.Open("test", "")
	defer d.Close(s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var output bytes.Buffer
	if err := d.Serve(ctx, s, strings.NewReader("1\n"), &output); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
