package service

import (
	"fmt"
	"strings"
	"testing"
)

const sampleStack = `Error: connection lost
    at handleRequest (src/server.js:42:13)
    at processQueue (node_modules/express/lib/router.js:17:5)
    at src/app.js:9:1
    at <anonymous>`

func TestStackParser_Parse(t *testing.T) {
	p := NewStackParser(50)
	frames := p.Parse(sampleStack)

	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(frames))
	}

	if frames[0].Function != "handleRequest" {
		t.Errorf("frame 0 function = %q, want handleRequest", frames[0].Function)
	}
	if frames[0].Filename != "src/server.js" || frames[0].Line != 42 || frames[0].Column != 13 {
		t.Errorf("frame 0 location = %s:%d:%d", frames[0].Filename, frames[0].Line, frames[0].Column)
	}
	if !frames[0].InApp {
		t.Error("frame 0 should be in-app")
	}

	// node_modules frame is dependency code
	if frames[1].InApp {
		t.Error("frame 1 (node_modules) should not be in-app")
	}

	// Bare file:line:col frame gets an anonymous function name
	if frames[2].Function != "<anonymous>" {
		t.Errorf("frame 2 function = %q, want <anonymous>", frames[2].Function)
	}
	if !frames[2].InApp {
		t.Error("frame 2 should be in-app")
	}

	// Function-only frame has no location and is never in-app
	if frames[3].Function != "<anonymous>" || frames[3].Filename != "" {
		t.Errorf("frame 3 = %+v", frames[3])
	}
	if frames[3].InApp {
		t.Error("frame 3 should not be in-app")
	}
}

func TestStackParser_SkipsMessageLine(t *testing.T) {
	p := NewStackParser(50)

	// The message line can itself look like a frame; it must still be skipped
	frames := p.Parse("at weird (message.js:1:1)\n    at real (src/a.js:2:2)")
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Function != "real" {
		t.Errorf("got function %q, want real", frames[0].Function)
	}
}

func TestStackParser_EmptyAndGarbage(t *testing.T) {
	p := NewStackParser(50)

	if got := p.Parse(""); got != nil {
		t.Errorf("empty stack should return nil, got %v", got)
	}
	if got := p.Parse("not a stack\nstill not a stack\n???"); len(got) != 0 {
		t.Errorf("garbage stack should return no frames, got %v", got)
	}
}

func TestStackParser_DepthCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("Error: deep\n")
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, "    at fn%d (src/deep.js:%d:1)\n", i, i+1)
	}

	p := NewStackParser(10)
	frames := p.Parse(b.String())
	if len(frames) != 10 {
		t.Fatalf("expected depth cap of 10, got %d frames", len(frames))
	}
	// The cap keeps the top of the stack, which matters for grouping
	if frames[0].Function != "fn0" {
		t.Errorf("first frame = %q, want fn0", frames[0].Function)
	}
}

func TestStackParser_SitePackagesIsDependency(t *testing.T) {
	p := NewStackParser(50)
	frames := p.Parse("Error: x\n    at run (/usr/lib/python3/site-packages/mod.py:5:1)")
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].InApp {
		t.Error("site-packages frame should not be in-app")
	}
}
