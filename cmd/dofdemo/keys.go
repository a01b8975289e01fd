package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gogpu/gpucontext"
)

var keyNames = map[string]gpucontext.Key{
	"f":      gpucontext.KeyF,
	"v":      gpucontext.KeyV,
	"space":  gpucontext.KeySpace,
	"up":     gpucontext.KeyUp,
	"down":   gpucontext.KeyDown,
	"escape": gpucontext.KeyEscape,
	"esc":    gpucontext.KeyEscape,
}

// keyEvent is one scripted press before the given frame.
type keyEvent struct {
	frame int
	key   gpucontext.Key
}

// keyScript replays key presses at fixed frames. It stands in for a window's
// event source in headless runs.
type keyScript struct {
	events  []keyEvent
	next    int
	handler func(gpucontext.Key, gpucontext.Modifiers)
}

// parseKeyScript parses "F@10,V@20,Up@25": each entry presses the named key
// just before that frame is rendered.
func parseKeyScript(s string) (*keyScript, error) {
	ks := &keyScript{}
	if strings.TrimSpace(s) == "" {
		return ks, nil
	}
	for _, entry := range strings.Split(s, ",") {
		name, at, ok := strings.Cut(strings.TrimSpace(entry), "@")
		if !ok {
			return nil, fmt.Errorf("key entry %q: want KEY@FRAME", entry)
		}
		key, ok := keyNames[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("key entry %q: unknown key %q", entry, name)
		}
		frame, err := strconv.Atoi(at)
		if err != nil || frame < 0 {
			return nil, fmt.Errorf("key entry %q: bad frame %q", entry, at)
		}
		ks.events = append(ks.events, keyEvent{frame: frame, key: key})
	}
	sort.SliceStable(ks.events, func(i, j int) bool {
		return ks.events[i].frame < ks.events[j].frame
	})
	return ks, nil
}

// OnKeyPress registers the handler that receives scripted presses.
func (ks *keyScript) OnKeyPress(fn func(gpucontext.Key, gpucontext.Modifiers)) {
	ks.handler = fn
}

// advance delivers every press scheduled at or before frame.
func (ks *keyScript) advance(frame int) {
	for ks.next < len(ks.events) && ks.events[ks.next].frame <= frame {
		if ks.handler != nil {
			ks.handler(ks.events[ks.next].key, 0)
		}
		ks.next++
	}
}
