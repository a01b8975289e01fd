package dofdemo

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/dofdemo/internal/dof"
)

// EffectParams selects the post-effect mode. A non-zero strength enables
// its mode; fixed and variable are never both enabled by the controls.
type EffectParams struct {
	ActivateFixed    float32
	ActivateVariable float32
	FocusDepth       float32
}

// DefaultEffectParams returns the effect switched off, focused at depth 100.
func DefaultEffectParams() EffectParams {
	return EffectParams{FocusDepth: dof.DefaultFocusDepth}
}

// Title returns the window title describing the current mode.
func (p EffectParams) Title() string {
	switch {
	case p.ActivateFixed != 0:
		return fmt.Sprintf("DoF FIXED: %g", p.ActivateFixed)
	case p.ActivateVariable != 0:
		return fmt.Sprintf("DoF Variable: Depth -> %g", p.FocusDepth)
	default:
		return "DoF OFF"
	}
}

func (p EffectParams) shaderParams(time float32) dof.Params {
	return dof.Params{
		Time:             time,
		ActivateFixed:    p.ActivateFixed,
		ActivateVariable: p.ActivateVariable,
		FocusDepth:       p.FocusDepth,
	}
}

// KeySource is the part of gpucontext.EventSource the controller needs.
type KeySource interface {
	OnKeyPress(func(key gpucontext.Key, mods gpucontext.Modifiers))
}

// KeyController maps key presses to effect parameters. Event sources may
// call HandleKey from a platform thread, so state is guarded by a mutex.
type KeyController struct {
	mu     sync.Mutex
	params EffectParams
	quit   bool

	// OnChange, if set, is called with the new parameters after every key
	// that changes them. It runs with the controller unlocked.
	OnChange func(EffectParams)
}

// NewKeyController returns a controller starting from DefaultEffectParams.
func NewKeyController() *KeyController {
	return &KeyController{params: DefaultEffectParams()}
}

// Attach registers the controller with an event source.
func (c *KeyController) Attach(src KeySource) {
	src.OnKeyPress(c.HandleKey)
}

// HandleKey applies one key press:
//
//	F      fixed += 1, variable = 0
//	V      variable += 1, fixed = 0
//	Space  both off, focus depth reset
//	Up     focus depth + 1
//	Down   focus depth - 1
//	Escape quit
//
// Other keys are ignored.
func (c *KeyController) HandleKey(key gpucontext.Key, _ gpucontext.Modifiers) {
	c.mu.Lock()
	p := &c.params
	switch key {
	case gpucontext.KeyF:
		p.ActivateFixed++
		p.ActivateVariable = 0
	case gpucontext.KeyV:
		p.ActivateFixed = 0
		p.ActivateVariable++
	case gpucontext.KeySpace:
		*p = DefaultEffectParams()
	case gpucontext.KeyUp:
		p.FocusDepth++
	case gpucontext.KeyDown:
		p.FocusDepth--
	case gpucontext.KeyEscape:
		c.quit = true
		c.mu.Unlock()
		Logger().Debug("quit requested")
		return
	default:
		c.mu.Unlock()
		return
	}
	snapshot := c.params
	onChange := c.OnChange
	c.mu.Unlock()

	Logger().Debug("effect params changed", "title", snapshot.Title())
	if onChange != nil {
		onChange(snapshot)
	}
}

// Snapshot returns the current parameters.
func (c *KeyController) Snapshot() EffectParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// Set replaces the current parameters without calling OnChange.
func (c *KeyController) Set(p EffectParams) {
	c.mu.Lock()
	c.params = p
	c.mu.Unlock()
}

// QuitRequested reports whether Escape has been pressed.
func (c *KeyController) QuitRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quit
}
