package gpu

import (
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/dofdemo/internal/dof"
	"github.com/gogpu/dofdemo/internal/shader"
)

type postFixture struct {
	scene *ScenePass
	post  *PostPass
	dest  *OffscreenPresenter
	queue *recordingQueue
}

func newPostFixture(t *testing.T) (*postFixture, *commandLog, func() *recordingEncoder) {
	t.Helper()
	device, queue := createNoopDevice(t)
	rq := &recordingQueue{Queue: queue}
	scene, err := NewScenePass(device, rq, smallSceneConfig())
	if err != nil {
		t.Fatalf("NewScenePass: %v", err)
	}
	t.Cleanup(scene.Destroy)
	post, err := NewPostPass(device, rq, scene.Color(), scene.Depth(), gputypes.TextureFormatBGRA8Unorm, shader.FormatWGSL)
	if err != nil {
		t.Fatalf("NewPostPass: %v", err)
	}
	t.Cleanup(post.Destroy)
	dest, err := NewOffscreenPresenter(device, rq, 64, 32, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		t.Fatalf("NewOffscreenPresenter: %v", err)
	}
	t.Cleanup(dest.Destroy)

	log := &commandLog{}
	newEnc := func() *recordingEncoder {
		return newRecordingEncoder(t, device, log).(*recordingEncoder)
	}
	return &postFixture{scene: scene, post: post, dest: dest, queue: rq}, log, newEnc
}

func TestPostPassRecordsOneQuadDraw(t *testing.T) {
	f, log, newEnc := newPostFixture(t)
	enc := newEnc()
	defer enc.DiscardEncoding()
	f.queue.writes = nil

	color, depth := f.scene.Color(), f.scene.Depth()
	if err := errors.Join(color.BindReadable(), depth.BindReadable()); err != nil {
		t.Fatalf("bind readable: %v", err)
	}
	dest, _ := f.dest.Acquire()
	params := dof.Params{ActivateFixed: 2, FocusDepth: 100}
	if err := f.post.Run(enc, color, depth, dest, 64, 32, 3.5, params); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{
		"BeginRenderPass(post_pass)",
		"SetPipeline",
		"SetViewport(64,32)",
		"SetVertexBuffer(0)",
		"SetVertexBuffer(1)",
		"SetBindGroup(0,[])",
		"Draw(6,1,0,0)",
		"End",
	}
	if !slices.Equal(log.ops, want) {
		t.Fatalf("recorded ops:\n%v\nwant:\n%v", log.ops, want)
	}
	if dest.State() != Unbound {
		t.Errorf("destination state after Run = %s, want Unbound", dest.State())
	}

	if len(f.queue.writes) != 1 {
		t.Fatalf("uploads = %d, want 1", len(f.queue.writes))
	}
	got := f.queue.writes[0].data
	wantVals := []float32{3.5, 2, 0, 100}
	for i, v := range wantVals {
		if g := math.Float32frombits(binary.LittleEndian.Uint32(got[i*4:])); g != v {
			t.Errorf("constant %d = %g, want %g", i, g, v)
		}
	}
}

func TestPostPassRequiresReadableInputs(t *testing.T) {
	f, log, newEnc := newPostFixture(t)
	enc := newEnc()
	defer enc.DiscardEncoding()

	color, depth := f.scene.Color(), f.scene.Depth()
	dest, _ := f.dest.Acquire()

	// Still bound as attachments.
	if err := errors.Join(color.BindWritable(), depth.BindWritable()); err != nil {
		t.Fatalf("bind writable: %v", err)
	}
	var violation *BindingViolation
	err := f.post.Run(enc, color, depth, dest, 64, 32, 0, dof.Params{})
	if !errors.As(err, &violation) {
		t.Fatalf("Run with writable inputs: err = %v, want *BindingViolation", err)
	}
	if violation.From != Writable || violation.To != Readable {
		t.Errorf("violation = %+v", violation)
	}
	if len(log.ops) != 0 {
		t.Errorf("nothing should be recorded, got %v", log.ops)
	}
	if dest.State() != Unbound {
		t.Errorf("destination should stay Unbound, got %s", dest.State())
	}
}

func TestPostPassRejectsForeignTargets(t *testing.T) {
	f, _, newEnc := newPostFixture(t)
	enc := newEnc()
	defer enc.DiscardEncoding()

	dest, _ := f.dest.Acquire()
	if err := f.post.Run(enc, dest, f.scene.Depth(), dest, 64, 32, 0, dof.Params{}); err == nil {
		t.Error("expected error for a color target the pass was not built with")
	}
}

func TestMakePostConstants(t *testing.T) {
	b := makePostConstants(dof.Params{Time: 1, ActivateFixed: 0, ActivateVariable: 3, FocusDepth: 42})
	if len(b) != PostConstantsSize {
		t.Fatalf("len = %d, want %d", len(b), PostConstantsSize)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])); got != 3 {
		t.Errorf("variable = %g, want 3", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(b[12:16])); got != 42 {
		t.Errorf("focus = %g, want 42", got)
	}
}
