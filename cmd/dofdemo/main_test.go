package main

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func TestParseKeyScript(t *testing.T) {
	ks, err := parseKeyScript("V@20, F@10,up@20,Esc@30")
	require.NoError(t, err)
	require.Len(t, ks.events, 4)

	// Sorted by frame, stable within a frame.
	assert.Equal(t, keyEvent{10, gpucontext.KeyF}, ks.events[0])
	assert.Equal(t, keyEvent{20, gpucontext.KeyV}, ks.events[1])
	assert.Equal(t, keyEvent{20, gpucontext.KeyUp}, ks.events[2])
	assert.Equal(t, keyEvent{30, gpucontext.KeyEscape}, ks.events[3])
}

func TestParseKeyScriptEmpty(t *testing.T) {
	ks, err := parseKeyScript("  ")
	require.NoError(t, err)
	assert.Empty(t, ks.events)
	ks.advance(100) // no handler, no events
}

func TestParseKeyScriptErrors(t *testing.T) {
	for _, s := range []string{"F", "Q@1", "F@x", "F@-2", "F@1,,V@2"} {
		_, err := parseKeyScript(s)
		assert.Error(t, err, s)
	}
}

func TestKeyScriptAdvance(t *testing.T) {
	ks, err := parseKeyScript("F@2,V@2,Space@5")
	require.NoError(t, err)

	var got []gpucontext.Key
	ks.OnKeyPress(func(k gpucontext.Key, _ gpucontext.Modifiers) { got = append(got, k) })

	ks.advance(0)
	ks.advance(1)
	assert.Empty(t, got)

	ks.advance(2)
	assert.Equal(t, []gpucontext.Key{gpucontext.KeyF, gpucontext.KeyV}, got)

	// Skipped frames still deliver their presses once.
	ks.advance(9)
	ks.advance(9)
	assert.Equal(t, []gpucontext.Key{gpucontext.KeyF, gpucontext.KeyV, gpucontext.KeySpace}, got)
}

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 2, color.RGBA{R: 200, G: 10, B: 30, A: 255})
	return img
}

func TestSaveImageFormats(t *testing.T) {
	dir := t.TempDir()
	src := testImage()

	for _, name := range []string{"out.png", "out.bmp", "out.tiff", "out.TIF"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, saveImage(path, src))

			f, err := os.Open(path)
			require.NoError(t, err)
			defer f.Close()

			var img image.Image
			switch filepath.Ext(name) {
			case ".bmp":
				img, err = bmp.Decode(f)
			case ".tiff", ".TIF":
				img, err = tiff.Decode(f)
			default:
				img, _, err = image.Decode(f)
			}
			require.NoError(t, err)
			assert.Equal(t, src.Bounds(), img.Bounds())
			r, g, b, _ := img.At(1, 2).RGBA()
			assert.Equal(t, [3]uint32{200, 10, 30}, [3]uint32{r >> 8, g >> 8, b >> 8})
		})
	}
}

func TestSaveImageUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gif")
	assert.ErrorContains(t, saveImage(path, testImage()), "unsupported format")
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no file should be created")
}

func TestSelectBackend(t *testing.T) {
	b, err := selectBackend("noop")
	require.NoError(t, err)
	assert.NotNil(t, b)

	_, err = selectBackend("glide")
	assert.ErrorContains(t, err, "unknown backend")
}

func TestRunNoop(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frame.png")
	err := run([]string{
		"-backend", "noop",
		"-width", "32", "-height", "16",
		"-grid", "2",
		"-frames", "4",
		"-keys", "F@1,V@2",
		"-capture", out,
		"-q",
	})
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestRunEscapeStopsEarly(t *testing.T) {
	require.NoError(t, run([]string{
		"-backend", "noop", "-width", "8", "-height", "8", "-grid", "1",
		"-frames", "100", "-keys", "Escape@3", "-q",
	}))
}

func TestRunRejectsBadConfig(t *testing.T) {
	assert.Error(t, run([]string{"-backend", "noop", "-grid", "0", "-q"}))
	assert.Error(t, run([]string{"-backend", "noop", "-keys", "Z@1", "-q"}))
	assert.Error(t, run([]string{"-config", filepath.Join(t.TempDir(), "none.toml")}))
}

func TestRunReference(t *testing.T) {
	dir := t.TempDir()
	capture := filepath.Join(dir, "gpu.png")
	reference := filepath.Join(dir, "cpu.tiff")
	require.NoError(t, run([]string{
		"-backend", "noop",
		"-width", "24", "-height", "20",
		"-grid", "2",
		"-frames", "3",
		"-keys", "F@1",
		"-capture", capture,
		"-reference", reference,
		"-q",
	}))

	f, err := os.Open(reference)
	require.NoError(t, err)
	defer f.Close()
	img, err := tiff.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 24, 20), img.Bounds())
}

func TestRunReferenceNeedsAFrame(t *testing.T) {
	err := run([]string{
		"-backend", "noop", "-width", "8", "-height", "8", "-grid", "1",
		"-frames", "5", "-keys", "Escape@0",
		"-reference", filepath.Join(t.TempDir(), "ref.png"), "-q",
	})
	assert.ErrorContains(t, err, "no frame rendered")
}

func TestMaxChannelDiff(t *testing.T) {
	a := testImage()
	b := testImage()
	assert.Equal(t, 0, maxChannelDiff(a, b))

	b.Set(0, 0, color.RGBA{G: 40, A: 255})
	assert.Equal(t, 255, maxChannelDiff(a, b), "alpha 0 vs 255")

	b = testImage()
	b.Set(1, 2, color.RGBA{R: 190, G: 10, B: 30, A: 255})
	assert.Equal(t, 10, maxChannelDiff(a, b))

	assert.Equal(t, -1, maxChannelDiff(a, image.NewRGBA(image.Rect(0, 0, 2, 2))))
}
