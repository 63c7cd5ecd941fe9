package overlay

import (
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"io/fs"
	"time"
)

const minFrameDelay = 20 * time.Millisecond

// Animation is a decoded, fully composited frame sequence.
type Animation struct {
	Name   string
	Frames []image.Image
	Delays []time.Duration
}

func (a *Animation) Duration() time.Duration {
	var total time.Duration
	for _, d := range a.Delays {
		total += d
	}
	return total
}

// FrameAt maps an offset into one loop of the animation to a frame index.
func (a *Animation) FrameAt(offset time.Duration) int {
	for i, d := range a.Delays {
		if offset < d {
			return i
		}
		offset -= d
	}
	return len(a.Frames) - 1
}

// Bindings maps a class name to its animation. Lookups are exact; there is
// no fallback for unknown classes.
type Bindings map[string]*Animation

func (b Bindings) Lookup(label string) (*Animation, bool) {
	a, ok := b[label]
	return a, ok
}

// LoadBindings decodes one GIF per class from fsys.
func LoadBindings(fsys fs.FS, files map[string]string) (Bindings, error) {
	b := make(Bindings, len(files))

	for label, path := range files {
		a, err := loadGIF(fsys, label, path)
		if err != nil {
			return nil, err
		}
		b[label] = a
	}

	return b, nil
}

func loadGIF(fsys fs.FS, label, path string) (*Animation, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open animation %s: %w", path, err)
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("decode animation %s: %w", path, err)
	}

	return composite(label, g)
}

func composite(label string, g *gif.GIF) (*Animation, error) {
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("animation %s: no frames", label)
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}

	a := &Animation{Name: label}
	canvas := image.NewRGBA(bounds)

	for i, frame := range g.Image {
		var previous *image.RGBA
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			previous = cloneRGBA(canvas)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		a.Frames = append(a.Frames, cloneRGBA(canvas))

		delay := minFrameDelay
		if i < len(g.Delay) && time.Duration(g.Delay[i])*10*time.Millisecond > delay {
			delay = time.Duration(g.Delay[i]) * 10 * time.Millisecond
		}
		a.Delays = append(a.Delays, delay)

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}

	return a, nil
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
