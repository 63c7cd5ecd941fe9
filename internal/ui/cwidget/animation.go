package cwidget

import (
	"time"

	"lambear/processing/overlay"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

// AnimationPlayer loops one overlay animation at a time. All methods must
// run on the fyne main goroutine.
type AnimationPlayer struct {
	widget.BaseWidget

	image   *canvas.Image
	anim    *fyne.Animation
	current *overlay.Animation
}

func NewAnimationPlayer(size fyne.Size) *AnimationPlayer {
	p := &AnimationPlayer{}

	p.image = canvas.NewImageFromImage(nil)
	p.image.FillMode = canvas.ImageFillContain
	p.image.SetMinSize(size)

	p.ExtendBaseWidget(p)
	p.Hide()

	return p
}

func (p *AnimationPlayer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(p.image)
}

// Play switches to a, restarting nothing if a is already playing.
func (p *AnimationPlayer) Play(a *overlay.Animation) {
	if a == nil {
		p.Stop()
		return
	}
	if p.current == a {
		return
	}

	p.Stop()

	p.current = a
	p.image.Image = a.Frames[0]
	p.image.Refresh()

	total := a.Duration()
	last := 0

	p.anim = fyne.NewAnimation(total, func(progress float32) {
		idx := a.FrameAt(time.Duration(float64(progress) * float64(total)))
		if idx == last {
			return
		}
		last = idx
		p.image.Image = a.Frames[idx]
		p.image.Refresh()
	})
	p.anim.Curve = fyne.AnimationLinear
	p.anim.RepeatCount = fyne.AnimationRepeatForever
	p.anim.Start()

	p.Show()
}

func (p *AnimationPlayer) Stop() {
	if p.anim != nil {
		p.anim.Stop()
		p.anim = nil
	}

	p.current = nil
	p.Hide()
}

// Playing returns the name of the running animation, empty when hidden.
func (p *AnimationPlayer) Playing() string {
	if p.current == nil {
		return ""
	}
	return p.current.Name
}
