package ui

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"lambear/internal/config"
	"lambear/internal/ui/cwidget"
	"lambear/processing/capture"
	"lambear/processing/classifier"
	processing "lambear/processing/detector"
	"lambear/processing/overlay"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// CameraDeps are the collaborators a camera screen needs for each mount.
type CameraDeps struct {
	Config     *config.Config
	Loader     classifier.Loader
	OpenStream processing.StreamOpener
	Bindings   overlay.Bindings
	Logger     *slog.Logger

	NewScheduler func() processing.Scheduler
}

type CameraScreen struct {
	nav  Navigator
	deps CameraDeps
	log  *slog.Logger

	videoCanvas *canvas.Image
	player      *cwidget.AnimationPlayer
	errorLabel  *widget.Label
	statsLabel  *widget.Label
	backButton  *widget.Button
	content     fyne.CanvasObject

	session  *processing.Session
	stopChan chan struct{}
}

func NewCameraScreen(nav Navigator, deps CameraDeps) *CameraScreen {
	s := &CameraScreen{nav: nav, deps: deps, log: deps.Logger}

	s.videoCanvas = canvas.NewImageFromImage(nil)
	s.videoCanvas.FillMode = canvas.ImageFillContain
	s.videoCanvas.SetMinSize(fyne.NewSize(640, 480))

	s.player = cwidget.NewAnimationPlayer(fyne.NewSize(400, 400))

	s.errorLabel = widget.NewLabel("")
	s.errorLabel.Importance = widget.DangerImportance
	s.errorLabel.Wrapping = fyne.TextWrapWord
	s.errorLabel.Hide()

	s.statsLabel = widget.NewLabel(formatStats(0, 0))

	s.backButton = widget.NewButtonWithIcon("Back", theme.NavigateBackIcon(), func() {
		s.nav.Navigate(PathHome)
	})

	s.content = container.NewBorder(
		container.NewVBox(s.errorLabel),
		container.NewHBox(s.backButton, widget.NewSeparator(), s.statsLabel),
		nil, nil,
		container.NewStack(s.videoCanvas, container.NewCenter(s.player)),
	)

	return s
}

func (s *CameraScreen) Content() fyne.CanvasObject { return s.content }

func (s *CameraScreen) Mount() {
	s.stopChan = make(chan struct{})

	displayFPS := s.deps.Config.GetDisplayFPS()
	newScheduler := s.deps.NewScheduler
	if newScheduler == nil {
		newScheduler = func() processing.Scheduler { return processing.NewTickerScheduler(displayFPS) }
	}

	s.session = processing.NewSession(processing.SessionOptions{
		Loader:        s.deps.Loader,
		OpenStream:    s.deps.OpenStream,
		State:         overlay.NewState(s.onOverlay),
		NewScheduler:  newScheduler,
		Logger:        s.log,
		OnError:       s.showError,
		OnStream:      s.attachStream,
		DisplayBuffer: int(s.deps.Config.GetFPS()),
	})
	s.session.Start(context.Background())

	go s.runStatLoop()
}

// Unmount tears the session down in the background so navigation never
// waits on the camera process or the gateway.
func (s *CameraScreen) Unmount() {
	close(s.stopChan)
	s.player.Stop()

	session := s.session
	go session.Stop()
}

func (s *CameraScreen) onOverlay(label string, shown bool) {
	fyne.Do(func() {
		if !shown {
			s.player.Stop()
			return
		}

		a, ok := s.deps.Bindings.Lookup(label)
		if !ok {
			s.log.Debug("no animation bound", "label", label)
			s.player.Stop()
			return
		}

		s.player.Play(a)
	})
}

func (s *CameraScreen) showError(msg string) {
	fyne.Do(func() {
		s.errorLabel.SetText(msg)
		s.errorLabel.Show()
	})
}

func (s *CameraScreen) attachStream(feed *capture.Feed) {
	go s.runPlayerLoop(feed)
}

func (s *CameraScreen) runPlayerLoop(feed *capture.Feed) {
	currentStopChan := s.stopChan

	frameRate := time.Duration(s.deps.Config.GetFPS())
	if frameRate == 0 {
		frameRate = 24
	}
	displayTicker := time.NewTicker(time.Second / frameRate)
	defer displayTicker.Stop()

	var lastFrame, shownFrame image.Image

	for {
		select {
		case frame := <-feed.Display():
			if frame != nil {
				lastFrame = frame
			}

		case <-displayTicker.C:
			if lastFrame != nil && lastFrame != shownFrame {
				frame := lastFrame
				shownFrame = frame
				fyne.Do(func() {
					s.videoCanvas.Image = frame
					s.videoCanvas.Refresh()
				})
			}

		case <-feed.Done():
			if err := feed.Err(); err != nil {
				s.log.Error("camera stream ended", "err", err)
				s.showError(processing.CameraError)
			}
			return

		case <-currentStopChan:
			return
		}
	}
}

func (s *CameraScreen) runStatLoop() {
	uiTicker := time.NewTicker(time.Millisecond * 200)
	currentStopChan := s.stopChan

	defer uiTicker.Stop()

	for {
		select {
		case <-uiTicker.C:
			latency, fps := s.session.Stats()
			fyne.Do(func() {
				s.statsLabel.SetText(formatStats(latency, fps))
			})
		case <-currentStopChan:
			return
		}
	}
}

func formatStats(latency time.Duration, fps uint) string {
	return fmt.Sprintf("FPS: %d | Latency: %d ms", fps, latency.Milliseconds())
}
