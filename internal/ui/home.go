package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

type HomeScreen struct {
	nav Navigator

	title       *canvas.Text
	startButton *widget.Button
	content     fyne.CanvasObject
}

func NewHomeScreen(nav Navigator) *HomeScreen {
	s := &HomeScreen{nav: nav}

	s.title = canvas.NewText("LAMBE.AR Project", theme.Color(theme.ColorNameForeground))
	s.title.TextSize = 32
	s.title.TextStyle = fyne.TextStyle{Bold: true}
	s.title.Alignment = fyne.TextAlignCenter

	subtitle := widget.NewLabelWithStyle(
		"Explore the animations of the Lambe.ar project",
		fyne.TextAlignCenter,
		fyne.TextStyle{},
	)

	s.startButton = widget.NewButtonWithIcon("Open Camera", theme.MediaPlayIcon(), func() {
		s.nav.Navigate(PathCamera)
	})
	s.startButton.Importance = widget.HighImportance

	s.content = container.NewCenter(container.NewVBox(s.title, subtitle, s.startButton))

	return s
}

func (s *HomeScreen) Content() fyne.CanvasObject { return s.content }
func (s *HomeScreen) Mount()                     {}
func (s *HomeScreen) Unmount()                   {}
