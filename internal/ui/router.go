package ui

import (
	"log/slog"

	"fyne.io/fyne/v2"
)

const (
	PathHome   = "/"
	PathCamera = "/camera"
)

// Screen is one routable view. Mount runs after the content is shown and
// Unmount when navigating away or closing the window.
type Screen interface {
	Content() fyne.CanvasObject
	Mount()
	Unmount()
}

type Navigator interface {
	Navigate(path string) bool
}

// Router swaps the window content between screens, one mounted at a time.
type Router struct {
	win    fyne.Window
	log    *slog.Logger
	routes map[string]func() Screen

	path    string
	current Screen
}

func NewRouter(win fyne.Window, log *slog.Logger) *Router {
	return &Router{
		win:    win,
		log:    log,
		routes: make(map[string]func() Screen),
	}
}

func (r *Router) Handle(path string, build func() Screen) {
	r.routes[path] = build
}

// Navigate unmounts the current screen and mounts a fresh one for path.
// Unknown paths are ignored.
func (r *Router) Navigate(path string) bool {
	build, ok := r.routes[path]
	if !ok {
		r.log.Warn("no route", "path", path)
		return false
	}

	r.unmount()

	screen := build()
	r.win.SetContent(screen.Content())
	screen.Mount()

	r.path = path
	r.current = screen
	r.log.Debug("navigated", "path", path)

	return true
}

func (r *Router) Path() string {
	return r.path
}

// Close unmounts the current screen without mounting another.
func (r *Router) Close() {
	r.unmount()
	r.path = ""
}

func (r *Router) unmount() {
	if r.current != nil {
		r.current.Unmount()
		r.current = nil
	}
}
