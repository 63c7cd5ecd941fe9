package ui

import (
	"log/slog"

	"lambear/internal/config"

	"fyne.io/fyne/v2"
)

type LambeApp struct {
	fyneApp fyne.App
	mainWin fyne.Window

	config *config.Config
	log    *slog.Logger
	router *Router
	camera CameraDeps
}

func CreateApp(a fyne.App, cfg *config.Config, camera CameraDeps, log *slog.Logger) *LambeApp {
	w := a.NewWindow("LAMBE.AR")
	w.Resize(fyne.NewSize(1024, 720))

	app := &LambeApp{
		fyneApp: a,
		mainWin: w,
		config:  cfg,
		log:     log,
		router:  NewRouter(w, log),
		camera:  camera,
	}

	app.router.Handle(PathHome, func() Screen {
		return NewHomeScreen(app.router)
	})
	app.router.Handle(PathCamera, func() Screen {
		return NewCameraScreen(app.router, app.camera)
	})

	w.SetCloseIntercept(app.close)

	return app
}

func (a *LambeApp) Router() *Router {
	return a.router
}

func (a *LambeApp) Window() fyne.Window {
	return a.mainWin
}

func (a *LambeApp) Run() {
	a.router.Navigate(PathHome)

	a.mainWin.CenterOnScreen()
	a.mainWin.ShowAndRun()
}

func (a *LambeApp) close() {
	a.router.Close()

	if err := a.config.SaveByDefault(); err != nil {
		a.log.Warn("failed to save config", "err", err)
	}

	a.mainWin.Close()
}
