package main

import (
	"os"

	"lambear/assets"
	"lambear/internal/config"
	"lambear/internal/logging"
	ui "lambear/internal/ui"
	"lambear/processing/capture"
	"lambear/processing/classifier"
	"lambear/processing/overlay"

	"fyne.io/fyne/v2/app"
)

func main() {
	cfg, cfgErr := config.LoadConfigFile(config.DefaultConfigPath)
	log := logging.New(cfg.LogLevel)

	if cfgErr != nil {
		log.Warn("using default config", "err", cfgErr)
	}

	bindings, err := overlay.LoadBindings(assets.FS(), assets.AnimationFiles)
	if err != nil {
		log.Error("failed to load animations", "err", err)
		os.Exit(1)
	}

	cls := cfg.GetClassifier()

	camera := ui.CameraDeps{
		Config:   cfg,
		Loader:   classifier.NewLoader(cls.ModelURL, cls.MetadataURL, cls.GatewayURL, log),
		Bindings: bindings,
		Logger:   log,
		OpenStream: func() (capture.VideoStreamer, error) {
			return capture.NewStreamer(cfg)
		},
	}

	lambe := ui.CreateApp(app.NewWithID("ar.lambe.viewer"), cfg, camera, log)

	lambe.Run()
}
