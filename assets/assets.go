// Package assets bundles the overlay animations into the binary.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed animations/*.gif
var files embed.FS

// AnimationFiles binds each supported class name to its animation asset.
var AnimationFiles = map[string]string{
	"Lambe1": "animations/lambe1.gif",
	"Lambe2": "animations/lambe2.gif",
	"Lambe3": "animations/lambe3.gif",
	"Lambe4": "animations/lambe4.gif",
}

func FS() fs.FS {
	return files
}
