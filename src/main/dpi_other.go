//go:build !windows

package main

import (
	"log"

	"screen-translate/src/screenshot"
)

func enableDPIAwareness() {}

func logMonitorConfiguration() {
	if b, err := screenshot.GetDisplayBounds(); err == nil {
		log.Printf("MONITOR: primary display %dx%d", b.Dx(), b.Dy())
	}
}
