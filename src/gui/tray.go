package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

const trayIconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16" width="16" height="16">
  <rect x="1" y="2" width="9" height="8" rx="1" fill="none" stroke="#0078d4" stroke-width="1.5"/>
  <text x="3" y="8.5" font-family="sans-serif" font-size="6" fill="#0078d4">A</text>
  <rect x="7" y="7" width="8" height="8" rx="1" fill="#0078d4"/>
  <text x="9" y="13.5" font-family="sans-serif" font-size="6" fill="#ffffff">文</text>
</svg>`

var TrayIcon = fyne.NewStaticResource("screen-translate.svg", []byte(trayIconSVG))

// SetupTray installs the system tray menu when the driver supports one.
// It reports whether a tray is available.
func (w *Window) SetupTray() bool {
	desk, ok := w.app.(desktop.App)
	if !ok {
		return false
	}
	quit := fyne.NewMenuItem("Quit", func() { w.app.Quit() })
	quit.IsQuit = true
	menu := fyne.NewMenu(Title,
		fyne.NewMenuItem("Capture & Translate", w.Capture),
		fyne.NewMenuItem("Show Window", func() {
			w.win.Show()
			w.win.RequestFocus()
		}),
		fyne.NewMenuItemSeparator(),
		quit,
	)
	desk.SetSystemTrayMenu(menu)
	desk.SetSystemTrayIcon(TrayIcon)
	return true
}
