// Package gui is the translator window: selectors, action buttons and the
// extracted, translated and history panes.
package gui

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"screen-translate/src/eventloop"
	"screen-translate/src/session"
	"screen-translate/src/translate"
)

const (
	Title = "Screen Text Translator"

	statusIdle = "Ready"
	statusBusy = "Processing..."
)

type Options struct {
	App      fyne.App
	Defaults session.Settings
	// Post hands a trigger to the event loop.
	Post func(eventloop.Trigger) bool
	// Copy writes text to the clipboard; nil hides the copy button.
	Copy func(text string) error
}

// Window implements session.Target. Widget writes are marshalled onto the
// fyne thread, so its methods may be called from any goroutine.
type Window struct {
	app  fyne.App
	win  fyne.Window
	post func(eventloop.Trigger) bool
	copy func(string) error

	backend    *widget.Select
	source     *widget.Entry
	target     *widget.Entry
	extracted  *widget.Entry
	translated *widget.Entry
	history    *widget.Entry
	status     *widget.Label

	captureBtn *widget.Button
	overlayBtn *widget.Button
	historyBtn *widget.Button
	copyBtn    *widget.Button

	mu       sync.Mutex
	settings session.Settings
}

var _ session.Target = (*Window)(nil)

func New(opts Options) *Window {
	w := &Window{
		app:      opts.App,
		post:     opts.Post,
		copy:     opts.Copy,
		settings: withDefaults(opts.Defaults),
	}
	w.win = opts.App.NewWindow(Title)
	w.win.SetContent(w.build())
	w.win.Resize(fyne.NewSize(700, 600))
	w.win.SetMaster()
	return w
}

func withDefaults(s session.Settings) session.Settings {
	if _, err := translate.ParseName(string(s.Backend)); err != nil {
		s.Backend = translate.Google
	}
	if strings.TrimSpace(s.Source) == "" {
		s.Source = translate.DefaultSource
	}
	if strings.TrimSpace(s.Target) == "" {
		s.Target = translate.DefaultTarget
	}
	return s
}

func (w *Window) build() fyne.CanvasObject {
	names := translate.Names()
	options := make([]string, len(names))
	for i, n := range names {
		options[i] = string(n)
	}

	w.backend = widget.NewSelect(options, func(v string) {
		w.update(func(s *session.Settings) { s.Backend = translate.Name(v) })
	})
	w.backend.SetSelected(string(w.settings.Backend))

	w.source = widget.NewEntry()
	w.source.SetText(w.settings.Source)
	w.source.OnChanged = func(v string) {
		w.update(func(s *session.Settings) { s.Source = strings.TrimSpace(v) })
	}
	w.target = widget.NewEntry()
	w.target.SetText(w.settings.Target)
	w.target.OnChanged = func(v string) {
		w.update(func(s *session.Settings) { s.Target = strings.TrimSpace(v) })
	}

	form := widget.NewForm(
		widget.NewFormItem("Translator", w.backend),
		widget.NewFormItem("Source language", w.source),
		widget.NewFormItem("Target language", w.target),
	)

	w.captureBtn = widget.NewButton("Capture & Translate", func() { w.trigger(eventloop.Capture) })
	w.captureBtn.Importance = widget.HighImportance
	w.overlayBtn = widget.NewButton("Show Overlay", func() { w.trigger(eventloop.Overlay) })
	w.historyBtn = widget.NewButton("View Saved Translations", func() { w.trigger(eventloop.History) })
	buttons := container.NewHBox(w.captureBtn, w.overlayBtn, w.historyBtn)
	if w.copy != nil {
		w.copyBtn = widget.NewButton("Copy Translation", w.copyTranslation)
		buttons.Add(w.copyBtn)
	}

	w.status = widget.NewLabel(statusIdle)
	w.extracted = newPane()
	w.translated = newPane()
	w.history = newPane()

	panes := container.NewGridWithRows(3,
		labelled("Extracted Text:", w.extracted),
		labelled("Translated Text:", w.translated),
		labelled("Saved Translations:", w.history),
	)
	return container.NewBorder(container.NewVBox(form, buttons, w.status), nil, nil, nil, panes)
}

func newPane() *widget.Entry {
	e := widget.NewMultiLineEntry()
	e.Wrapping = fyne.TextWrapWord
	return e
}

func labelled(title string, obj fyne.CanvasObject) fyne.CanvasObject {
	return container.NewBorder(widget.NewLabelWithStyle(title, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}), nil, nil, nil, obj)
}

func (w *Window) update(fn func(s *session.Settings)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.settings)
}

// Settings returns a snapshot of the selectors. Safe from any goroutine.
func (w *Window) Settings() session.Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settings
}

func (w *Window) trigger(kind eventloop.TriggerKind) {
	if w.post == nil {
		return
	}
	if !w.post(eventloop.Trigger{Kind: kind, Origin: "button"}) {
		w.status.SetText("Busy, please retry")
	}
}

// Capture posts a capture trigger as if the button had been pressed.
func (w *Window) Capture() { w.trigger(eventloop.Capture) }

func (w *Window) copyTranslation() {
	text := w.translated.Text
	if strings.TrimSpace(text) == "" {
		w.status.SetText("Nothing to copy")
		return
	}
	if err := w.copy(text); err != nil {
		log.Printf("gui: copy failed: %v", err)
		w.status.SetText(fmt.Sprintf("Copy failed: %v", err))
		return
	}
	w.status.SetText("Translation copied to clipboard")
}

func (w *Window) SetExtracted(text string) {
	fyne.Do(func() { w.extracted.SetText(text) })
}

func (w *Window) SetTranslated(text string) {
	fyne.Do(func() { w.translated.SetText(text) })
}

func (w *Window) OnFailure(err error) {
	msg := fmt.Sprintf("Error: %v", err)
	fyne.Do(func() {
		w.translated.SetText(msg)
		w.status.SetText(msg)
	})
}

// SetHistory replaces the saved-translations pane.
func (w *Window) SetHistory(text string) {
	fyne.Do(func() { w.history.SetText(text) })
}

// SetBusy reflects whether the loop is running a job.
func (w *Window) SetBusy(busy bool) {
	fyne.Do(func() {
		if busy {
			w.status.SetText(statusBusy)
			w.captureBtn.Disable()
			w.overlayBtn.Disable()
			return
		}
		if w.status.Text == statusBusy {
			w.status.SetText(statusIdle)
		}
		w.captureBtn.Enable()
		w.overlayBtn.Enable()
	})
}

func (w *Window) Show() { w.win.Show() }

func (w *Window) ShowAndRun() { w.win.ShowAndRun() }

func (w *Window) FyneWindow() fyne.Window { return w.win }
