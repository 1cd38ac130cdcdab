// Package notification shows desktop notifications for runs the user did not
// start from the window.
package notification

import (
	"log"
	"strings"

	"github.com/gen2brain/beeep"
)

const (
	Title     = "Screen Text Translator"
	maxLength = 200
)

// notify is swapped in tests.
var notify = func(title, message string) error {
	return beeep.Notify(title, message, "")
}

// ShowResult displays a short notification with the translation.
func ShowResult(text string) {
	show(Title, truncate(text))
}

// ShowError displays a failure notification.
func ShowError(message string) {
	show(Title+": error", truncate(message))
}

func show(title, message string) {
	if err := notify(title, message); err != nil {
		log.Printf("notification: failed to show %q: %v", title, err)
	}
}

func truncate(text string) string {
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > maxLength {
		return string(r[:maxLength]) + "..."
	}
	return text
}
