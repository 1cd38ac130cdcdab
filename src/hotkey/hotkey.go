// Package hotkey turns a global key combination into capture triggers.
package hotkey

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"

	"screen-translate/src/eventloop"
)

const DefaultCombo = "Ctrl+Shift+T"

// Source registers Combo with gohook and posts a capture trigger every time
// it is pressed. Presses are not debounced; the loop bounds its own queue.
type Source struct {
	Combo string
}

var _ eventloop.Source = Source{}

func (s Source) Start(ctx context.Context, post func(eventloop.Trigger)) error {
	combo := s.Combo
	if strings.TrimSpace(combo) == "" {
		combo = DefaultCombo
	}
	m, err := newMatcher(combo)
	if err != nil {
		return err
	}
	log.Printf("hotkey: listening for %s", combo)

	evChan := gohook.Start()
	if evChan == nil {
		return errors.New("hotkey: gohook.Start returned nil channel")
	}
	go func() {
		<-ctx.Done()
		gohook.End()
	}()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("hotkey: PANIC in listener: %v", r)
			}
		}()
		for ev := range evChan {
			if m.feed(ev.Kind, ev.Rawcode) {
				log.Printf("hotkey: %s detected", combo)
				post(eventloop.Trigger{Kind: eventloop.Capture, Origin: "hotkey"})
			}
		}
		log.Printf("hotkey: event channel closed")
	}()
	return nil
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// matcher tracks which keys of one combination are held down.
type matcher struct {
	mu   sync.Mutex
	keys []keyState
}

func newMatcher(combo string) (*matcher, error) {
	m := &matcher{}
	for _, name := range parseHotkey(combo) {
		codes := keyNameToRawcodes(name)
		if len(codes) == 0 {
			return nil, fmt.Errorf("hotkey: cannot map key %q in %q", name, combo)
		}
		m.keys = append(m.keys, keyState{name: name, rawcodes: codes})
	}
	if len(m.keys) == 0 {
		return nil, fmt.Errorf("hotkey: no keys in %q", combo)
	}
	return m, nil
}

// feed updates key state and reports whether the full combination just completed.
// KeyHold is the raw "pressed" event; KeyDown is the typed event. The combo
// fires on the up-to-down edge of one of its keys while the others are held,
// so keeping the modifiers down and tapping the last key fires on every tap.
func (m *matcher) feed(kind uint8, rawcode uint16) bool {
	down := kind == gohook.KeyDown || kind == gohook.KeyHold
	if !down && kind != gohook.KeyUp {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	pressedNow := false
	for i := range m.keys {
		if contains(m.keys[i].rawcodes, rawcode) {
			if down && !m.keys[i].pressed {
				pressedNow = true
			}
			m.keys[i].pressed = down
		}
	}
	if !pressedNow {
		return false
	}
	for i := range m.keys {
		if !m.keys[i].pressed {
			return false
		}
	}
	return true
}

func contains(codes []uint16, c uint16) bool {
	for _, v := range codes {
		if v == c {
			return true
		}
	}
	return false
}

// parseHotkey converts a hotkey string like "Ctrl+Shift+T" to normalized key names.
func parseHotkey(combo string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(combo), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			part = "ctrl"
		case "win", "super":
			part = "cmd"
		}
		keys = append(keys, part)
	}
	return keys
}

var specialKeys = map[string]uint16{
	"space":     32, // VK_SPACE
	"enter":     13, // VK_RETURN
	"return":    13,
	"esc":       27, // VK_ESCAPE
	"escape":    27,
	"tab":       9,
	"backspace": 8,
	"delete":    46,
	"del":       46,
	"insert":    45,
	"ins":       45,
	"home":      36,
	"end":       35,
	"pageup":    33, // VK_PRIOR
	"pgup":      33,
	"pagedown":  34, // VK_NEXT
	"pgdn":      34,
	"left":      37,
	"up":        38,
	"right":     39,
	"down":      40,
}

// keyNameToRawcodes maps a key name to Windows virtual key codes. Modifiers
// yield both the left and right variants.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))

	switch keyName {
	case "ctrl":
		return []uint16{162, 163} // VK_LCONTROL, VK_RCONTROL
	case "alt":
		return []uint16{164, 165} // VK_LMENU, VK_RMENU
	case "shift":
		return []uint16{160, 161} // VK_LSHIFT, VK_RSHIFT
	case "win", "cmd", "super":
		return []uint16{91, 92} // VK_LWIN, VK_RWIN
	}

	if len(keyName) == 1 {
		c := keyName[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16('A' + c - 'a')}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c)}
		}
	}

	var n int
	if _, err := fmt.Sscanf(keyName, "f%d", &n); err == nil && n >= 1 && n <= 24 && keyName == fmt.Sprintf("f%d", n) {
		return []uint16{uint16(111 + n)} // VK_F1 = 112
	}

	if code, ok := specialKeys[keyName]; ok {
		return []uint16{code}
	}
	log.Printf("hotkey: unknown key name %q", keyName)
	return nil
}
