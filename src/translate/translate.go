// Package translate sends extracted text to one of a closed set of
// translation backends.
package translate

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// Name identifies a translation backend.
type Name string

const (
	Google      Name = "google"
	DeepL       Name = "deepl"
	MTranslate  Name = "mtranslate"
	GoogleTrans Name = "googletrans"
)

const (
	DefaultSource = "auto"
	DefaultTarget = "en"

	// NoTextDetected is returned instead of calling a backend for empty input.
	NoTextDetected = "No text detected."
	// ErrorPrefix starts every failure shown to the user.
	ErrorPrefix = "Translation Error: "
)

// Names lists every backend in selector order.
func Names() []Name {
	return []Name{Google, DeepL, MTranslate, GoogleTrans}
}

// ParseName validates a backend name. Matching is exact, like the selector values.
func ParseName(s string) (Name, error) {
	for _, n := range Names() {
		if string(n) == s {
			return n, nil
		}
	}
	return "", &Error{Kind: KindUnsupportedBackend, Backend: Name(s), Message: "unsupported backend"}
}

// Request is one translation call. Language codes are passed through as-is;
// each backend has its own convention (DeepL wants e.g. "EN-US").
type Request struct {
	Text    string
	Source  string
	Target  string
	Backend Name
}

func (r Request) withDefaults() Request {
	if strings.TrimSpace(r.Source) == "" {
		r.Source = DefaultSource
	}
	if strings.TrimSpace(r.Target) == "" {
		r.Target = DefaultTarget
	}
	return r
}

// Backend is one translation provider.
type Backend interface {
	Name() Name
	Translate(ctx context.Context, req Request) (string, error)
}

// Options configures the built-in backends.
type Options struct {
	DeepLAPIKey string
	// Proxy is passed to the googletrans client (e.g. $http_proxy).
	Proxy      string
	HTTPClient *http.Client

	// Base URLs, overridable for tests.
	GoogleURL      string
	DeepLURL       string
	MobileURL      string
	GoogleTransURL string
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// Translator dispatches requests to registered backends.
type Translator struct {
	backends map[Name]Backend
}

// New registers the given backends. Later backends replace earlier ones with the same name.
func New(backends ...Backend) *Translator {
	t := &Translator{backends: make(map[Name]Backend, len(backends))}
	for _, b := range backends {
		t.backends[b.Name()] = b
	}
	return t
}

// NewDefault builds a Translator with all four built-in backends.
func NewDefault(opts Options) *Translator {
	return New(
		newProviderClient(Google, opts),
		newProviderClient(DeepL, opts),
		newMobileTranslator(opts),
		newGoogleTrans(opts),
	)
}

// Translate returns the translated text or an *Error. Empty text short-circuits
// to NoTextDetected without touching any backend.
func (t *Translator) Translate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return NoTextDetected, nil
	}
	b, ok := t.backends[req.Backend]
	if !ok {
		return "", &Error{Kind: KindUnsupportedBackend, Backend: req.Backend, Message: "unsupported backend"}
	}

	req = req.withDefaults()
	start := time.Now()
	text, err := b.Translate(ctx, req)
	if err != nil {
		err = wrap(req.Backend, err)
		log.Printf("translate: %s %s->%s failed after %v: %v", req.Backend, req.Source, req.Target, time.Since(start), err)
		return "", err
	}
	log.Printf("translate: %s %s->%s ok in %v (%d chars)", req.Backend, req.Source, req.Target, time.Since(start), len(text))
	return text, nil
}

// Display renders a translation outcome the way the window shows it.
func Display(text string, err error) string {
	if err != nil {
		return fmt.Sprintf("%s%s", ErrorPrefix, Message(err))
	}
	return text
}
