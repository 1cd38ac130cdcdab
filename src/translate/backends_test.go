package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGoogleProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate_a/single" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("sl") != "auto" || q.Get("tl") != "de" || q.Get("q") != "Hello. World" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`[[["Hallo. ","Hello. ",null,null,10],["Welt","World",null,null,10]],null,"en"]`))
	}))
	defer srv.Close()

	tr := NewDefault(Options{GoogleURL: srv.URL})
	got, err := tr.Translate(context.Background(), Request{Text: "Hello. World", Target: "de", Backend: Google})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Hallo. Welt" {
		t.Errorf("got %q", got)
	}
}

func TestGoogleProviderBadLanguage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Error 400 (Bad Request)", http.StatusBadRequest)
	}))
	defer srv.Close()

	tr := NewDefault(Options{GoogleURL: srv.URL})
	_, err := tr.Translate(context.Background(), Request{Text: "x", Target: "zz", Backend: Google})
	if !IsKind(err, KindUnsupportedLanguage) {
		t.Fatalf("kind = %v, want unsupported-language (%v)", KindOf(err), err)
	}
}

func TestDeepLProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/translate" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "DeepL-Auth-Key secret:fx" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("target_lang") != "EN-US" {
			t.Errorf("target_lang = %q", r.PostForm.Get("target_lang"))
		}
		if _, ok := r.PostForm["source_lang"]; ok {
			t.Error("source_lang must be omitted for auto")
		}
		w.Write([]byte(`{"translations":[{"detected_source_language":"DE","text":"Good morning"}]}`))
	}))
	defer srv.Close()

	tr := NewDefault(Options{DeepLAPIKey: "secret:fx", DeepLURL: srv.URL})
	got, err := tr.Translate(context.Background(), Request{Text: "Guten Morgen", Source: "auto", Target: "EN-US", Backend: DeepL})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Good morning" {
		t.Errorf("got %q", got)
	}
}

func TestDeepLErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   Kind
	}{
		{http.StatusForbidden, `{"message":"Wrong endpoint"}`, KindAuth},
		{456, `{"message":"Quota exceeded"}`, KindQuota},
		{http.StatusTooManyRequests, ``, KindQuota},
		{http.StatusBadRequest, `{"message":"Value for 'target_lang' not supported."}`, KindUnsupportedLanguage},
		{http.StatusServiceUnavailable, ``, KindNetwork},
		{http.StatusTeapot, ``, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			tr := NewDefault(Options{DeepLAPIKey: "k", DeepLURL: srv.URL})
			_, err := tr.Translate(context.Background(), Request{Text: "x", Target: "EN-US", Backend: DeepL})
			if KindOf(err) != tt.want {
				t.Errorf("kind = %v, want %v (%v)", KindOf(err), tt.want, err)
			}
		})
	}
}

func TestDeepLMissingKey(t *testing.T) {
	tr := NewDefault(Options{})
	_, err := tr.Translate(context.Background(), Request{Text: "x", Backend: DeepL})
	if !IsKind(err, KindAuth) {
		t.Fatalf("kind = %v, want auth", KindOf(err))
	}
}

func TestDeepLFreeEndpointSelection(t *testing.T) {
	var seen string
	opts := Options{
		DeepLAPIKey: "abc:fx",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			seen = r.URL.Host
			return &http.Response{StatusCode: 200, Body: http.NoBody, Header: http.Header{}}, nil
		})},
	}
	_, _ = NewDefault(opts).Translate(context.Background(), Request{Text: "x", Backend: DeepL})
	if seen != "api-free.deepl.com" {
		t.Errorf("host = %q, want api-free.deepl.com", seen)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestMobileTranslator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/m" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("sl") != "auto" || q.Get("tl") != "fr" {
			t.Errorf("query = %v", q)
		}
		if !strings.Contains(r.Header.Get("User-Agent"), "MSIE") {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`<html><body><div class="other">nope</div><div class="result-container">Bonjour &amp; <b>salut</b><br>!</div></body></html>`))
	}))
	defer srv.Close()

	tr := NewDefault(Options{MobileURL: srv.URL})
	got, err := tr.Translate(context.Background(), Request{Text: "Hello & hi!", Source: "en", Target: "fr", Backend: MTranslate})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Bonjour & salut!" {
		t.Errorf("got %q", got)
	}
}

func TestParseMobileResult(t *testing.T) {
	tests := []struct {
		name    string
		page    string
		want    string
		wantErr bool
	}{
		{"legacy t0", `<div dir="ltr" class="t0">Hola</div>`, "Hola", false},
		{"nested", `<div class="a result-container"><span>uno</span> dos</div><div>tres</div>`, "uno dos", false},
		{"missing", `<div class="x">nothing</div>`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMobileResult(strings.NewReader(tt.page))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNetworkTimeoutKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	tr := NewDefault(Options{GoogleURL: srv.URL})
	_, err := tr.Translate(ctx, Request{Text: "x", Backend: Google})
	if !IsKind(err, KindNetwork) {
		t.Fatalf("kind = %v, want network (%v)", KindOf(err), err)
	}
}

func TestGoogleTransContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := newGoogleTrans(Options{GoogleTransURL: "127.0.0.1:1"})
	_, err := g.Translate(ctx, Request{Text: "x", Source: "auto", Target: "en"})
	if err == nil {
		t.Fatal("expected error")
	}
	if k := KindOf(err); k != KindNetwork && k != KindUnsupportedLanguage {
		t.Errorf("kind = %v", k)
	}
}

func TestClassifyGoogleTrans(t *testing.T) {
	if classifyGoogleTrans(errTest("invalid destination language")) != KindUnsupportedLanguage {
		t.Error("language errors should be unsupported-language")
	}
	if classifyGoogleTrans(errTest("429 Too Many Requests")) != KindQuota {
		t.Error("429 should be quota")
	}
	if classifyGoogleTrans(errTest("dial tcp: refused")) != KindNetwork {
		t.Error("other errors should be network")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
