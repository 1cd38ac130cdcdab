package translate

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

const (
	defaultMobileURL = "https://translate.google.com"
	mobileUserAgent  = "Mozilla/4.0 (compatible;MSIE 6.0;Windows NT 5.1;SV1;.NET CLR 1.1.4322;.NET CLR 2.0.50727;.NET CLR 3.0.04506.30)"
)

var errNoMobileResult = errors.New("no result element in page")

// mobileTranslator scrapes the lightweight mobile translation page. It only
// takes a target language; the source is always auto-detected.
type mobileTranslator struct {
	base string
	http *http.Client
}

var _ Backend = (*mobileTranslator)(nil)

func newMobileTranslator(opts Options) *mobileTranslator {
	base := opts.MobileURL
	if base == "" {
		base = defaultMobileURL
	}
	return &mobileTranslator{base: strings.TrimRight(base, "/"), http: opts.httpClient()}
}

func (m *mobileTranslator) Name() Name { return MTranslate }

func (m *mobileTranslator) Translate(ctx context.Context, req Request) (string, error) {
	q := url.Values{}
	q.Set("tl", req.Target)
	q.Set("sl", DefaultSource)
	q.Set("q", req.Text)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, m.base+"/m?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("User-Agent", mobileUserAgent)

	resp, err := m.http.Do(httpReq)
	if err != nil {
		return "", &Error{Kind: classifyTransport(err), Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &Error{Kind: KindNetwork, Message: "failed to read response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, body, KindUnsupportedLanguage)
	}

	text, err := parseMobileResult(bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindUnknown, Message: "unexpected page", Err: err}
	}
	return text, nil
}

var voidElements = map[string]bool{"br": true, "img": true, "hr": true, "wbr": true, "input": true, "meta": true, "link": true}

// parseMobileResult returns the unescaped text of the first element whose class
// is "result-container" (or the older "t0").
func parseMobileResult(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	depth := 0
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				if depth > 0 {
					return b.String(), nil
				}
				return "", errNoMobileResult
			}
			return "", z.Err()
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if depth > 0 {
				if !voidElements[string(name)] {
					depth++
				}
				continue
			}
			if hasAttr && hasResultClass(z) {
				depth = 1
			}
		case html.EndTagToken:
			if depth > 0 {
				depth--
				if depth == 0 {
					return b.String(), nil
				}
			}
		case html.TextToken:
			if depth > 0 {
				b.Write(z.Text())
			}
		}
	}
}

func hasResultClass(z *html.Tokenizer) bool {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "class" {
			for _, c := range strings.Fields(string(val)) {
				if c == "result-container" || c == "t0" {
					return true
				}
			}
		}
		if !more {
			return false
		}
	}
}
