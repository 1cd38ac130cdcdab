package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultGoogleURL    = "https://translate.googleapis.com"
	defaultDeepLURL     = "https://api.deepl.com"
	defaultDeepLFreeURL = "https://api-free.deepl.com"
	maxResponseBytes    = 1 << 20
)

// provider describes how one service is spoken to by providerClient.
type provider struct {
	buildRequest func(ctx context.Context, req Request) (*http.Request, error)
	parse        func(body []byte) (string, error)
	// badRequest is what an HTTP 400 means when the body gives no hint.
	badRequest Kind
}

// providerClient is a generic HTTP translation client configured by provider name.
type providerClient struct {
	name Name
	p    provider
	http *http.Client
}

var _ Backend = (*providerClient)(nil)

func newProviderClient(name Name, opts Options) *providerClient {
	c := &providerClient{name: name, http: opts.httpClient()}
	switch name {
	case Google:
		c.p = googleProvider(opts)
	case DeepL:
		c.p = deeplProvider(opts)
	default:
		panic(fmt.Sprintf("translate: no generic provider for %q", name))
	}
	return c
}

func (c *providerClient) Name() Name { return c.name }

func (c *providerClient) Translate(ctx context.Context, req Request) (string, error) {
	httpReq, err := c.p.buildRequest(ctx, req)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", &Error{Kind: classifyTransport(err), Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &Error{Kind: KindNetwork, Message: "failed to read response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, body, c.p.badRequest)
	}

	text, err := c.p.parse(body)
	if err != nil {
		return "", &Error{Kind: KindUnknown, Message: "unexpected response", Err: err}
	}
	return text, nil
}

// googleProvider uses the public gtx endpoint.
func googleProvider(opts Options) provider {
	base := opts.GoogleURL
	if base == "" {
		base = defaultGoogleURL
	}
	return provider{
		badRequest: KindUnsupportedLanguage,
		buildRequest: func(ctx context.Context, req Request) (*http.Request, error) {
			q := url.Values{}
			q.Set("client", "gtx")
			q.Set("sl", req.Source)
			q.Set("tl", req.Target)
			q.Set("dt", "t")
			q.Set("q", req.Text)
			return http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/translate_a/single?"+q.Encode(), nil)
		},
		parse: parseGoogleResponse,
	}
}

// parseGoogleResponse concatenates the translated segments of
// [[["translated","original",...],...],...].
func parseGoogleResponse(body []byte) (string, error) {
	var root []json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return "", err
	}
	if len(root) == 0 {
		return "", errors.New("empty response")
	}
	var segments [][]interface{}
	if err := json.Unmarshal(root[0], &segments); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			b.WriteString(s)
		}
	}
	return b.String(), nil
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// deeplProvider uses the DeepL v2 REST API. Free keys end in ":fx".
func deeplProvider(opts Options) provider {
	key := opts.DeepLAPIKey
	base := opts.DeepLURL
	if base == "" {
		base = defaultDeepLURL
		if strings.HasSuffix(key, ":fx") {
			base = defaultDeepLFreeURL
		}
	}
	return provider{
		badRequest: KindUnknown,
		buildRequest: func(ctx context.Context, req Request) (*http.Request, error) {
			if key == "" {
				return nil, &Error{Kind: KindAuth, Message: "DEEPL_API_KEY is not configured"}
			}
			form := url.Values{}
			form.Set("text", req.Text)
			form.Set("target_lang", req.Target)
			if !strings.EqualFold(req.Source, DefaultSource) {
				form.Set("source_lang", req.Source)
			}
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/v2/translate", strings.NewReader(form.Encode()))
			if err != nil {
				return nil, err
			}
			httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+key)
			return httpReq, nil
		},
		parse: func(body []byte) (string, error) {
			var r deeplResponse
			if err := json.Unmarshal(body, &r); err != nil {
				return "", err
			}
			if len(r.Translations) == 0 {
				return "", errors.New("no translations in response")
			}
			parts := make([]string, len(r.Translations))
			for i, t := range r.Translations {
				parts[i] = t.Text
			}
			return strings.Join(parts, "\n"), nil
		},
	}
}
