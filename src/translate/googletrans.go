package translate

import (
	"context"
	"strings"

	translator "github.com/Conight/go-googletrans"
)

// googleTrans wraps the legacy unofficial web client. The client has no
// context support, so calls are raced against ctx.
type googleTrans struct {
	client *translator.Translator
}

var _ Backend = (*googleTrans)(nil)

func newGoogleTrans(opts Options) *googleTrans {
	cfg := translator.Config{Proxy: opts.Proxy}
	if opts.GoogleTransURL != "" {
		cfg.ServiceUrls = []string{opts.GoogleTransURL}
	}
	return &googleTrans{client: translator.New(cfg)}
}

func (g *googleTrans) Name() Name { return GoogleTrans }

func (g *googleTrans) Translate(ctx context.Context, req Request) (string, error) {
	type outcome struct {
		text string
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := g.client.Translate(req.Text, req.Source, req.Target)
		if err != nil {
			ch <- outcome{err: err}
			return
		}
		ch <- outcome{text: res.Text}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			return "", &Error{Kind: classifyGoogleTrans(o.err), Err: o.err}
		}
		return o.text, nil
	case <-ctx.Done():
		return "", &Error{Kind: KindNetwork, Err: ctx.Err()}
	}
}

func classifyGoogleTrans(err error) Kind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "language"):
		return KindUnsupportedLanguage
	case strings.Contains(msg, "429") || strings.Contains(msg, "too many"):
		return KindQuota
	default:
		return KindNetwork
	}
}
