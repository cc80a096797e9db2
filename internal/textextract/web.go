package textextract

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"
)

// WebResult carries the extracted article markdown plus whether
// readability extraction actually fired (as opposed to a raw-body
// fallback, which is reported as degraded).
type WebResult struct {
	Title    string
	Markdown string
	Degraded bool
}

// WebFetcher retrieves a URL and extracts readable article content,
// converting the retained markup to Markdown for chunking.
type WebFetcher struct {
	client   *http.Client
	maxBytes int64
	userAgent string
}

func NewWebFetcher(timeout time.Duration, maxBytes int64) *WebFetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 8 * 1000 * 1000
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConnsPerHost: 4,
	}
	return &WebFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 8 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		maxBytes:  maxBytes,
		userAgent: "corectx-ingest/1.0 (+retrieval pipeline)",
	}
}

// Fetch retrieves rawURL and returns its article text as Markdown. A
// non-HTML response is returned as a fenced code block, and an HTML page
// where readability finds no article is converted to Markdown whole; both
// set Degraded.
func (f *WebFetcher) Fetch(ctx context.Context, rawURL string) (WebResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return WebResult{}, fmt.Errorf("invalid url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return WebResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return WebResult{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return WebResult{}, fmt.Errorf("read body: %w", err)
	}

	ctype, charsetLabel := parseContentType(resp.Header.Get("Content-Type"))
	body, err = toUTF8(body, charsetLabel)
	if err != nil {
		return WebResult{}, fmt.Errorf("decode charset: %w", err)
	}

	if !isHTML(ctype) {
		return WebResult{Markdown: fenced(string(body), guessFenceLanguage(ctype)), Degraded: true}, nil
	}

	base := baseOrigin(resp.Request.URL.String())
	art, rerr := readability.FromReader(strings.NewReader(string(body)), resp.Request.URL)
	if rerr != nil || strings.TrimSpace(art.Content) == "" {
		md, _ := htmltomarkdown.ConvertString(string(body), converter.WithDomain(base))
		return WebResult{Markdown: md, Degraded: true}, nil
	}

	md, mdErr := htmltomarkdown.ConvertString(art.Content, converter.WithDomain(base))
	if mdErr != nil {
		return WebResult{Title: strings.TrimSpace(art.Title), Markdown: art.TextContent, Degraded: true}, nil
	}

	return WebResult{Title: strings.TrimSpace(art.Title), Markdown: md}, nil
}

func parseContentType(h string) (ctype, charsetLabel string) {
	if h == "" {
		return "", ""
	}
	ct, params, err := mime.ParseMediaType(h)
	if err != nil {
		return strings.TrimSpace(strings.Split(h, ";")[0]), ""
	}
	return ct, params["charset"]
}

func isHTML(ct string) bool {
	return ct == "text/html" || ct == "application/xhtml+xml" || strings.HasSuffix(ct, "html")
}

func toUTF8(b []byte, charsetLabel string) ([]byte, error) {
	if charsetLabel == "" || strings.EqualFold(charsetLabel, "utf-8") || strings.EqualFold(charsetLabel, "utf8") {
		return b, nil
	}
	r, err := charset.NewReaderLabel(charsetLabel, strings.NewReader(string(b)))
	if err != nil {
		return b, nil
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return b, nil
	}
	return out, nil
}

func baseOrigin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func guessFenceLanguage(ct string) string {
	switch ct {
	case "text/markdown":
		return "md"
	case "application/json":
		return "json"
	case "text/csv":
		return "csv"
	default:
		return ""
	}
}

func fenced(s, lang string) string {
	s = strings.TrimRight(s, "\n")
	if lang != "" {
		return "```" + lang + "\n" + s + "\n```"
	}
	return "```\n" + s + "\n```"
}
