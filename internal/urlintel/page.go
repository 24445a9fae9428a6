package urlintel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/msgguard/msgguard/internal/risk"
)

// pageSignals are the features extracted from the HTTP response and HTML body.
type pageSignals struct {
	StatusCode         int
	FinalURL           string
	RedirectCount      int
	ContentType        string
	ContentLength      int
	Title              string
	Forms              int
	PasswordInputs     int
	ExternalFormAction bool
	Iframes            int
	HiddenIframes      int
	ExternalScripts    int
	MetaRefresh        bool
}

func (a *Analyzer) fetchPage(ctx context.Context, u *url.URL) (*pageSignals, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", risk.ErrFetch, err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", risk.ErrFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", risk.ErrFetch, err)
	}

	p := &pageSignals{
		StatusCode:    resp.StatusCode,
		FinalURL:      resp.Request.URL.String(),
		RedirectCount: redirectCount(resp),
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: len(body),
	}
	if isHTML(p.ContentType) {
		parseHTML(p, resp.Request.URL, body)
	}
	return p, nil
}

// redirectCount walks the chain of responses that caused each redirect.
func redirectCount(resp *http.Response) int {
	n := 0
	for r := resp.Request; r != nil && r.Response != nil; r = r.Response.Request {
		n++
	}
	return n
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "html")
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

func parseHTML(p *pageSignals, base *url.URL, body []byte) {
	z := html.NewTokenizer(bytes.NewReader(body))
	inTitle := false
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return
		case html.TextToken:
			if inTitle && p.Title == "" {
				p.Title = strings.TrimSpace(string(z.Text()))
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "title" {
				inTitle = false
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			attrs := map[string]string{}
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				attrs[string(k)] = string(v)
			}

			switch string(name) {
			case "title":
				inTitle = tt == html.StartTagToken
			case "form":
				p.Forms++
				if isExternal(base, attrs["action"]) {
					p.ExternalFormAction = true
				}
			case "input":
				if strings.EqualFold(attrs["type"], "password") {
					p.PasswordInputs++
				}
			case "iframe":
				p.Iframes++
				if isHiddenFrame(attrs) {
					p.HiddenIframes++
				}
			case "script":
				if isExternal(base, attrs["src"]) {
					p.ExternalScripts++
				}
			case "meta":
				if strings.EqualFold(attrs["http-equiv"], "refresh") {
					p.MetaRefresh = true
				}
			}
		}
	}
}

// isExternal reports whether ref resolves to a different host than base.
func isExternal(base *url.URL, ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return false
	}
	return !strings.EqualFold(resolved.Hostname(), base.Hostname())
}

func isHiddenFrame(attrs map[string]string) bool {
	if attrs["width"] == "0" || attrs["height"] == "0" {
		return true
	}
	if _, ok := attrs["hidden"]; ok {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(attrs["style"]), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

func (p *pageSignals) addTo(raw risk.RawSignals) {
	raw["status_code"] = p.StatusCode
	raw["final_url"] = p.FinalURL
	raw["redirect_count"] = p.RedirectCount
	raw["content_type"] = p.ContentType
	raw["content_length"] = p.ContentLength
	raw["title"] = p.Title
	raw["forms"] = p.Forms
	raw["password_inputs"] = p.PasswordInputs
	raw["external_form_action"] = p.ExternalFormAction
	raw["iframes"] = p.Iframes
	raw["hidden_iframes"] = p.HiddenIframes
	raw["external_scripts"] = p.ExternalScripts
	raw["meta_refresh"] = p.MetaRefresh
}
