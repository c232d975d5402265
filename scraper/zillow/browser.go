package zillow

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"housing-listings/apperrors"
	"housing-listings/utils"
)

// BrowserSession warms up through headless Chrome for the cases where the
// plain HTTP client is served a challenge page.
type BrowserSession struct {
	opts      ClientOptions
	root      *url.URL
	chromeBin string
	settle    time.Duration
	logger    *utils.Logger
}

func NewBrowserSession(opts ClientOptions, chromeBin string) (*BrowserSession, error) {
	root, err := opts.rootURL()
	if err != nil {
		return nil, err
	}
	return &BrowserSession{
		opts:      opts,
		root:      root,
		chromeBin: chromeBin,
		settle:    5 * time.Second,
		logger:    opts.logger(),
	}, nil
}

// WarmUp loads the root page in a fresh browser and copies its cookies into
// a new jar.
func (b *BrowserSession) WarmUp(ctx context.Context) (*CookieContext, error) {
	chromeBin := findChromeBinary(b.chromeBin)
	b.logger.Info("[zillow] Using browser binary: %s", chromeBin)

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(b.opts.UserAgent),
	)
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	timeout := b.opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	runCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout+b.settle)
	defer cancelTimeout()

	root := b.root.String()
	var cookies []*network.Cookie
	err := chromedp.Run(runCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": b.opts.AcceptLanguage}),
		chromedp.Navigate(root),
		chromedp.Sleep(b.settle),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = rootCookies(root).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, apperrors.Transport("browser warm-up", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, apperrors.Internal("create cookie jar", err)
	}
	jar.SetCookies(b.root, toHTTPCookies(cookies))

	b.logger.Info("[zillow] Browser warm-up done, %d cookies stored", len(cookies))
	return &CookieContext{BaseURL: b.root, Jar: jar, Source: "browser"}, nil
}

// rootCookies asks for the cookies scoped to root only, not every frame the
// page loaded.
func rootCookies(root string) *network.GetCookiesParams {
	return network.GetCookies().WithUrls([]string{root})
}

func toHTTPCookies(in []*network.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(in))
	for _, c := range in {
		if c == nil || c.Name == "" {
			continue
		}
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if !c.Session && c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		out = append(out, hc)
	}
	return out
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// NewWarmer picks the warm-up implementation for the configured mode.
func NewWarmer(mode string, opts ClientOptions, chromeBin string) (Warmer, error) {
	switch mode {
	case "", "http":
		return NewSessionClient(opts)
	case "browser":
		return NewBrowserSession(opts, chromeBin)
	default:
		return nil, apperrors.Validation("unknown warm-up mode "+mode, nil)
	}
}
