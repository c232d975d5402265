package zillow

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"housing-listings/apperrors"
	"housing-listings/config"
	"housing-listings/utils"
)

const htmlAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8"

// CookieContext is the session state produced by a warm-up and consumed by
// the search request.
type CookieContext struct {
	BaseURL *url.URL
	Jar     http.CookieJar
	// Source names the warm-up that produced the cookies (http or browser).
	Source string
}

// Cookies returns the cookies the jar would send to u.
func (c *CookieContext) Cookies(u *url.URL) []*http.Cookie {
	if c == nil || c.Jar == nil {
		return nil
	}
	return c.Jar.Cookies(u)
}

// Warmer acquires session cookies before the search request.
type Warmer interface {
	WarmUp(ctx context.Context) (*CookieContext, error)
}

// ClientOptions configures the HTTP side of the scraper.
type ClientOptions struct {
	BaseURL          string
	SearchPath       string
	UserAgent        string
	AcceptLanguage   string
	Timeout          time.Duration
	CloudflareBypass bool
	Logger           *utils.Logger
}

// OptionsFromConfig maps application config onto ClientOptions.
func OptionsFromConfig(cfg *config.Config, logger *utils.Logger) ClientOptions {
	return ClientOptions{
		BaseURL:          cfg.ZillowBaseURL,
		SearchPath:       cfg.SearchPath,
		UserAgent:        cfg.UserAgent,
		AcceptLanguage:   cfg.AcceptLanguage,
		Timeout:          cfg.HTTPTimeout,
		CloudflareBypass: cfg.CloudflareBypass,
		Logger:           logger,
	}
}

func (o ClientOptions) logger() *utils.Logger {
	if o.Logger == nil {
		return utils.NewNopLogger()
	}
	return o.Logger
}

func (o ClientOptions) rootURL() (*url.URL, error) {
	base, err := url.Parse(strings.TrimRight(o.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("zillow: invalid base url %q: %w", o.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("zillow: base url %q needs a scheme and host", o.BaseURL)
	}
	return base, nil
}

func newHTTPClient(opts ClientOptions) *resty.Client {
	client := resty.New()
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetHeader("Accept-Language", opts.AcceptLanguage)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	return client
}

// SessionClient performs the plain HTTP warm-up against the site root.
type SessionClient struct {
	opts   ClientOptions
	root   *url.URL
	logger *utils.Logger
}

func NewSessionClient(opts ClientOptions) (*SessionClient, error) {
	root, err := opts.rootURL()
	if err != nil {
		return nil, err
	}
	return &SessionClient{opts: opts, root: root, logger: opts.logger()}, nil
}

// WarmUp GETs the root page with browser-like headers and keeps whatever
// cookies the site sets. Every call starts from an empty jar. There is no
// retry: a failure aborts the current ingestion attempt.
func (s *SessionClient) WarmUp(ctx context.Context) (*CookieContext, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, apperrors.Internal("create cookie jar", err)
	}

	client := newHTTPClient(s.opts)
	client.SetCookieJar(jar)

	res, err := client.R().
		SetContext(ctx).
		SetHeader("Accept", htmlAccept).
		Get(s.root.String())
	if err != nil {
		return nil, apperrors.Transport("warm-up request", err)
	}
	if !res.IsSuccess() {
		return nil, apperrors.Transport(fmt.Sprintf("warm-up returned status %d", res.StatusCode()), nil)
	}
	if isChallengePage(res.Body()) {
		return nil, apperrors.Transport("warm-up landed on a bot challenge page", nil)
	}

	s.logger.Info("[zillow] Warm-up done, %d cookies stored", len(jar.Cookies(s.root)))
	return &CookieContext{BaseURL: s.root, Jar: jar, Source: "http"}, nil
}

var challengeSelectors = "#px-captcha, .g-recaptcha, #challenge-form, .cf-challenge"

func isChallengePage(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	if doc.Find(challengeSelectors).Length() > 0 {
		return true
	}
	title := strings.ToLower(doc.Find("title").First().Text())
	return strings.Contains(title, "access to this page has been denied")
}
