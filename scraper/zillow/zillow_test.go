package zillow

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"

	"housing-listings/apperrors"
	"housing-listings/models"
)

const searchPath = "/async-create-search-page-state"

func testOptions(baseURL string) ClientOptions {
	return ClientOptions{
		BaseURL:        baseURL,
		SearchPath:     searchPath,
		UserAgent:      "test-agent/1.0",
		AcceptLanguage: "en-US,en;q=0.9",
		Timeout:        5 * time.Second,
	}
}

func warmUp(t *testing.T, baseURL string) *CookieContext {
	t.Helper()
	session, err := NewSessionClient(testOptions(baseURL))
	require.NoError(t, err)
	cc, err := session.WarmUp(context.Background())
	require.NoError(t, err)
	return cc
}

func TestWarmUpStoresCookies(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		http.SetCookie(w, &http.Cookie{Name: "zguid", Value: "abc", Path: "/"})
		io.WriteString(w, "<html><head><title>Zillow</title></head><body>home</body></html>")
	}))
	defer srv.Close()

	cc := warmUp(t, srv.URL)

	require.Equal(t, "test-agent/1.0", gotUA)
	require.Equal(t, "en-US,en;q=0.9", gotLang)
	require.Equal(t, "http", cc.Source)

	cookies := cc.Cookies(cc.BaseURL)
	require.Len(t, cookies, 1)
	require.Equal(t, "zguid", cookies[0].Name)
	require.Equal(t, "abc", cookies[0].Value)
}

func TestWarmUpFreshJarEachCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "zguid", Value: "abc", Path: "/"})
	}))
	defer srv.Close()

	first := warmUp(t, srv.URL)
	second := warmUp(t, srv.URL)
	require.NotSame(t, first.Jar, second.Jar)
}

func TestWarmUpNon2xxIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	session, err := NewSessionClient(testOptions(srv.URL))
	require.NoError(t, err)

	_, err = session.WarmUp(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrTypeTransport))
}

func TestWarmUpChallengePageIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><div id="px-captcha"></div></body></html>`)
	}))
	defer srv.Close()

	session, err := NewSessionClient(testOptions(srv.URL))
	require.NoError(t, err)

	_, err = session.WarmUp(context.Background())
	require.True(t, apperrors.Is(err, apperrors.ErrTypeTransport))
}

func TestWarmUpUnreachableIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	session, err := NewSessionClient(testOptions(addr))
	require.NoError(t, err)

	_, err = session.WarmUp(context.Background())
	require.True(t, apperrors.Is(err, apperrors.ErrTypeTransport))
}

func TestIsChallengePage(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{"empty", "", false},
		{"plain", "<html><title>Homes for sale</title></html>", false},
		{"recaptcha", `<div class="g-recaptcha"></div>`, true},
		{"denied title", "<html><title>Access to this page has been denied</title></html>", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, isChallengePage([]byte(tc.body)))
		})
	}
}

func TestFetchListingsSendsSessionAndQuery(t *testing.T) {
	var (
		gotMethod string
		gotCookie string
		gotBody   map[string]interface{}
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "zguid", Value: "abc", Path: "/"})
	})
	mux.HandleFunc(searchPath, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		if c, err := r.Cookie("zguid"); err == nil {
			gotCookie = c.Value
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		io.WriteString(w, `{"cat1":{"searchResults":{"listResults":[
			{"zpid":12345,"statusText":"Sold","soldPrice":"$250,000","addressStreet":"1 Main St",
			 "addressCity":"Greer","addressState":"SC","addressZipcode":"29651",
			 "latLong":{"latitude":34.9,"longitude":-82.2},"brokerName":"Acme"}
		]}}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cc := warmUp(t, srv.URL)
	source, err := NewSource(testOptions(srv.URL))
	require.NoError(t, err)

	raw, err := source.FetchListings(context.Background(), cc, models.DefaultSearchQuery())
	require.NoError(t, err)

	require.Equal(t, http.MethodPut, gotMethod)
	require.Equal(t, "abc", gotCookie)
	require.EqualValues(t, 2, gotBody["requestId"])
	require.Equal(t, map[string]interface{}{"cat1": []interface{}{"listResults"}}, gotBody["wants"])

	state := gotBody["searchQueryState"].(map[string]interface{})
	filters := state["filterState"].(map[string]interface{})
	require.Equal(t, map[string]interface{}{"value": true}, filters["isRecentlySold"])
	require.NotContains(t, filters, "isForSaleByAgent")

	require.Len(t, raw, 1)
	require.Equal(t, models.FlexString("12345"), raw[0].Zpid)
	require.Equal(t, models.FlexString("Sold"), raw[0].StatusText)
	require.Equal(t, models.FlexString("Greer"), raw[0].AddressCity)
	require.InDelta(t, -82.2, *raw[0].LatLong.Longitude, 1e-9)
}

func TestFetchListingsMissingResultsIsEmpty(t *testing.T) {
	for name, body := range map[string]string{
		"no cat1":        `{}`,
		"no listResults": `{"cat1":{"searchResults":{}}}`,
		"empty list":     `{"cat1":{"searchResults":{"listResults":[]}}}`,
		"cat1 array":     `{"cat1":[]}`,
		"results string": `{"cat1":{"searchResults":"none"}}`,
		"list object":    `{"cat1":{"searchResults":{"listResults":{}}}}`,
		"null list":      `{"cat1":{"searchResults":{"listResults":null}}}`,
		"top level list": `[]`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, body)
			}))
			defer srv.Close()

			source, err := NewSource(testOptions(srv.URL))
			require.NoError(t, err)

			raw, err := source.FetchListings(context.Background(), nil, models.DefaultSearchQuery())
			require.NoError(t, err)
			require.NotNil(t, raw)
			require.Empty(t, raw)
		})
	}
}

func TestFetchListingsFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"forbidden": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<html>blocked</html>")
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			source, err := NewSource(testOptions(srv.URL))
			require.NoError(t, err)

			_, err = source.FetchListings(context.Background(), nil, models.DefaultSearchQuery())
			require.Error(t, err)
			require.True(t, apperrors.Is(err, apperrors.ErrTypeFetchFailed))
		})
	}
}

func TestFetchListingsKeepsTypeDriftedElements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"cat1":{"searchResults":{"listResults":[
			{"zpid":"1","statusText":"Sold"},
			{"zpid":"2","statusText":42,"brokerName":42,"latLong":{"latitude":"34.9"}},
			{"zpid":3,"latLong":"n/a"},
			"not an object"
		]}}}`)
	}))
	defer srv.Close()

	source, err := NewSource(testOptions(srv.URL))
	require.NoError(t, err)

	raw, err := source.FetchListings(context.Background(), nil, models.DefaultSearchQuery())
	require.NoError(t, err)
	require.Len(t, raw, 4)

	require.Equal(t, models.FlexString("1"), raw[0].Zpid)
	require.Equal(t, models.FlexString("2"), raw[1].Zpid)
	require.Equal(t, models.FlexString("42"), raw[1].StatusText)
	require.Equal(t, models.FlexString("42"), raw[1].BrokerName)
	require.NotNil(t, raw[1].LatLong)
	require.InDelta(t, 34.9, *raw[1].LatLong.Latitude, 1e-9)
	require.Nil(t, raw[1].LatLong.Longitude)
	require.Equal(t, models.FlexString("3"), raw[2].Zpid)
	require.Equal(t, models.RawListing{}, raw[3])
}

func TestBuildSearchRequestOmitsUnsetToggles(t *testing.T) {
	q := models.SearchQuery{
		SearchTerm: "Austin, TX",
		Filters: models.FilterState{
			SortSelection:  "globalrelevanceex",
			ForSaleByOwner: models.Bool(false),
		},
		RequestID: 7,
	}

	data, err := json.Marshal(buildSearchRequest(q))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	state := got["searchQueryState"].(map[string]interface{})
	require.Equal(t, "Austin, TX", state["usersSearchTerm"])
	require.Equal(t, []interface{}{}, state["regionSelection"])
	require.Equal(t, map[string]interface{}{
		"sortSelection":    map[string]interface{}{"value": "globalrelevanceex"},
		"isForSaleByOwner": map[string]interface{}{"value": false},
	}, state["filterState"])
}

func TestToHTTPCookies(t *testing.T) {
	in := []*network.Cookie{
		{Name: "zguid", Value: "abc", Domain: ".zillow.com", Path: "/", Expires: 1893456000, Secure: true, HTTPOnly: true},
		{Name: "JSESSIONID", Value: "s1", Domain: "www.zillow.com", Path: "/", Session: true},
		{Name: ""},
		nil,
	}

	out := toHTTPCookies(in)
	require.Len(t, out, 2)
	require.Equal(t, "zguid", out[0].Name)
	require.True(t, out[0].Secure)
	require.True(t, out[0].HttpOnly)
	require.Equal(t, time.Unix(1893456000, 0), out[0].Expires)
	require.True(t, out[1].Expires.IsZero())
}

func TestRootCookiesScopesToRoot(t *testing.T) {
	params := rootCookies("https://www.zillow.com/")
	require.Equal(t, []string{"https://www.zillow.com/"}, params.Urls)

	body, err := json.Marshal(params)
	require.NoError(t, err)
	require.JSONEq(t, `{"urls":["https://www.zillow.com/"]}`, string(body))
}

func TestNewWarmer(t *testing.T) {
	opts := testOptions("https://www.zillow.com")

	w, err := NewWarmer("http", opts, "")
	require.NoError(t, err)
	require.IsType(t, &SessionClient{}, w)

	w, err = NewWarmer("browser", opts, "/usr/bin/chromium")
	require.NoError(t, err)
	require.IsType(t, &BrowserSession{}, w)

	_, err = NewWarmer("carrier-pigeon", opts, "")
	require.True(t, apperrors.Is(err, apperrors.ErrTypeInvalidInput))
}

func TestRootURLValidation(t *testing.T) {
	_, err := NewSessionClient(testOptions("not a url"))
	require.Error(t, err)

	source, err := NewSource(testOptions("https://www.zillow.com/"))
	require.NoError(t, err)
	want, _ := url.Parse("https://www.zillow.com" + searchPath)
	require.Equal(t, want.String(), source.endpoint.String())
}
