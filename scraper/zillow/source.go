package zillow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"

	"housing-listings/apperrors"
	"housing-listings/models"
	"housing-listings/utils"
)

type toggle struct {
	Value bool `json:"value"`
}

type sortSelection struct {
	Value string `json:"value"`
}

type filterState struct {
	SortSelection        *sortSelection `json:"sortSelection,omitempty"`
	IsForSaleByAgent     *toggle        `json:"isForSaleByAgent,omitempty"`
	IsForSaleByOwner     *toggle        `json:"isForSaleByOwner,omitempty"`
	IsNewConstruction    *toggle        `json:"isNewConstruction,omitempty"`
	IsComingSoon         *toggle        `json:"isComingSoon,omitempty"`
	IsAuction            *toggle        `json:"isAuction,omitempty"`
	IsForSaleForeclosure *toggle        `json:"isForSaleForeclosure,omitempty"`
	IsRecentlySold       *toggle        `json:"isRecentlySold,omitempty"`
	IsAllHomes           *toggle        `json:"isAllHomes,omitempty"`
}

type searchQueryState struct {
	Pagination      struct{}         `json:"pagination"`
	IsMapVisible    bool             `json:"isMapVisible"`
	MapBounds       models.MapBounds `json:"mapBounds"`
	UsersSearchTerm string           `json:"usersSearchTerm"`
	RegionSelection []models.Region  `json:"regionSelection"`
	FilterState     filterState      `json:"filterState"`
	IsListVisible   bool             `json:"isListVisible"`
}

type searchRequest struct {
	SearchQueryState searchQueryState    `json:"searchQueryState"`
	Wants            map[string][]string `json:"wants"`
	RequestID        int                 `json:"requestId"`
	IsDebugRequest   bool                `json:"isDebugRequest"`
}

// listResultsPath is where the search response keeps its result elements.
var listResultsPath = []string{"cat1", "searchResults", "listResults"}

// extractListResults walks listResultsPath one level at a time. A level that
// is absent, null or of the wrong type reports ok=false; only a body that is
// not JSON at all is an error.
func extractListResults(body []byte) (elems []json.RawMessage, ok bool, err error) {
	if !json.Valid(body) {
		return nil, false, fmt.Errorf("response body is not JSON")
	}

	level := json.RawMessage(body)
	for _, key := range listResultsPath {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(level, &obj); err != nil || obj == nil {
			return nil, false, nil
		}
		next, found := obj[key]
		if !found {
			return nil, false, nil
		}
		level = next
	}

	if err := json.Unmarshal(level, &elems); err != nil || elems == nil {
		return nil, false, nil
	}
	return elems, true, nil
}

func toToggle(v *bool) *toggle {
	if v == nil {
		return nil
	}
	return &toggle{Value: *v}
}

func buildSearchRequest(q models.SearchQuery) searchRequest {
	fs := filterState{
		IsForSaleByAgent:     toToggle(q.Filters.ForSaleByAgent),
		IsForSaleByOwner:     toToggle(q.Filters.ForSaleByOwner),
		IsNewConstruction:    toToggle(q.Filters.NewConstruction),
		IsComingSoon:         toToggle(q.Filters.ComingSoon),
		IsAuction:            toToggle(q.Filters.Auction),
		IsForSaleForeclosure: toToggle(q.Filters.ForSaleForeclosure),
		IsRecentlySold:       toToggle(q.Filters.RecentlySold),
		IsAllHomes:           toToggle(q.Filters.AllHomes),
	}
	if q.Filters.SortSelection != "" {
		fs.SortSelection = &sortSelection{Value: q.Filters.SortSelection}
	}

	regions := q.Regions
	if regions == nil {
		regions = []models.Region{}
	}

	return searchRequest{
		SearchQueryState: searchQueryState{
			IsMapVisible:    q.MapVisible,
			MapBounds:       q.MapBounds,
			UsersSearchTerm: q.SearchTerm,
			RegionSelection: regions,
			FilterState:     fs,
			IsListVisible:   true,
		},
		Wants:     map[string][]string{"cat1": {"listResults"}},
		RequestID: q.RequestID,
	}
}

// Source queries the search-state endpoint.
type Source struct {
	client   *resty.Client
	endpoint *url.URL
	logger   *utils.Logger
}

func NewSource(opts ClientOptions) (*Source, error) {
	root, err := opts.rootURL()
	if err != nil {
		return nil, err
	}
	endpoint, err := root.Parse(opts.SearchPath)
	if err != nil {
		return nil, fmt.Errorf("zillow: invalid search path %q: %w", opts.SearchPath, err)
	}

	client := newHTTPClient(opts)
	// cookies come from the CookieContext of each call, never from the client
	client.SetCookieJar(nil)

	return &Source{client: client, endpoint: endpoint, logger: opts.logger()}, nil
}

// FetchListings PUTs the search state and returns one RawListing per result
// element. A response where cat1.searchResults.listResults is missing or of
// the wrong shape yields an empty slice. Transport errors, non-2xx statuses
// and non-JSON bodies are reported as a single FETCH_FAILED error.
func (s *Source) FetchListings(ctx context.Context, cc *CookieContext, q models.SearchQuery) ([]models.RawListing, error) {
	res, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetCookies(cc.Cookies(s.endpoint)).
		SetBody(buildSearchRequest(q)).
		Put(s.endpoint.String())
	if err != nil {
		return nil, apperrors.FetchFailed("search request", err)
	}
	if !res.IsSuccess() {
		return nil, apperrors.FetchFailed(fmt.Sprintf("search returned status %d", res.StatusCode()), nil)
	}

	elems, ok, err := extractListResults(res.Body())
	if err != nil {
		return nil, apperrors.FetchFailed("decode search response", err)
	}
	if !ok {
		s.logger.Warn("[zillow] No cat1.searchResults.listResults in response, treating as no results")
		return []models.RawListing{}, nil
	}

	listings := make([]models.RawListing, len(elems))
	for i, raw := range elems {
		// fields decode leniently; only a non-object element lands here
		if err := json.Unmarshal(raw, &listings[i]); err != nil {
			s.logger.Warn("[zillow] Result #%d is not an object, keeping it with empty fields: %v", i, err)
			listings[i] = models.RawListing{}
		}
	}

	s.logger.Info("[zillow] Search %q returned %d listings", q.Name, len(listings))
	return listings, nil
}
