package models

// MapBounds is the bounding box of a search.
type MapBounds struct {
	West  float64 `yaml:"west" json:"west"`
	East  float64 `yaml:"east" json:"east"`
	South float64 `yaml:"south" json:"south"`
	North float64 `yaml:"north" json:"north"`
}

// Region selects a region by id and type.
type Region struct {
	RegionID   int `yaml:"region_id" json:"regionId"`
	RegionType int `yaml:"region_type" json:"regionType"`
}

// FilterState holds the category toggles. A nil toggle is left out of the
// request entirely.
type FilterState struct {
	SortSelection      string `yaml:"sort_selection"`
	ForSaleByAgent     *bool  `yaml:"for_sale_by_agent"`
	ForSaleByOwner     *bool  `yaml:"for_sale_by_owner"`
	NewConstruction    *bool  `yaml:"new_construction"`
	ComingSoon         *bool  `yaml:"coming_soon"`
	Auction            *bool  `yaml:"auction"`
	ForSaleForeclosure *bool  `yaml:"foreclosure"`
	RecentlySold       *bool  `yaml:"recently_sold"`
	AllHomes           *bool  `yaml:"all_homes"`
}

// SearchQuery is the caller supplied configuration of one search request.
type SearchQuery struct {
	Name       string      `yaml:"name"`
	SearchTerm string      `yaml:"search_term"`
	MapBounds  MapBounds   `yaml:"map_bounds"`
	Regions    []Region    `yaml:"regions"`
	Filters    FilterState `yaml:"filters"`
	MapVisible bool        `yaml:"map_visible"`
	RequestID  int         `yaml:"request_id"`
}

// Bool returns a pointer to v, for building FilterState literals.
func Bool(v bool) *bool {
	return &v
}

// DefaultSearchQuery is the recently-sold search around Greer, SC.
func DefaultSearchQuery() SearchQuery {
	return SearchQuery{
		Name:       "greer-recently-sold",
		SearchTerm: "221 Emerald Crk Greer, SC 29651",
		MapBounds: MapBounds{
			West:  -82.22190767526627,
			East:  -82.2186890244484,
			South: 34.932520064912794,
			North: 34.9342792039549,
		},
		Regions: []Region{{RegionID: 24965, RegionType: 6}},
		Filters: FilterState{
			RecentlySold: Bool(true),
			AllHomes:     Bool(true),
		},
		RequestID: 2,
	}
}
