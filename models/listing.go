package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString decodes a JSON string, number or bool into a string. The search
// API is inconsistent about ids, prices and labels. Objects, arrays and null
// decode to "".
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = ""
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			*f = FlexString(s)
		}
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err == nil {
			*f = FlexString(strconv.FormatBool(b))
		}
	case '{', '[', 'n':
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			*f = FlexString(n.String())
		}
	}
	return nil
}

// flexFloat reads a JSON number or numeric string. Anything else is nil.
func flexFloat(data json.RawMessage) *float64 {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var v float64
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		v = f
	} else if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return &v
}

// LatLong is the nested coordinate object of a search result. A coordinate
// that is absent or not numeric stays nil.
type LatLong struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (ll *LatLong) UnmarshalJSON(data []byte) error {
	*ll = LatLong{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	ll.Latitude = flexFloat(fields["latitude"])
	ll.Longitude = flexFloat(fields["longitude"])
	return nil
}

// RawListing is one element of cat1.searchResults.listResults, unprocessed.
// Any field may be missing or of an unexpected type; decoding never fails
// on a field, only on an element that is not an object.
type RawListing struct {
	Zpid           FlexString `json:"zpid"`
	StatusText     FlexString `json:"statusText"`
	SoldPrice      FlexString `json:"soldPrice"`
	AddressStreet  FlexString `json:"addressStreet"`
	AddressCity    FlexString `json:"addressCity"`
	AddressState   FlexString `json:"addressState"`
	AddressZipcode FlexString `json:"addressZipcode"`
	LatLong        *LatLong   `json:"latLong"`
	ImgSrc         FlexString `json:"imgSrc"`
	DetailURL      FlexString `json:"detailUrl"`
	FlexFieldText  FlexString `json:"flexFieldText"`
	BrokerName     FlexString `json:"brokerName"`
}

// Listing is the normalized row stored in zillow_listings.
type Listing struct {
	ID         int64   `json:"id"`
	ExternalID string  `json:"zpid"`
	Status     string  `json:"status"`
	SoldPrice  string  `json:"sold_price"`
	Address    string  `json:"address"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	ImageURL   string  `json:"image_url"`
	DetailURL  string  `json:"detail_url"`
	SoldDate   string  `json:"sold_date"`
	Broker     string  `json:"broker"`
}

// UserListing is a listing submitted through the REST API.
type UserListing struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Summary holds statistics computed over stored scraped listings.
type Summary struct {
	TotalListings  int
	PricedListings int
	AveragePrice   float64
	MinPrice       float64
	MaxPrice       float64
	MostExpensive  *Listing
	ByStatus       map[string]int
	ByBroker       map[string]int
}
