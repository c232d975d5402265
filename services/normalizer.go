package services

import (
	"fmt"

	"housing-listings/models"
	"housing-listings/utils"
)

// Normalizer flattens raw search results into storable listings.
type Normalizer struct {
	logger *utils.Logger
}

func NewNormalizer(logger *utils.Logger) *Normalizer {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Normalizer{logger: logger}
}

// Normalize maps every raw result to exactly one Listing, preserving order.
// It never fails: missing fields become "" and missing coordinates 0.
func (n *Normalizer) Normalize(raw []models.RawListing) []*models.Listing {
	result := make([]*models.Listing, 0, len(raw))
	missingCoords := 0

	for _, r := range raw {
		if r.LatLong == nil || r.LatLong.Latitude == nil || r.LatLong.Longitude == nil {
			missingCoords++
		}
		result = append(result, normalizeListing(r))
	}

	if missingCoords > 0 {
		n.logger.Debug("[normalizer] %d of %d listings had no usable coordinates", missingCoords, len(raw))
	}
	n.logger.Info("[normalizer] Normalized %d listings", len(result))
	return result
}

func normalizeListing(r models.RawListing) *models.Listing {
	lat, lng := coordinates(r.LatLong)
	return &models.Listing{
		ExternalID: string(r.Zpid),
		Status:     string(r.StatusText),
		SoldPrice:  string(r.SoldPrice),
		Address:    formatAddress(r),
		Latitude:   lat,
		Longitude:  lng,
		ImageURL:   string(r.ImgSrc),
		DetailURL:  string(r.DetailURL),
		SoldDate:   string(r.FlexFieldText),
		Broker:     string(r.BrokerName),
	}
}

// formatAddress always produces "<street>, <city>, <state> <zip>"; absent
// parts are rendered empty so the separators stay in place.
func formatAddress(r models.RawListing) string {
	return fmt.Sprintf("%s, %s, %s %s", r.AddressStreet, r.AddressCity, r.AddressState, r.AddressZipcode)
}

func coordinates(ll *models.LatLong) (float64, float64) {
	if ll == nil {
		return 0, 0
	}
	var lat, lng float64
	if ll.Latitude != nil {
		lat = *ll.Latitude
	}
	if ll.Longitude != nil {
		lng = *ll.Longitude
	}
	return lat, lng
}
