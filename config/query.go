package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"housing-listings/models"
)

// LoadSearchQuery reads a YAML search profile. An empty path yields the
// built-in default query.
func LoadSearchQuery(path string) (models.SearchQuery, error) {
	if path == "" {
		return models.DefaultSearchQuery(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.SearchQuery{}, fmt.Errorf("config: read search query %q: %w", path, err)
	}
	return ParseSearchQuery(data)
}

// ParseSearchQuery decodes a YAML search profile and fills the defaults the
// search endpoint expects.
func ParseSearchQuery(data []byte) (models.SearchQuery, error) {
	var q models.SearchQuery
	if err := yaml.UnmarshalStrict(data, &q); err != nil {
		return models.SearchQuery{}, fmt.Errorf("config: parse search query: %w", err)
	}
	if q.SearchTerm == "" && len(q.Regions) == 0 {
		return models.SearchQuery{}, fmt.Errorf("config: search query needs a search_term or at least one region")
	}
	if q.RequestID == 0 {
		q.RequestID = 2
	}
	return q, nil
}
