package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"housing-listings/apperrors"
	"housing-listings/models"
	"housing-listings/services"
	"housing-listings/storage"
	"housing-listings/utils"
)

const fetchFailedMessage = "Failed to fetch Zillow listings"

// Ingestor runs one scrape into the given store.
type Ingestor interface {
	Run(ctx context.Context, store storage.ListingStore) (*services.RunResult, error)
}

// Handler serves the listings API on top of one shared store.
type Handler struct {
	store    storage.Store
	ingestor Ingestor
	logger   *utils.Logger
}

func NewHandler(store storage.Store, ingestor Ingestor, logger *utils.Logger) *Handler {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Handler{store: store, ingestor: ingestor, logger: logger}
}

type createListingRequest struct {
	Title       *string  `json:"title"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func (req createListingRequest) validate() (*models.UserListing, error) {
	var missing []string
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		missing = append(missing, "title")
	}
	if req.Latitude == nil {
		missing = append(missing, "latitude")
	}
	if req.Longitude == nil {
		missing = append(missing, "longitude")
	}
	if len(missing) > 0 {
		return nil, apperrors.Validation("missing required fields: "+strings.Join(missing, ", "), nil)
	}
	if *req.Latitude < -90 || *req.Latitude > 90 {
		return nil, apperrors.Validation("latitude must be between -90 and 90", nil)
	}
	if *req.Longitude < -180 || *req.Longitude > 180 {
		return nil, apperrors.Validation("longitude must be between -180 and 180", nil)
	}

	return &models.UserListing{
		Title:       strings.TrimSpace(*req.Title),
		Description: req.Description,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
	}, nil
}

func (h *Handler) listUserListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.store.ListUserListings(r.Context())
	if err != nil {
		h.logger.Error("[api] Listing user listings: %v", err)
		writeError(w, http.StatusBadRequest, causeMessage(err))
		return
	}
	if listings == nil {
		listings = []*models.UserListing{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

func (h *Handler) createUserListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	listing, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, causeMessage(err))
		return
	}

	id, err := h.store.InsertUserListing(r.Context(), listing)
	if err != nil {
		h.logger.Error("[api] Inserting user listing: %v", err)
		writeError(w, http.StatusBadRequest, causeMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (h *Handler) listScrapedListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.store.ListScrapedListings(r.Context())
	if err != nil {
		h.logger.Error("[api] Listing scraped listings: %v", err)
		writeError(w, http.StatusBadRequest, causeMessage(err))
		return
	}
	if listings == nil {
		listings = []*models.Listing{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

func (h *Handler) fetchZillowListings(w http.ResponseWriter, r *http.Request) {
	res, err := h.ingestor.Run(r.Context(), h.store)
	if err != nil {
		h.logger.Error("[api] Triggered ingestion failed: %v", err)
		writeError(w, http.StatusInternalServerError, fetchFailedMessage)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Zillow listings fetched and saved to the database.",
		"inserted": res.Inserted,
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// causeMessage returns the message of the underlying driver or validation
// error rather than the categorized wrapper.
func causeMessage(err error) string {
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		if de.Err != nil {
			return de.Err.Error()
		}
		return de.Message
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
