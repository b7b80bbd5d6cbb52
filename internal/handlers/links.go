package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sdko-org/shortlink/internal/config"
	"github.com/sdko-org/shortlink/internal/models"
	"github.com/sdko-org/shortlink/internal/shortener"
	"github.com/sirupsen/logrus"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type LinkHandler struct {
	cfg *config.Config
	svc *shortener.Service
	log *logrus.Entry
}

func NewLinkHandler(logger *logrus.Logger, cfg *config.Config, svc *shortener.Service) *LinkHandler {
	return &LinkHandler{
		cfg: cfg,
		svc: svc,
		log: logger.WithField("component", "link_handler"),
	}
}

type createLinkRequest struct {
	OriginalURL string     `json:"original_url"`
	CustomCode  string     `json:"custom_code"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type updateLinkRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type linkResponse struct {
	ID          string     `json:"id"`
	OriginalURL string     `json:"original_url"`
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	ClickCount  int64      `json:"click_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type linkListResponse struct {
	Links []linkResponse `json:"links"`
	Total int64          `json:"total"`
}

func (h *LinkHandler) toResponse(link *models.ShortLink) linkResponse {
	return linkResponse{
		ID:          link.ID,
		OriginalURL: link.OriginalURL,
		ShortCode:   link.ShortCode,
		ShortURL:    fmt.Sprintf("%s/%s", h.cfg.BaseURL, link.ShortCode),
		Title:       link.Title,
		Description: link.Description,
		Status:      link.Status,
		ClickCount:  link.ClickCount,
		CreatedAt:   link.CreatedAt,
		UpdatedAt:   link.UpdatedAt,
		ExpiresAt:   link.ExpiresAt,
	}
}

func (h *LinkHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	link, err := h.svc.Create(r.Context(), shortener.CreateInput{
		OriginalURL: req.OriginalURL,
		CustomCode:  req.CustomCode,
		Title:       req.Title,
		Description: req.Description,
		ExpiresAt:   req.ExpiresAt,
		OwnerID:     ownerID(r),
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, h.toResponse(link))
}

func (h *LinkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r, "limit", defaultPageLimit)
	if limit < 1 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	offset := parseQueryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	links, total, err := h.svc.List(r.Context(), ownerID(r), limit, offset)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	out := linkListResponse{Links: make([]linkResponse, 0, len(links)), Total: total}
	for i := range links {
		out.Links = append(out.Links, h.toResponse(&links[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *LinkHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.Get(r.Context(), mux.Vars(r)["id"], ownerID(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toResponse(link))
}

func (h *LinkHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	link, err := h.svc.Update(r.Context(), mux.Vars(r)["id"], ownerID(r), shortener.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toResponse(link))
}

func (h *LinkHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), mux.Vars(r)["id"], ownerID(r)); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LinkHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shortener.ErrInvalidURL),
		errors.Is(err, shortener.ErrInvalidCode),
		errors.Is(err, shortener.ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shortener.ErrCodeTaken):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, shortener.ErrNotFound):
		respondError(w, http.StatusNotFound, "link not found")
	default:
		h.log.WithError(err).Error("Link operation failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseQueryInt(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
