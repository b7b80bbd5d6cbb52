package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sdko-org/shortlink/internal/clicks"
	"github.com/sdko-org/shortlink/internal/shortener"
	"github.com/sirupsen/logrus"
)

type RedirectHandler struct {
	svc      *shortener.Service
	recorder *clicks.Recorder
	log      *logrus.Entry
}

func NewRedirectHandler(logger *logrus.Logger, svc *shortener.Service, recorder *clicks.Recorder) *RedirectHandler {
	return &RedirectHandler{
		svc:      svc,
		recorder: recorder,
		log:      logger.WithField("component", "redirect_handler"),
	}
}

// HandleRedirect resolves a code and issues a 302. Missing and expired codes
// get the same opaque 404. Click recording is a side effect that cannot fail
// or delay the redirect beyond the synchronous cache counters.
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if !shortener.ValidCode(code) {
		respondError(w, http.StatusNotFound, "short URL not found or expired")
		return
	}

	resolved, err := h.svc.Resolve(r.Context(), code)
	if err != nil {
		if !errors.Is(err, shortener.ErrNotFound) {
			h.log.WithError(err).WithField("code", code).Error("Resolve failed")
		}
		respondError(w, http.StatusNotFound, "short URL not found or expired")
		return
	}

	h.recorder.Record(r.Context(), resolved.ID, resolved.Code, clicks.Visit{
		IPAddress: getClientIP(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
		At:        time.Now(),
	})

	http.Redirect(w, r, resolved.OriginalURL, http.StatusFound)
}
