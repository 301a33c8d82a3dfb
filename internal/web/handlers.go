package web

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/kapu/noaa-fisheries-web-go/internal/session"
	"github.com/kapu/noaa-fisheries-web-go/internal/util"
	"github.com/kapu/noaa-fisheries-web-go/pkg/errors"
	"go.uber.org/zap"
)

type homePage struct {
	Meta    pageMeta
	Regions []RegionView
}

type regionPage struct {
	Meta    pageMeta
	Region  RegionView
	Cards   []CardView
	Total   int
	HasMore bool
}

type fishPage struct {
	Meta   pageMeta
	Region RegionView
	Fish   FishView
}

type errorPage struct {
	Meta    pageMeta
	Status  int
	Heading string
	Message string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.catalog.NewPass().GetRegions(r.Context())
	if err != nil {
		s.renderError(w, err)
		return
	}

	view := homePage{Meta: pageMeta{Page: session.PageHome}}
	for _, summary := range summaries {
		view.Regions = append(view.Regions, newRegionView(summary))
	}
	s.render(w, http.StatusOK, "home", view)
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	regionID := r.PathValue("regionId")

	page, err := s.catalog.NewPass().LoadRegionPage(r.Context(), regionID)
	if err != nil {
		s.renderError(w, err)
		return
	}

	visible := util.Min(util.Max(s.opts.InitialCount, 0), len(page.Fish))
	view := regionPage{
		Meta: pageMeta{
			Title:    page.Summary.Name,
			Page:     session.PageRegion,
			RegionID: page.Summary.ID,
		},
		Region:  newRegionView(page.Summary),
		Cards:   buildCards(page.Summary.ID, 0, s.opts.EagerCount, page.Fish[:visible]),
		Total:   len(page.Fish),
		HasMore: visible < len(page.Fish),
	}
	s.render(w, http.StatusOK, "region", view)
}

func (s *Server) handleFish(w http.ResponseWriter, r *http.Request) {
	regionID := r.PathValue("regionId")
	fishID := r.PathValue("fishId")

	page, err := s.catalog.NewPass().LoadFishPage(r.Context(), regionID, fishID)
	if err != nil {
		s.renderError(w, err)
		return
	}

	view := fishPage{
		Meta: pageMeta{
			Title:    page.Fish.SpeciesName,
			Page:     session.PageFish,
			RegionID: page.Region.ID,
			FishID:   fishID,
		},
		Region: newRegionView(page.Region),
		Fish:   newFishView(page.Fish),
	}
	s.render(w, http.StatusOK, "fish", view)
}

func (s *Server) handleAbout(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "about", struct{ Meta pageMeta }{Meta: pageMeta{Title: "About"}})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, errors.NewNotFoundError("page", r.URL.Path))
}

type healthResponse struct {
	Status   string                    `json:"status"`
	Sessions int                       `json:"sessions"`
	Upstream *util.CircuitBreakerStatus `json:"upstream,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Sessions: s.sessions.Count()}
	if s.breaker != nil {
		status := s.breaker.BreakerStatus()
		resp.Upstream = &status
		if status.State == util.CircuitStateOpen {
			resp.Status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("Failed to write health response", zap.Error(err))
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	s.sessions.Serve(r.Context(), ws)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	html, err := executeTemplate(name, data)
	if err != nil {
		s.logger.Error("Failed to render template", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, html); err != nil {
		s.logger.Debug("Failed to write response", zap.Error(err))
	}
}

// renderError maps the error taxonomy to a status page. Upstream failures are
// shown once; the page never retries on its own.
func (s *Server) renderError(w http.ResponseWriter, err error) {
	view := errorPage{
		Meta:    pageMeta{Title: "Error"},
		Status:  http.StatusInternalServerError,
		Heading: "Something went wrong",
		Message: "An unexpected error occurred.",
	}

	switch {
	case errors.IsNotFound(err):
		view.Status = http.StatusNotFound
		view.Heading = "Not found"
		view.Message = notFoundMessage(err)
		s.logger.Debug("Resource not found", zap.Error(err))
	case errors.IsNetworkError(err):
		view.Status = http.StatusBadGateway
		view.Heading = "Upstream unavailable"
		view.Message = "Failed to load region data"
		s.logger.Warn("Upstream fetch failed", zap.Error(err))
	default:
		s.logger.Error("Request failed", zap.Error(err))
	}

	view.Meta.Title = view.Heading
	s.render(w, view.Status, "error", view)
}

func notFoundMessage(err error) string {
	var nf *errors.NotFoundError
	if errors.As(err, &nf) {
		switch nf.Resource {
		case "region":
			return "No region matches \"" + nf.ID + "\"."
		case "fish":
			return "No species matches \"" + nf.ID + "\"."
		}
	}
	return "The page you requested does not exist."
}
