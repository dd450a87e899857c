package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"majorincome/internal/chart"
	"majorincome/internal/core"
	"majorincome/internal/dataset"
	"majorincome/internal/log"
)

const statisticsCacheKey = "statistics"

type statisticsResponse struct {
	TotalMajors int                     `json:"total_majors"`
	AvgIncome   float64                 `json:"avg_income"`
	MaxIncome   int64                   `json:"max_income"`
	MinIncome   int64                   `json:"min_income"`
	TopMajors   []core.AggregatedRecord `json:"top_majors"`
	Source      string                  `json:"source"`
}

type plotResponse struct {
	Image       string `json:"image"`
	TotalMajors int    `json:"total_majors"`
}

type majorsResponse struct {
	Majors []core.AggregatedRecord `json:"majors"`
	Total  int                     `json:"total"`
	Source string                  `json:"source"`
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if resp, ok := s.statsCache.Get(statisticsCacheKey); ok {
		writeJSON(w, r, http.StatusOK, resp)
		return
	}

	sum, err := s.store.Summary(r.Context(), s.opts.TopN)
	if errors.Is(err, dataset.ErrNoData) {
		writeError(w, r, http.StatusNotFound, "No data available")
		return
	}
	if err != nil {
		s.internalError(w, r, "statistics", err)
		return
	}

	resp := statisticsResponse{
		TotalMajors: sum.Stats.TotalMajors,
		AvgIncome:   round2(sum.Stats.AvgIncome),
		MaxIncome:   sum.Stats.MaxIncome,
		MinIncome:   sum.Stats.MinIncome,
		TopMajors:   sum.Top,
		Source:      sum.Origin.String(),
	}
	if resp.TopMajors == nil {
		resp.TopMajors = []core.AggregatedRecord{}
	}
	s.statsCache.Set(statisticsCacheKey, resp)
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	lower, lowerSet, err := parseBound(q.Get("min"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid min: must be a non-negative integer")
		return
	}
	upper, upperSet, err := parseBound(q.Get("max"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid max: must be a non-negative integer")
		return
	}
	if lowerSet && upperSet && lower > upper {
		writeError(w, r, http.StatusBadRequest, "min must not exceed max")
		return
	}

	key := "plot:" + q.Get("min") + ":" + q.Get("max")
	if resp, ok := s.plotCache.Get(key); ok {
		writeJSON(w, r, http.StatusOK, resp)
		return
	}

	records, _, err := s.store.List(r.Context())
	if errors.Is(err, dataset.ErrNoData) {
		writeError(w, r, http.StatusNotFound, "No data available for plotting")
		return
	}
	if err != nil {
		s.internalError(w, r, "plot", err)
		return
	}

	stats, _ := core.ComputeStatistics(records)
	if !lowerSet {
		lower = stats.MinIncome
	}
	if !upperSet {
		upper = stats.MaxIncome
	}
	filtered := core.FilterByIncome(records, lower, upper)
	if len(filtered) == 0 {
		writeError(w, r, http.StatusNotFound, "No jobs in income range")
		return
	}

	png, err := chart.RenderBarChart(filtered, s.opts.Chart)
	if err != nil {
		s.internalError(w, r, log.OpRender, err)
		return
	}
	resp := plotResponse{Image: chart.DataURI(png), TotalMajors: len(filtered)}
	s.plotCache.Set(key, resp)
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleMajors(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	limit := -1
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "invalid limit: must be a non-negative integer")
			return
		}
		limit = n
	}

	records, origin, err := s.store.List(r.Context())
	if errors.Is(err, dataset.ErrNoData) {
		writeError(w, r, http.StatusNotFound, "No data available")
		return
	}
	if err != nil {
		s.internalError(w, r, "majors", err)
		return
	}

	total := len(records)
	if limit >= 0 && limit < len(records) {
		records = records[:limit]
	}
	writeJSON(w, r, http.StatusOK, majorsResponse{Majors: records, Total: total, Source: origin.String()})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "API is running"})
}

func handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		log.FieldOperation, op,
		log.FieldError, err.Error())
	writeError(w, r, http.StatusInternalServerError, "internal server error")
}

func parseBound(v string) (int64, bool, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false, errors.New("invalid bound")
	}
	return n, true, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
