package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"mealtrack/internal/meals"
	"mealtrack/internal/report"
)

type mealSummaryResponse struct {
	Canteen   string `json:"canteen"`
	Breakfast int64  `json:"breakfast"`
	Lunch     int64  `json:"lunch"`
	Dinner    int64  `json:"dinner"`
	Total     int64  `json:"total"`
}

type canteenResponse struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
}

type reportResponse struct {
	ReportStartDate string         `json:"reportStartDate"`
	ReportEndDate   string         `json:"reportEndDate"`
	TotalEntries    int            `json:"totalEntries"`
	Meals           []report.Entry `json:"meals"`
}

func (s *Server) handleCanteens(w http.ResponseWriter, r *http.Request) {
	list, err := s.meals.Canteens(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := make([]canteenResponse, 0, len(list))
	for _, c := range list {
		resp = append(resp, canteenResponse{Code: c.Code, DisplayName: c.DisplayName})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleMeals serves the summary for p. The canteen comes from "canteen" or
// the older "device_trigger" parameter.
func (s *Server) handleMeals(p meals.Period) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		canteen := q.Get("canteen")
		if canteen == "" {
			canteen = q.Get("device_trigger")
		}
		sum, err := s.meals.Summarize(r.Context(), canteen, p)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, mealSummaryResponse{
			Canteen:   sum.Canteen,
			Breakfast: sum.Breakfast,
			Lunch:     sum.Lunch,
			Dinner:    sum.Dinner,
			Total:     sum.Total(),
		})
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rep, err := s.reports.Build(r.Context(), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if u, ok := UserFromContext(r.Context()); ok {
		s.log.InfoContext(r.Context(), "report exported", "user_id", u.ID.Hex(),
			"start", rep.StartDate(), "end", rep.EndDate(), "entries", len(rep.Entries))
	}

	if strings.EqualFold(q.Get("format"), "pdf") {
		var buf bytes.Buffer
		if err := report.WritePDF(&buf, rep); err != nil {
			s.writeError(w, r, fmt.Errorf("rendering PDF report: %w", err))
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+rep.FileName()+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		buf.WriteTo(w)
		return
	}

	writeJSON(w, http.StatusOK, reportResponse{
		ReportStartDate: rep.StartDate(),
		ReportEndDate:   rep.EndDate(),
		TotalEntries:    len(rep.Entries),
		Meals:           rep.Entries,
	})
}
