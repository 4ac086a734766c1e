// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
)

// ExportHandler serves the leaderboard as a CSV download.
type ExportHandler struct {
	deps Dependencies
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps Dependencies) *ExportHandler {
	return &ExportHandler{deps: deps}
}

// HandleExportCSV handles GET /events/{id}/export requests. Columns
// are rank, team, one column per round, then total and average.
func (h *ExportHandler) HandleExportCSV(w http.ResponseWriter, r *http.Request, eventID string) {
	const op = "api.export_csv"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	lb, err := h.deps.Leaderboard(r.Context(), eventID)
	if err != nil {
		writeStoreError(w, op, err)
		return
	}
	snap, err := h.deps.Snapshot(r.Context(), eventID)
	if err != nil {
		writeStoreError(w, op, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", snap.Event.Name+"-leaderboard.csv"))

	cw := csv.NewWriter(w)
	header := []string{"Rank", "Team"}
	for _, rd := range snap.Rounds {
		header = append(header, rd.Name)
	}
	header = append(header, "Total", "Average")
	_ = cw.Write(header)

	for _, row := range lb.Rows {
		rec := []string{
			strconv.Itoa(row.Rank),
			row.Team.Name,
		}
		byRound := make(map[int]float64, len(row.RoundScores))
		for _, rs := range row.RoundScores {
			byRound[rs.RoundNumber] = rs.Points
		}
		for _, rd := range snap.Rounds {
			if pts, ok := byRound[rd.RoundNumber]; ok {
				rec = append(rec, formatPoints(pts))
			} else {
				rec = append(rec, "")
			}
		}
		rec = append(rec, formatPoints(row.TotalScore), formatPoints(row.AverageScore))
		_ = cw.Write(rec)
	}
	cw.Flush()
}

// formatPoints trims trailing zeros so 10.00 exports as 10 and 7.50
// as 7.5.
func formatPoints(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
