package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/apexmetrics/vertical.report/internal/httputil"
)

// sessionsChart renders a quick HTML bar chart of recent jump sessions using
// go-echarts. This is a debugging-only endpoint to eyeball progress without
// a frontend.
// Query params:
//   - limit (optional; default 50) recent sessions to include
func (s *Server) sessionsChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	sessions, err := s.db.Sessions(limit)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve sessions: %v", err))
		return
	}
	if len(sessions) == 0 {
		httputil.WriteJSONError(w, http.StatusNotFound, "no sessions recorded yet")
		return
	}

	// Sessions come newest-first; plot oldest to newest left to right.
	labels := make([]string, 0, len(sessions))
	heights := make([]opts.BarData, 0, len(sessions))
	lowers := make([]opts.LineData, 0, len(sessions))
	uppers := make([]opts.LineData, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		sess := sessions[i]
		labels = append(labels, sess.RecordedAt.Format("01-02 15:04"))
		heights = append(heights, opts.BarData{Value: sess.MaxHeightCm})
		lowers = append(lowers, opts.LineData{Value: sess.MaxHeightLowerCm})
		uppers = append(uppers, opts.LineData{Value: sess.MaxHeightUpperCm})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Jump Sessions", Theme: "dark", Width: "1100px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Max Jump Height", Subtitle: fmt.Sprintf("last %d sessions (cm)", len(sessions))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "session"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "height (cm)"}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("max height", heights)

	line := charts.NewLine()
	line.SetXAxis(labels)
	line.AddSeries("lower bound", lowers)
	line.AddSeries("upper bound", uppers)
	bar.Overlap(line)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
