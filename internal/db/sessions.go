package db

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// Session is one completed jump measurement: the calibration that produced
// it and the bounded maxima the tracker reported.
type Session struct {
	ID                string    `json:"session_id"`
	AthleteID         *string   `json:"athlete_id,omitempty"`
	RecordedAt        time.Time `json:"recorded_at"`
	HeightCm          float64   `json:"height_cm"`
	PxToCm            float64   `json:"px_to_cm"`
	IsPrecise         bool      `json:"is_precise"`
	MaxHeightCm       float64   `json:"max_height_cm"`
	MaxHeightLowerCm  float64   `json:"max_height_lower_cm"`
	MaxHeightUpperCm  float64   `json:"max_height_upper_cm"`
	SpikeReachCm      float64   `json:"spike_reach_cm"`
	SpikeReachLowerCm float64   `json:"spike_reach_lower_cm"`
	SpikeReachUpperCm float64   `json:"spike_reach_upper_cm"`
	Frames            int64     `json:"frames"`
}

func (s *Session) String() string {
	return fmt.Sprintf("Session %s: max_height_cm=%.1f [%.1f, %.1f], frames=%d",
		s.ID, s.MaxHeightCm, s.MaxHeightLowerCm, s.MaxHeightUpperCm, s.Frames)
}

// RecordSession inserts a session, assigning an ID and timestamp when the
// caller left them unset. The assigned values are written back to s.
func (db *DB) RecordSession(s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.RecordedAt.IsZero() {
		s.RecordedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO sessions (
			session_id, athlete_id, recorded_at, height_cm, px_to_cm, is_precise,
			max_height_cm, max_height_lower_cm, max_height_upper_cm,
			spike_reach_cm, spike_reach_lower_cm, spike_reach_upper_cm, frames
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.AthleteID, s.RecordedAt, s.HeightCm, s.PxToCm, s.IsPrecise,
		s.MaxHeightCm, s.MaxHeightLowerCm, s.MaxHeightUpperCm,
		s.SpikeReachCm, s.SpikeReachLowerCm, s.SpikeReachUpperCm, s.Frames,
	)
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	return nil
}

// Sessions returns the most recent sessions, newest first.
func (db *DB) Sessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.Query(
		`SELECT session_id, athlete_id, recorded_at, height_cm, px_to_cm, is_precise,
			max_height_cm, max_height_lower_cm, max_height_upper_cm,
			spike_reach_cm, spike_reach_lower_cm, spike_reach_upper_cm, frames
		FROM sessions ORDER BY recorded_at DESC, session_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var athleteID sql.NullString
		if err := rows.Scan(
			&s.ID, &athleteID, &s.RecordedAt, &s.HeightCm, &s.PxToCm, &s.IsPrecise,
			&s.MaxHeightCm, &s.MaxHeightLowerCm, &s.MaxHeightUpperCm,
			&s.SpikeReachCm, &s.SpikeReachLowerCm, &s.SpikeReachUpperCm, &s.Frames,
		); err != nil {
			return nil, err
		}
		if athleteID.Valid {
			s.AthleteID = &athleteID.String
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// AthleteSessions returns an athlete's sessions, newest first.
func (db *DB) AthleteSessions(athleteID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.Query(
		`SELECT session_id, athlete_id, recorded_at, height_cm, px_to_cm, is_precise,
			max_height_cm, max_height_lower_cm, max_height_upper_cm,
			spike_reach_cm, spike_reach_lower_cm, spike_reach_upper_cm, frames
		FROM sessions WHERE athlete_id = ?
		ORDER BY recorded_at DESC, session_id DESC LIMIT ?`, athleteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var aid sql.NullString
		if err := rows.Scan(
			&s.ID, &aid, &s.RecordedAt, &s.HeightCm, &s.PxToCm, &s.IsPrecise,
			&s.MaxHeightCm, &s.MaxHeightLowerCm, &s.MaxHeightUpperCm,
			&s.SpikeReachCm, &s.SpikeReachLowerCm, &s.SpikeReachUpperCm, &s.Frames,
		); err != nil {
			return nil, err
		}
		if aid.Valid {
			s.AthleteID = &aid.String
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// DailyRollup summarizes one day of sessions.
type DailyRollup struct {
	Day      string  `json:"day"`
	Count    int     `json:"count"`
	BestCm   float64 `json:"best_cm"`
	P50Cm    float64 `json:"p50_cm"`
	P95Cm    float64 `json:"p95_cm"`
	MeanCm   float64 `json:"mean_cm"`
	StdDevCm float64 `json:"stddev_cm"`
}

// SessionRollup computes per-day statistics over max jump heights for the
// last N days, oldest day first. Quantiles are computed in-process; SQLite
// has no percentile aggregate.
func (db *DB) SessionRollup(days int) ([]DailyRollup, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	rows, err := db.Query(
		`SELECT date(recorded_at), max_height_cm
		FROM sessions WHERE recorded_at >= ?
		ORDER BY date(recorded_at)`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDay := make(map[string][]float64)
	var order []string
	for rows.Next() {
		var day string
		var height float64
		if err := rows.Scan(&day, &height); err != nil {
			return nil, err
		}
		if _, seen := byDay[day]; !seen {
			order = append(order, day)
		}
		byDay[day] = append(byDay[day], height)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rollups := make([]DailyRollup, 0, len(order))
	for _, day := range order {
		heights := byDay[day]
		sort.Float64s(heights)

		mean, std := stat.MeanStdDev(heights, nil)
		if len(heights) < 2 {
			std = 0
		}
		rollups = append(rollups, DailyRollup{
			Day:      day,
			Count:    len(heights),
			BestCm:   heights[len(heights)-1],
			P50Cm:    stat.Quantile(0.5, stat.Empirical, heights, nil),
			P95Cm:    stat.Quantile(0.95, stat.Empirical, heights, nil),
			MeanCm:   mean,
			StdDevCm: std,
		})
	}

	return rollups, nil
}
