package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Athlete is a stored profile: the anthropometric inputs calibration needs,
// keyed by a stable ID so sessions can be attributed.
type Athlete struct {
	ID                string    `json:"athlete_id"`
	Name              string    `json:"name"`
	HeightCm          float64   `json:"height_cm"`
	EyeToHeadVertexCm *float64  `json:"eye_to_vertex_cm,omitempty"`
	HeelToHandReachCm *float64  `json:"reach_cm,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

var ErrAthleteNotFound = errors.New("athlete not found")

// CreateAthlete inserts an athlete, assigning an ID when unset.
func (db *DB) CreateAthlete(a *Athlete) error {
	if a.Name == "" {
		return fmt.Errorf("athlete name is required")
	}
	if a.HeightCm <= 0 {
		return fmt.Errorf("athlete height_cm must be positive, got %v", a.HeightCm)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	_, err := db.Exec(
		`INSERT INTO athletes (athlete_id, name, height_cm, eye_to_vertex_cm, reach_cm)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.HeightCm, a.EyeToHeadVertexCm, a.HeelToHandReachCm,
	)
	if err != nil {
		return fmt.Errorf("failed to create athlete: %w", err)
	}
	return nil
}

// GetAthlete returns the athlete with the given ID.
func (db *DB) GetAthlete(id string) (*Athlete, error) {
	var a Athlete
	err := db.QueryRow(
		`SELECT athlete_id, name, height_cm, eye_to_vertex_cm, reach_cm, created_at
		FROM athletes WHERE athlete_id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.HeightCm, &a.EyeToHeadVertexCm, &a.HeelToHandReachCm, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAthleteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Athletes returns all athletes ordered by name.
func (db *DB) Athletes() ([]Athlete, error) {
	rows, err := db.Query(
		`SELECT athlete_id, name, height_cm, eye_to_vertex_cm, reach_cm, created_at
		FROM athletes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var athletes []Athlete
	for rows.Next() {
		var a Athlete
		if err := rows.Scan(&a.ID, &a.Name, &a.HeightCm, &a.EyeToHeadVertexCm,
			&a.HeelToHandReachCm, &a.CreatedAt); err != nil {
			return nil, err
		}
		athletes = append(athletes, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return athletes, nil
}
