package main

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Participant is a single tracked entry on a board.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Roster owns the participants of one board, in insertion order. It is not
// safe for concurrent use; the board hub serializes all access to it.
type Roster struct {
	participants []Participant
}

func newRoster() *Roster {
	return &Roster{}
}

func (r *Roster) Len() int {
	return len(r.participants)
}

// Add creates a participant with zero points and a fresh unique ID. Names
// are trimmed of surrounding whitespace; empty results are rejected.
func (r *Roster) Add(name string) (Participant, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Participant{}, false
	}

	p := Participant{
		ID:   uuid.NewString(),
		Name: name,
	}
	r.participants = append(r.participants, p)

	return p, true
}

// Adjust applies delta to a participant's points, clamping at zero.
// Returns false if no participant has that ID.
func (r *Roster) Adjust(id string, delta int) bool {
	for i := range r.participants {
		if r.participants[i].ID != id {
			continue
		}

		points := r.participants[i].Points + delta
		if points < 0 {
			points = 0
		}
		r.participants[i].Points = points

		return true
	}

	return false
}

// Remove deletes a participant. Returns false if no participant has that ID.
func (r *Roster) Remove(id string) bool {
	for i := range r.participants {
		if r.participants[i].ID == id {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			return true
		}
	}

	return false
}

// RankedEntry is one row of the derived ranking.
type RankedEntry struct {
	Position int    `json:"position"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Points   int    `json:"points"`
}

// Rank returns the full ranking, descending by points, positions 1..N.
// The sort is stable, so participants with equal points keep their
// insertion order.
func (r *Roster) Rank() []RankedEntry {
	entries := make([]RankedEntry, 0, len(r.participants))
	for _, p := range r.participants {
		entries = append(entries, RankedEntry{
			ID:     p.ID,
			Name:   p.Name,
			Points: p.Points,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})

	for i := range entries {
		entries[i].Position = i + 1
	}

	return entries
}
