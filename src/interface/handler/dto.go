package handler

import (
	"cat-board/src/domain"
)

// NoteDTO represents a sticky note in HTTP responses
type NoteDTO struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Date     string  `json:"date"`
	Color    string  `json:"color"`
	Rotation float64 `json:"rotation"`
}

// NotesResponseDTO represents HTTP response for the note list
type NotesResponseDTO struct {
	Notes     []NoteDTO `json:"notes"`
	IsLoading bool      `json:"isLoading"`
	Status    string    `json:"status"`
}

// HealthResponseDTO represents HTTP response for the health check
type HealthResponseDTO struct {
	Status string `json:"status"`
	Cache  string `json:"cache"`
}

// ErrorResponseDTO represents HTTP error response
type ErrorResponseDTO struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func toNoteDTOs(notes []domain.Note) []NoteDTO {
	dtos := make([]NoteDTO, 0, len(notes))
	for _, n := range notes {
		dtos = append(dtos, NoteDTO{
			ID:       n.ID,
			Text:     n.Text,
			Date:     n.Date,
			Color:    n.Color.String(),
			Rotation: n.Rotation,
		})
	}
	return dtos
}
