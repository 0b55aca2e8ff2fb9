package domain

import "strings"

// Memo represents a memo owned by the remote Memo API
type Memo struct {
	ID        int64  `json:"id"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// CreateMemoRequest represents the only client supplied fields of a memo.
// The server assigns id and createdAt.
type CreateMemoRequest struct {
	Content string `json:"content"`
}

// IsBlank reports whether the content is empty after trimming.
// The repository never trims; callers check this before creating.
func (r CreateMemoRequest) IsBlank() bool {
	return strings.TrimSpace(r.Content) == ""
}

// Color is a pastel sticky note color
type Color string

const (
	ColorYellow Color = "bg-yellow-200"
	ColorPink   Color = "bg-pink-200"
	ColorBlue   Color = "bg-blue-200"
	ColorGreen  Color = "bg-green-200"
	ColorPurple Color = "bg-purple-200"
	ColorOrange Color = "bg-orange-200"
)

// String returns string representation of Color
func (c Color) String() string {
	return string(c)
}

// Note is the display form of a Memo. It is derived on every render and
// never stored.
type Note struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Date     string  `json:"date"`
	Color    Color   `json:"color"`
	Rotation float64 `json:"rotation"`
}
