// Package models defines the domain types for Fiche.
package models

import (
	"strings"
	"time"
)

// Mode identifies the transformation that produced a document.
type Mode string

// Fixed transformation modes.
const (
	ModeCourse   Mode = "cours"
	ModeQuiz     Mode = "questions"
	ModeExercise Mode = "exercices"
	ModeEssay    Mode = "redaction"
	ModeMethod   Mode = "methode"
	ModeFree     Mode = "libre"
	ModeChat     Mode = "chat"
)

// Label returns the display title used when a generated document carries
// no usable h1 of its own.
func (m Mode) Label() string {
	switch m {
	case ModeCourse:
		return "Fiche de cours"
	case ModeQuiz:
		return "Questions"
	case ModeExercise:
		return "Exercices"
	case ModeEssay:
		return "Rédaction"
	case ModeMethod:
		return "Fiche méthode"
	case ModeFree:
		return "Question libre"
	case ModeChat:
		return "Fiche conversation"
	default:
		return "Travail"
	}
}

// Document is a generated study sheet ("fiche"). The JSON shape is the
// persisted record format used by the history store and import/export.
type Document struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Subject  Subject   `json:"subject"`
	Color    string    `json:"color"`
	Date     time.Time `json:"date"`
	HTML     string    `json:"html"`
	FontSize int       `json:"fontSize"`
	Type     Mode      `json:"type,omitempty"`
	ParentID string    `json:"parentId,omitempty"`
	Favorite bool      `json:"favorite,omitempty"`
}

// Photo is one imported image on its way into a generation call. Payload
// is computed lazily before generation; Err records a per-item decode
// failure without affecting siblings in the same batch.
type Photo struct {
	Name    string
	Raw     []byte
	Payload []byte
	Preview []byte
	Err     error
}

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a work-mode conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Subject is one of the fixed study-subject labels.
type Subject string

// The nine subject labels, including the catch-all.
const (
	SubjectPhysics    Subject = "Physique-Chimie"
	SubjectMath       Subject = "Mathématiques"
	SubjectBiology    Subject = "SVT"
	SubjectHistory    Subject = "Histoire-Géo"
	SubjectFrench     Subject = "Français"
	SubjectPhilosophy Subject = "Philosophie"
	SubjectLanguages  Subject = "Langues"
	SubjectEconomics  Subject = "Économie"
	SubjectOther      Subject = "Autre"
)

// Subjects lists every label in display order.
var Subjects = []Subject{
	SubjectPhysics,
	SubjectMath,
	SubjectBiology,
	SubjectHistory,
	SubjectFrench,
	SubjectPhilosophy,
	SubjectLanguages,
	SubjectEconomics,
	SubjectOther,
}

// ColorPair is a main/accent color combination for a subject.
type ColorPair struct {
	Main   string `json:"main"`
	Accent string `json:"accent"`
}

var subjectColors = map[Subject]ColorPair{
	SubjectPhysics:    {Main: "#2980b9", Accent: "#e67e22"},
	SubjectMath:       {Main: "#2980b9", Accent: "#27ae60"},
	SubjectBiology:    {Main: "#27ae60", Accent: "#f39c12"},
	SubjectHistory:    {Main: "#27ae60", Accent: "#f39c12"},
	SubjectFrench:     {Main: "#8e44ad", Accent: "#e74c3c"},
	SubjectPhilosophy: {Main: "#8e44ad", Accent: "#e74c3c"},
	SubjectLanguages:  {Main: "#c0392b", Accent: "#16a085"},
	SubjectEconomics:  {Main: "#f39c12", Accent: "#2980b9"},
	SubjectOther:      {Main: "#555555", Accent: "#e67e22"},
}

// Colors returns the default color pair for a subject. Any label outside
// the fixed set falls back to the catch-all pair.
func (s Subject) Colors() ColorPair {
	if c, ok := subjectColors[s]; ok {
		return c
	}
	return subjectColors[SubjectOther]
}

// MatchSubject resolves a free-form label against the fixed set by
// case-insensitive substring containment. Unmatched input resolves to the
// catch-all.
func MatchSubject(label string) Subject {
	lower := strings.ToLower(label)
	for _, s := range Subjects {
		if strings.Contains(lower, strings.ToLower(string(s))) {
			return s
		}
	}
	return SubjectOther
}

// ValidSubject reports whether the label is exactly one of the fixed set.
func ValidSubject(label string) bool {
	for _, s := range Subjects {
		if string(s) == label {
			return true
		}
	}
	return false
}
