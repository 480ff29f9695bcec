// Package session holds the per-user pipeline state: the current
// description, its translation, and the narration clips derived from
// them. Records are never shared across sessions.
package session

import "time"

// InputMethod identifies how the monument was provided.
type InputMethod string

const (
	InputNone  InputMethod = ""
	InputName  InputMethod = "name"
	InputImage InputMethod = "image"
)

// Clip is a narration audio artifact tagged by source language.
type Clip struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Audio    []byte `json:"-"`
}

// Record bundles the pipeline artifacts for one interactive session.
// Fields are populated independently as the user triggers each stage.
type Record struct {
	ID              string      `json:"id"`
	InputMethod     InputMethod `json:"input_method"`
	Description     string      `json:"description,omitempty"`
	Translation     string      `json:"translation,omitempty"`
	TranslationLang string      `json:"translation_lang,omitempty"`
	EnglishClip     *Clip       `json:"english_clip,omitempty"`
	TranslatedClip  *Clip       `json:"translated_clip,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Reset clears every derived artifact, returning the session to idle.
// Invoked whenever the input method or the input itself changes.
func (r *Record) Reset() {
	r.Description = ""
	r.Translation = ""
	r.TranslationLang = ""
	r.EnglishClip = nil
	r.TranslatedClip = nil
}

func (r *Record) clone() Record {
	out := *r
	if r.EnglishClip != nil {
		c := *r.EnglishClip
		out.EnglishClip = &c
	}
	if r.TranslatedClip != nil {
		c := *r.TranslatedClip
		out.TranslatedClip = &c
	}
	return out
}
