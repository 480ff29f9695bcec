// Package narration exposes the monument pipeline over HTTP: describe a
// monument by name or photo, translate the description, and narrate
// either text as audio. Every stage is an explicit user action.
package narration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"monumentNarrator/internal/cache"
	"monumentNarrator/internal/events"
	"monumentNarrator/internal/imaging"
	"monumentNarrator/internal/llm"
	"monumentNarrator/internal/session"
	"monumentNarrator/internal/speech"
	"monumentNarrator/internal/translate"
)

const (
	maxImageBytes = imaging.MaxUploadBytes

	// maxRawImageBytes bounds how much of an upload is read before
	// normalization shrinks it; anything larger is rejected outright.
	maxRawImageBytes = 20 * 1024 * 1024
)

// Handler bundles dependencies for the pipeline endpoints.
type Handler struct {
	Store       *session.Store
	Describer   llm.Describer
	Translator  translate.Translator
	Synthesizer speech.Synthesizer
	Cache       *cache.Cache
	Events      *events.Broker
	TargetLang  string
}

// validationError marks client input problems; they never reach an adapter.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

// CreateSession handles POST /api/sessions.
func (h Handler) CreateSession(w http.ResponseWriter, _ *http.Request) {
	rec := h.Store.Create()
	writeJSON(w, http.StatusCreated, rec)
}

// GetSession handles GET /api/sessions/{id}.
func (h Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.Get(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Reset handles POST /api/sessions/{id}/reset. The page calls it when
// the input method switches; every derived artifact is cleared.
func (h Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InputMethod string `json:"input_method"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	rec, err := h.Store.Update(chi.URLParam(r, "id"), func(rec *session.Record) {
		rec.Reset()
		rec.InputMethod = session.InputMethod(req.InputMethod)
	})
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Describe handles POST /api/sessions/{id}/describe. It accepts either
// a JSON body {"name": ...} or a multipart form with an image_file part.
// Submitting new input resets all derived fields before the description
// is written, so stale translations or clips never survive.
func (h Handler) Describe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Store.Get(id); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	var (
		method      session.InputMethod
		description string
		err         error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		method = session.InputImage
		description, err = h.describeImage(r)
	} else {
		method = session.InputName
		description, err = h.describeName(r)
	}

	if err != nil {
		var verr *validationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Str("session", id).Msg("describe failed")
		h.publish(id, events.StageDescribe, "failed", err.Error())
		http.Error(w, "could not fetch monument information", http.StatusBadGateway)
		return
	}

	rec, err := h.Store.Update(id, func(rec *session.Record) {
		rec.Reset()
		rec.InputMethod = method
		rec.Description = description
	})
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	h.publish(id, events.StageDescribe, "done", "")
	writeJSON(w, http.StatusOK, rec)
}

func (h Handler) describeName(r *http.Request) (string, error) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", &validationError{"invalid request body"}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", &validationError{"name is required"}
	}

	h.publish(chi.URLParam(r, "id"), events.StageDescribe, "started", name)

	key := cache.Key([]byte("describe:name"), []byte(name))
	return h.Cache.GetOrComputeString(key, func() (string, error) {
		return h.Describer.DescribeByName(r.Context(), name)
	})
}

func (h Handler) describeImage(r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(maxRawImageBytes); err != nil {
		return "", &validationError{fmt.Sprintf("could not parse form: %v", err)}
	}

	file, header, err := r.FormFile("image_file")
	if err != nil {
		return "", &validationError{"image_file is required"}
	}
	defer file.Close()

	if !imaging.AllowedFile(header.Filename) {
		return "", &validationError{"invalid file type, only PNG, JPG, JPEG allowed"}
	}

	raw, err := io.ReadAll(io.LimitReader(file, maxRawImageBytes+1))
	if err != nil {
		return "", &validationError{"could not read file"}
	}
	if len(raw) == 0 {
		return "", &validationError{"empty file"}
	}
	if len(raw) > maxRawImageBytes {
		return "", &validationError{fmt.Sprintf("file exceeds %d bytes", maxRawImageBytes)}
	}

	normalized := imaging.Normalize(raw)
	if len(normalized) > maxImageBytes {
		return "", &validationError{fmt.Sprintf("image exceeds %d bytes after normalization", maxImageBytes)}
	}

	h.publish(chi.URLParam(r, "id"), events.StageDescribe, "started", header.Filename)

	key := cache.Key([]byte("describe:image"), normalized)
	return h.Cache.GetOrComputeString(key, func() (string, error) {
		return h.Describer.DescribeByImage(r.Context(), normalized)
	})
}

// Translate handles POST /api/sessions/{id}/translate. It requires a
// description and translates it into the configured target language.
func (h Handler) Translate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.Store.Get(id)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if rec.Description == "" {
		http.Error(w, "no description to translate", http.StatusConflict)
		return
	}

	h.publish(id, events.StageTranslate, "started", h.TargetLang)

	key := cache.Key([]byte("translate:en:"+h.TargetLang), []byte(rec.Description))
	translated, err := h.Cache.GetOrComputeString(key, func() (string, error) {
		return h.Translator.Translate(r.Context(), rec.Description, "en", h.TargetLang)
	})
	if err != nil {
		log.Error().Err(err).Str("session", id).Msg("translation failed")
		h.publish(id, events.StageTranslate, "failed", err.Error())
		http.Error(w, "translation failed", http.StatusBadGateway)
		return
	}

	rec, err = h.Store.Update(id, func(rec *session.Record) {
		rec.Translation = translated
		rec.TranslationLang = h.TargetLang
	})
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	h.publish(id, events.StageTranslate, "done", "")
	writeJSON(w, http.StatusOK, rec)
}

// Narrate handles POST /api/sessions/{id}/narrate. The source field
// selects the description (English) or the translation; the synthesized
// clip is stored on the session and served via the clips endpoint.
func (h Handler) Narrate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.Store.Get(id)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	var req struct {
		Source string `json:"source"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	var text, lang string
	switch req.Source {
	case "", "description":
		req.Source = "description"
		text, lang = rec.Description, "en"
	case "translation":
		text, lang = rec.Translation, rec.TranslationLang
	default:
		http.Error(w, "source must be description or translation", http.StatusBadRequest)
		return
	}
	if text == "" {
		http.Error(w, "nothing to narrate yet", http.StatusConflict)
		return
	}

	h.publish(id, events.StageNarrate, "started", lang)

	key := cache.Key([]byte("narrate:"+lang), []byte(text))
	audio, err := h.Cache.GetOrCompute(key, func() ([]byte, error) {
		return h.Synthesizer.Synthesize(r.Context(), text, lang)
	})
	if err != nil {
		log.Error().Err(err).Str("session", id).Str("lang", lang).Msg("narration failed")
		h.publish(id, events.StageNarrate, "failed", err.Error())
		http.Error(w, "narration generation failed", http.StatusBadGateway)
		return
	}

	clip := session.Clip{ID: uuid.NewString(), Language: lang, Audio: audio}
	if _, err := h.Store.Update(id, func(rec *session.Record) {
		if req.Source == "translation" {
			rec.TranslatedClip = &clip
		} else {
			rec.EnglishClip = &clip
		}
	}); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	h.publish(id, events.StageNarrate, "done", lang)
	writeJSON(w, http.StatusOK, map[string]string{
		"clip_id":  clip.ID,
		"language": clip.Language,
	})
}

// Clip handles GET /api/sessions/{id}/clips/{clipID} and streams the
// stored MP3 bytes.
func (h Handler) Clip(w http.ResponseWriter, r *http.Request) {
	clip, err := h.Store.Clip(chi.URLParam(r, "id"), chi.URLParam(r, "clipID"))
	if err != nil {
		http.Error(w, "clip not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = w.Write(clip.Audio)
}

// StreamEvents handles GET /api/sessions/{id}/events as an SSE stream of
// pipeline progress for the session.
func (h Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		http.Error(w, "events unavailable", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	ch := h.Events.Subscribe()
	defer h.Events.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if evt.SessionID != id {
				continue
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (h Handler) publish(id, stage, state, detail string) {
	if h.Events == nil {
		return
	}
	h.Events.Publish(events.Event{
		SessionID: id,
		Stage:     stage,
		State:     state,
		Detail:    detail,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}
