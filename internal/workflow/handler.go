package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medflow/internal/medical"
)

// Directory exposes the static reference data the intake form needs.
type Directory interface {
	Specialists() []medical.SpecialistInfo
	CommonSymptoms() []string
}

// ScreenRenderer turns a session into the markdown screen for its stage.
type ScreenRenderer interface {
	Render(s *Session) string
}

// PDFRenderer produces the printable diagnosis report.
type PDFRenderer interface {
	RenderPDF(s Session) ([]byte, error)
}

type Handler struct {
	svc     Service
	dir     Directory
	screens ScreenRenderer
	pdf     PDFRenderer
	logger  zerolog.Logger
}

func NewHandler(svc Service, dir Directory, screens ScreenRenderer, pdf PDFRenderer, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, dir: dir, screens: screens, pdf: pdf, logger: logger}
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/specialists", h.ListSpecialists)
	r.Get("/symptoms/common", h.ListCommonSymptoms)

	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Patch("/patient", h.UpdatePatient)
		r.Post("/symptoms", h.AddSymptom)
		r.Delete("/symptoms/{symptomID}", h.RemoveSymptom)
		r.Post("/proceed", h.Proceed)
		r.Post("/reset", h.Reset)
		r.Post("/analysis", h.RunSymptomAnalysis)
		r.Post("/knowledge", h.RunKnowledgeRetrieval)
		r.Put("/specialist", h.SelectSpecialist)
		r.Post("/consultation", h.ConsultSpecialist)
		r.Get("/screen", h.Screen)
		r.Get("/report.pdf", h.Report)
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ErrWrongStage), errors.Is(err, ErrBusy):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg("request failed")
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.badRequest(w, "Invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) ListSpecialists(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.dir.Specialists())
}

func (h *Handler) ListCommonSymptoms(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.dir.CommonSymptoms())
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.CreateSession(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, s)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.GetSession(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s)
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteSession(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var patch PatientPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.badRequest(w, "Invalid request")
		return
	}
	h.respond(w)(h.svc.UpdatePatient(r.Context(), id, patch))
}

func (h *Handler) AddSymptom(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var in SymptomInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.badRequest(w, "Invalid request")
		return
	}
	h.respond(w)(h.svc.AddSymptom(r.Context(), id, in))
}

func (h *Handler) RemoveSymptom(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	h.respond(w)(h.svc.RemoveSymptom(r.Context(), id, chi.URLParam(r, "symptomID")))
}

func (h *Handler) Proceed(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	h.respond(w)(h.svc.Proceed(r.Context(), id))
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	h.respond(w)(h.svc.Reset(r.Context(), id))
}

type selectSpecialistRequest struct {
	Specialist medical.SpecialistType `json:"specialist"`
}

func (h *Handler) SelectSpecialist(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req selectSpecialistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "Invalid request")
		return
	}
	h.respond(w)(h.svc.SelectSpecialist(r.Context(), id, req.Specialist))
}

func (h *Handler) ConsultSpecialist(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	h.respond(w)(h.svc.ConsultSpecialist(r.Context(), id))
}

// respond writes the session or the error from a service call.
func (h *Handler) respond(w http.ResponseWriter) func(*Session, error) {
	return func(s *Session, err error) {
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, s)
	}
}

type pipelineStep func(r *http.Request, id uuid.UUID, events chan<- StreamEvent) (*Session, error)

func (h *Handler) RunSymptomAnalysis(w http.ResponseWriter, r *http.Request) {
	h.runStep(w, r, StageSymptomAnalysis, func(r *http.Request, id uuid.UUID, events chan<- StreamEvent) (*Session, error) {
		return h.svc.RunSymptomAnalysis(r.Context(), id, events)
	})
}

func (h *Handler) RunKnowledgeRetrieval(w http.ResponseWriter, r *http.Request) {
	h.runStep(w, r, StageKnowledgeRetrieval, func(r *http.Request, id uuid.UUID, events chan<- StreamEvent) (*Session, error) {
		return h.svc.RunKnowledgeRetrieval(r.Context(), id, events)
	})
}

// runStep blocks until the step finishes, or streams its progress as
// server-sent events when the client asks for text/event-stream. The stream
// is only opened once the step is allowed to start.
func (h *Handler) runStep(w http.ResponseWriter, r *http.Request, stage Stage, step pipelineStep) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if !strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		h.respond(w)(step(r, id, nil))
		return
	}

	if err := h.svc.CheckStep(r.Context(), id, stage); err != nil {
		h.writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventChan := make(chan StreamEvent)
	go func() {
		defer close(eventChan)
		s, err := step(r, id, eventChan)
		if err != nil {
			eventChan <- StreamEvent{Type: EventError, Data: err.Error()}
			return
		}
		eventChan <- StreamEvent{Type: EventResult, Stage: s.Stage, Data: s}
	}()

	for event := range eventChan {
		data, err := json.Marshal(event)
		if err != nil {
			h.logger.Error().Err(err).Msg("encode stream event")
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

func (h *Handler) Screen(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.GetSession(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	fmt.Fprint(w, h.screens.Render(s))
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.GetSession(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if s.Stage != StageFinalDiagnosis || s.Diagnosis == nil {
		h.writeError(w, wrongStage("report", StageFinalDiagnosis, s.Stage))
		return
	}

	data, err := h.pdf.RenderPDF(*s)
	if err != nil {
		h.writeError(w, fmt.Errorf("render report: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "diagnosis_"+s.ID.String()+".pdf"))
	w.Write(data)
}
