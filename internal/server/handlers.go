package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/spherical/cropcare/internal/conversation"
	"github.com/spherical/cropcare/internal/domain"
	"github.com/spherical/cropcare/internal/session"
)

type languageDTO struct {
	Name  string `json:"name"`
	Flag  string `json:"flag"`
	Code  string `json:"code"`
	Label string `json:"label"`
}

type examplesDTO struct {
	Document []string `json:"document"`
	General  []string `json:"general"`
}

type sessionDTO struct {
	*session.Session
	State    conversation.State `json:"state"`
	Examples *examplesDTO       `json:"examples,omitempty"`
}

type languageRequest struct {
	Language string `json:"language"`
}

type questionRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	conversation.ChatOutcome
	Transcript []session.Message `json:"transcript"`
}

func newSessionDTO(sess *session.Session) sessionDTO {
	dto := sessionDTO{Session: sess, State: conversation.StateOf(sess)}
	if sess.LanguageSelected {
		doc, gen := conversation.Examples(sess)
		dto.Examples = &examplesDTO{Document: doc, General: gen}
	}
	return dto
}

func (s *Server) listLanguages(w http.ResponseWriter, r *http.Request) {
	out := make([]languageDTO, 0, len(session.Languages))
	for _, l := range session.Languages {
		out = append(out, languageDTO{Name: l.Name, Flag: l.Flag, Code: l.Code, Label: l.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess := s.store.Create()
	s.logger.WithContext(r.Context()).WithSession(sess.ID).Info().Msg("Session created")
	writeJSON(w, http.StatusCreated, newSessionDTO(sess))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionDTO(sess))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	s.store.Delete(chi.URLParam(r, "sessionId"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) selectLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	s.withSession(w, r, func(sess *session.Session) (int, interface{}, error) {
		if err := s.flow.SelectLanguage(sess, req.Language); err != nil {
			return 0, nil, err
		}
		return http.StatusOK, newSessionDTO(sess), nil
	})
}

func (s *Server) changeLanguage(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) (int, interface{}, error) {
		s.flow.ChangeLanguage(sess)
		return http.StatusOK, newSessionDTO(sess), nil
	})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large", "limit is "+strconv.FormatInt(s.cfg.MaxUploadBytes, 10)+" bytes")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required", err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload", err.Error())
		return
	}
	artifact := domain.Artifact{Name: header.Filename, Data: data}

	s.withSession(w, r, func(sess *session.Session) (int, interface{}, error) {
		out, err := s.flow.Upload(r.Context(), sess, artifact, nil)
		if err != nil {
			return 0, out, err
		}
		return http.StatusOK, out, nil
	})
}

func (s *Server) documentChat(w http.ResponseWriter, r *http.Request) {
	s.chat(w, r, func(sess *session.Session, q string) (conversation.ChatOutcome, []session.Message, error) {
		out, err := s.flow.AskDocument(r.Context(), sess, q)
		return out, sess.DocumentChat, err
	})
}

func (s *Server) generalChat(w http.ResponseWriter, r *http.Request) {
	s.chat(w, r, func(sess *session.Session, q string) (conversation.ChatOutcome, []session.Message, error) {
		out, err := s.flow.AskGeneral(r.Context(), sess, q)
		return out, sess.GeneralChat, err
	})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request, ask func(*session.Session, string) (conversation.ChatOutcome, []session.Message, error)) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	s.withSession(w, r, func(sess *session.Session) (int, interface{}, error) {
		out, transcript, err := ask(sess, req.Question)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, chatResponse{ChatOutcome: out, Transcript: transcript}, nil
	})
}

func (s *Server) summaryAudio(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out, err := s.flow.SpeakSummary(r.Context(), sess)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if out.Audio == nil {
		writeJSON(w, http.StatusBadGateway, out)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Audio)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Audio)
}

// withSession runs fn under the session lock and persists the session when
// fn succeeds. Unsupported uploads still return their outcome body.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session.Session) (int, interface{}, error)) {
	id := chi.URLParam(r, "sessionId")
	unlock, err := s.store.Lock(id)
	if errors.Is(err, session.ErrBusy) {
		writeError(w, http.StatusConflict, "another action is in progress for this session", "")
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	defer unlock()

	sess, err := s.store.Get(id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	status, body, err := fn(sess)
	if err != nil {
		if body != nil && domain.IsType(err, domain.ErrorTypeUnsupportedFile) {
			writeJSON(w, http.StatusUnsupportedMediaType, body)
			return
		}
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.store.Save(sess); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, status, body)
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case domain.IsType(err, domain.ErrorTypeValidation):
		status = http.StatusBadRequest
	case domain.IsType(err, domain.ErrorTypeState):
		status = http.StatusConflict
	case domain.IsType(err, domain.ErrorTypeUnsupportedFile):
		status = http.StatusUnsupportedMediaType
	}
	if status == http.StatusInternalServerError {
		s.logger.WithContext(r.Context()).Error().Err(err).Msg("Request failed")
	}
	writeError(w, status, http.StatusText(status), err.Error())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}
