package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type StartSessionRequest struct {
	VisitorKey string `json:"visitor_key"`
}

type AnswerRequest struct {
	QuestionID     uint   `json:"question_id"`
	AnswerOptionID *uint  `json:"answer_option_id,omitempty"`
	FreeText       string `json:"free_text,omitempty"`
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	quizID, err := strconv.ParseUint(vars["quizID"], 10, 32)
	if err != nil {
		http.Error(w, "Invalid quiz id", http.StatusBadRequest)
		return
	}

	var req StartSessionRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	session, err := h.service.StartSession(uint(quizID), req.VisitorKey)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session)
}

func (h *Handler) RecordAnswer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID, err := strconv.ParseUint(vars["sessionID"], 10, 32)
	if err != nil {
		http.Error(w, "Invalid session id", http.StatusBadRequest)
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.service.RecordAnswer(uint(sessionID), req.QuestionID, req.AnswerOptionID, req.FreeText)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(record)
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrQuizNotFound), errors.Is(err, ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrQuestionNotFound), errors.Is(err, ErrOptionNotFound):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
