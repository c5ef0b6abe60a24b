package quiz

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"quizfunnel/internal/models"
	"quizfunnel/internal/reconcile"

	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload models.QuizPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	quiz, err := h.service.CreateQuiz(r.Context(), &payload, actor)
	if err != nil {
		writeReconcileError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(quiz)
}

// UpdateQuiz is the reconciliation endpoint: the client submits the full
// desired tree and gets back the persisted result with all identities
// resolved.
func (h *Handler) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	quizID, err := quizIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid quiz id", http.StatusBadRequest)
		return
	}

	var payload models.QuizPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	quiz, err := h.service.UpdateQuiz(r.Context(), quizID, &payload, actor)
	if err != nil {
		writeReconcileError(w, err)
		return
	}

	json.NewEncoder(w).Encode(quiz)
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	quizID, err := quizIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid quiz id", http.StatusBadRequest)
		return
	}

	quiz, err := h.service.GetQuiz(quizID, actor)
	if err != nil {
		writeReconcileError(w, err)
		return
	}

	json.NewEncoder(w).Encode(quiz)
}

func (h *Handler) GetMyQuizzes(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	quizzes, err := h.service.ListQuizzes(actor)
	if err != nil {
		http.Error(w, "Failed to list quizzes", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(quizzes)
}

func (h *Handler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	quizID, err := quizIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid quiz id", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteQuiz(quizID, actor); err != nil {
		writeReconcileError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetPublicQuiz serves the respondent-facing tree; no auth required.
func (h *Handler) GetPublicQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := quizIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid quiz id", http.StatusBadRequest)
		return
	}

	view, err := h.service.GetPublicQuiz(quizID)
	if err != nil {
		writeReconcileError(w, err)
		return
	}

	json.NewEncoder(w).Encode(view)
}

func quizIDFromRequest(r *http.Request) (uint, error) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["quizID"], 10, 32)
	return uint(id), err
}

func actorFromRequest(r *http.Request) (reconcile.Actor, bool) {
	userID, ok := r.Context().Value("user_id").(uint)
	if !ok {
		return reconcile.Actor{}, false
	}
	actor := reconcile.Actor{UserID: userID}
	if role, ok := r.Context().Value("role").(string); ok {
		actor.IsAdmin = role == models.RoleAdmin
	}
	if shopID, ok := r.Context().Value("shop_id").(uint); ok {
		actor.ShopID = shopID
	}
	return actor, true
}

// writeReconcileError maps the engine's error taxonomy onto HTTP statuses.
// Validation kinds carry enough detail for the caller to fix the payload;
// storage failures stay generic.
func writeReconcileError(w http.ResponseWriter, err error) {
	kind := reconcile.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case reconcile.KindNotFound:
		status = http.StatusNotFound
	case reconcile.KindUnauthorized:
		status = http.StatusForbidden
	case reconcile.KindDuplicateOrdering, reconcile.KindInvalidQuestionShape:
		status = http.StatusUnprocessableEntity
	case reconcile.KindRestoreConflict, reconcile.KindEmptyActiveSet:
		status = http.StatusConflict
	case reconcile.KindStorageFailure:
		status = http.StatusInternalServerError
	default:
		log.Printf("Unclassified error: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":  kind.String(),
		"detail": err.Error(),
	})
}
