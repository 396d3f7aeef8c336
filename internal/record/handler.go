package handler

import (
	"encoding/json"
	"net/http"
	"recordstore/internal/record/model"
	"recordstore/internal/record/store"
	"recordstore/middleware"
	"recordstore/pkg/logger"
)

type RecordHandler struct {
	Store *store.RecordStore
}

func NewRecordHandler(s *store.RecordStore) *RecordHandler {
	return &RecordHandler{Store: s}
}

func (h *RecordHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Store.CreateUser(middleware.Caller(r.Context()), req.UserID, req.Name, req.Email); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	w.Write([]byte("User created successfully"))
}

func (h *RecordHandler) GetUserDetails(w http.ResponseWriter, r *http.Request) {
	// an empty id is passed through; the store decides whether it exists
	userID := r.URL.Query().Get("userId")

	user, err := h.Store.UserDetails(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, model.UserDetailsResponse{Name: user.Name, Email: user.Email, Documents: user.Documents})
}

func (h *RecordHandler) GetDocumentsByUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")

	docs, err := h.Store.DocumentsByUser(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, docs)
}

func (h *RecordHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req model.CreateDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Store.CreateDocument(middleware.Caller(r.Context()), req.UserID, req.ContentHash, req.DocumentID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	w.Write([]byte("Document created successfully"))
}

func (h *RecordHandler) AddAuditEntries(w http.ResponseWriter, r *http.Request) {
	var req model.AuditBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.Store.AddAuditEntries(middleware.Caller(r.Context()), req.DocumentIDs, req.UserIDs, req.Actions, req.Timestamps)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	w.Write([]byte("Audit entries added successfully"))
}

func (h *RecordHandler) GetAuditHistory(w http.ResponseWriter, r *http.Request) {
	documentID := r.URL.Query().Get("documentId")
	writeJSON(w, h.Store.AuditHistory(documentID))
}

func (h *RecordHandler) ShareDocument(w http.ResponseWriter, r *http.Request) {
	var req model.ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Store.ShareDocument(middleware.Caller(r.Context()), req.UserID, req.SharedWithUserID, req.DocumentID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Document shared successfully"))
}

func (h *RecordHandler) GetShareDocument(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	doc, err := h.Store.SharedDocument(middleware.Caller(r.Context()), q.Get("userId"), q.Get("sharedWithUserId"), q.Get("documentId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, doc)
}

func (h *RecordHandler) HasAccess(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, model.AccessResponse{HasAccess: h.Store.HasAccess(q.Get("sharedUserId"), q.Get("documentId"))})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Handler: Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := model.StatusCode(err)
	if status == http.StatusInternalServerError {
		logger.Sugar.Errorf("Handler: unexpected error: %v", err)
		http.Error(w, "Internal server error", status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: model.KindOf(err), Message: err.Error()})
}
