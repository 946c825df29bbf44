package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/repository"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/service"
	"go.uber.org/zap"
)

const sessionsPrefix = "/api/v1/fever/sessions/"

// FeverHandler 发热自查、化验单、会话追问
type FeverHandler struct {
	triage *service.TriageService
	logger *zap.Logger
}

// NewFeverHandler 创建发热分诊 Handler
func NewFeverHandler(triage *service.TriageService, logger *zap.Logger) *FeverHandler {
	return &FeverHandler{triage: triage, logger: logger}
}

// ServeHTTP 路由分发
func (h *FeverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/fever/check" && r.Method == http.MethodPost:
		h.FeverCheck(w, r)
	case path == "/api/v1/fever/lab-report" && r.Method == http.MethodPost:
		h.LabReport(w, r)
	case strings.HasSuffix(path, "/messages") && r.Method == http.MethodPost:
		if id, ok := pathID(path, sessionsPrefix, "/messages"); ok {
			h.AddMessage(w, r, id)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case strings.HasPrefix(path, sessionsPrefix):
		id, ok := pathID(path, sessionsPrefix, "")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.GetSession(w, r, id)
		case http.MethodDelete:
			h.DeleteSession(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *FeverHandler) writeSessionError(w http.ResponseWriter, op, sessionID string, err error) {
	if errors.Is(err, repository.ErrSessionNotFound) {
		writeJSON(w, http.StatusOK, Fail("session not found"))
		return
	}
	h.logger.Error(op+" failed", zap.String("session_id", sessionID), zap.Error(err))
	writeJSON(w, http.StatusOK, Fail(err.Error()))
}

// FeverCheck POST /api/v1/fever/check
func (h *FeverHandler) FeverCheck(w http.ResponseWriter, r *http.Request) {
	var req service.FeverCheckRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	result, err := h.triage.FeverCheck(r.Context(), &req)
	if err != nil {
		h.logger.Error("FeverCheck failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// LabReport POST /api/v1/fever/lab-report
func (h *FeverHandler) LabReport(w http.ResponseWriter, r *http.Request) {
	var req service.LabReportRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	session, err := h.triage.LabReport(r.Context(), &req)
	if err != nil {
		h.logger.Warn("LabReport failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(session))
}

// GetSession GET /api/v1/fever/sessions/{id}
func (h *FeverHandler) GetSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, err := h.triage.GetSession(r.Context(), sessionID)
	if err != nil {
		h.writeSessionError(w, "GetSession", sessionID, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(session))
}

// AddMessage POST /api/v1/fever/sessions/{id}/messages
func (h *FeverHandler) AddMessage(w http.ResponseWriter, r *http.Request, sessionID string) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		writeJSON(w, http.StatusOK, Fail("message is required"))
		return
	}

	session, err := h.triage.AddMessage(r.Context(), sessionID, payload.Message)
	if err != nil {
		h.writeSessionError(w, "AddMessage", sessionID, err)
		return
	}

	reply := ""
	if n := len(session.Conversation); n > 0 {
		reply = session.Conversation[n-1].Content
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"reply":   reply,
		"session": session,
	}))
}

// DeleteSession DELETE /api/v1/fever/sessions/{id}
func (h *FeverHandler) DeleteSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := h.triage.DeleteSession(r.Context(), sessionID); err != nil {
		h.writeSessionError(w, "DeleteSession", sessionID, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"session_id": sessionID}))
}
