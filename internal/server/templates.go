package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/palemoky/imposter/internal/apperrors"
	"github.com/palemoky/imposter/internal/game/model"
	"github.com/palemoky/imposter/internal/protocol"
	"github.com/palemoky/imposter/internal/server/storage"
)

// handleCreateTemplate POST /games 创建游戏模板
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var input model.GameTemplate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.ErrorPayload{
			Code:    protocol.ErrCodeInvalidMsg,
			Message: protocol.ErrorMessages[protocol.ErrCodeInvalidMsg],
		})
		return
	}

	tpl, err := s.templates.Create(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

// handleListTemplates GET /games?id=&name=&page=&count= 查询游戏模板
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.TemplateFilter{ID: q.Get("id"), Name: q.Get("name")}

	var err error
	if filter.Page, err = intParam(q.Get("page")); err == nil {
		filter.Count, err = intParam(q.Get("count"))
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.ErrorPayload{
			Code:    protocol.ErrCodeInvalidMsg,
			Message: "page 和 count 必须是整数",
		})
		return
	}

	list, err := s.templates.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// statusOf 错误类别对应的 HTTP 状态码
func statusOf(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindStateConflict:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

func writeError(w http.ResponseWriter, err error) {
	payload := protocol.ErrorPayload{
		Code:    protocol.ErrCodeInfrastructure,
		Message: protocol.ErrorMessages[protocol.ErrCodeInfrastructure],
		RoomID:  apperrors.RoomIDOf(err),
	}
	var gameErr *apperrors.GameError
	if errors.As(err, &gameErr) {
		payload.Code = gameErr.Code
		payload.Message = err.Error()
	}
	writeJSON(w, statusOf(err), payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
