package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/zhouzirui/chatbox/internal/model/chat"
	"github.com/zhouzirui/chatbox/internal/model/profile"
	chatService "github.com/zhouzirui/chatbox/internal/service/chat"
	"github.com/zhouzirui/chatbox/pkg/utils"
)

var validate = validator.New()

// Handler 聊天组件的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Route("/session/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleGetSnapshot)
		r.Delete("/", h.handleCloseSession)
		r.Put("/input", h.handleSetInput)
		r.Post("/messages", h.handleSubmit)
	})
}

type createSessionRequest struct {
	ProfileID string `json:"profileId" validate:"omitempty,max=32"`
}

type sessionResponse struct {
	Session  chat.Session    `json:"session"`
	Profile  profile.Profile `json:"profile"`
	Snapshot chat.Snapshot   `json:"snapshot"`
}

type inputRequest struct {
	Text *string `json:"text"`
}

// handleCreateSession 挂载一个新的空会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload createSessionRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid profileId")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.ProfileID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chatService.ErrProfileNotFound) {
			status = http.StatusBadRequest
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	p, err := h.chatSvc.Profile(r.Context(), session.ID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	conv, err := h.chatSvc.Conversation(r.Context(), session.ID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, sessionResponse{
		Session:  session,
		Profile:  p,
		Snapshot: conv.Snapshot(),
	})
}

// handleGetSnapshot 返回会话当前状态
func (h *Handler) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, conv.Snapshot())
}

// handleCloseSession 卸载会话并丢弃其状态
func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.chatSvc.CloseSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetInput 更新输入框中的待发送文本
func (h *Handler) handleSetInput(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}

	var payload inputRequest
	if err := utils.DecodeJSON(r, &payload); err != nil || payload.Text == nil {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	conv.SetInput(*payload.Text)
	utils.RespondJSON(w, http.StatusOK, conv.Snapshot())
}

// handleSubmit 发送消息；未提供 text 时发送当前输入框内容
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}

	var payload inputRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var err error
	if payload.Text != nil {
		err = conv.Submit(*payload.Text)
	} else {
		err = conv.SubmitPending()
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, conv.Snapshot())
}

func (h *Handler) conversation(w http.ResponseWriter, r *http.Request) (*chatService.Conversation, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	conv, err := h.chatSvc.Conversation(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return nil, false
	}
	return conv, true
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound), errors.Is(err, chatService.ErrConversationClosed):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrEmptyInput):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatService.ErrBusy):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
