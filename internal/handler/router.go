package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/chatbox/internal/handler/chat"
	"github.com/zhouzirui/chatbox/internal/handler/profile"
	"github.com/zhouzirui/chatbox/internal/handler/stream"
	"github.com/zhouzirui/chatbox/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/chatbox/internal/middleware"
	profileModel "github.com/zhouzirui/chatbox/internal/model/profile"
	chatService "github.com/zhouzirui/chatbox/internal/service/chat"
	"github.com/zhouzirui/chatbox/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(profiles profileModel.Store, chatSvc *chatService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		profile.New(profiles).RegisterRoutes(api)
		chat.New(chatSvc).RegisterRoutes(api)
		stream.New(chatSvc, stream.DefaultHeartbeat).RegisterRoutes(api)
		ws.New(chatSvc).RegisterRoutes(api)
	})

	return r
}
