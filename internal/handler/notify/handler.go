package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/wellbeingchat/backend/internal/apperr"
	"github.com/wellbeingchat/backend/internal/notify"
	authService "github.com/wellbeingchat/backend/internal/service/auth"
	"github.com/wellbeingchat/backend/pkg/utils"
)

const readWait = 60 * time.Second

// Handler 通知权限与推送连接处理器
type Handler struct {
	notifySvc *notify.Service
	upgrader  websocket.Upgrader
}

type permissionPayload struct {
	State string `json:"state"`
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// New 创建通知处理器
func New(notifySvc *notify.Service) *Handler {
	return &Handler{
		notifySvc: notifySvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes 注册通知路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/permission", h.handleGetPermission)
		r.Put("/permission", h.handleSetPermission)
		r.Get("/ws", h.handleWebSocket)
	})
}

func (h *Handler) handleGetPermission(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())
	p, err := h.notifySvc.Permission(r.Context(), session.ProfileID)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, permissionPayload{State: string(p)})
}

func (h *Handler) handleSetPermission(w http.ResponseWriter, r *http.Request) {
	var payload permissionPayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	p, ok := notify.ParsePermission(payload.State)
	if !ok {
		utils.RespondServiceError(w, apperr.Validation("invalid permission %q", payload.State))
		return
	}

	session, _ := authService.FromContext(r.Context())
	if err := h.notifySvc.SetPermission(r.Context(), session.ProfileID, p); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, permissionPayload{State: string(p)})
}

// handleWebSocket 建立推送连接；客户端通过 permission 消息回答权限请求
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("component", "notify").Msg("upgrade failed")
		return
	}
	defer conn.Close()

	// 请求上下文在升级后不再可靠
	ctx := context.WithoutCancel(r.Context())

	client := h.notifySvc.Hub().Register(session.ProfileID, conn)
	defer h.notifySvc.Hub().Unregister(client)

	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	current, err := h.notifySvc.Permission(ctx, session.ProfileID)
	if err != nil {
		log.Warn().Err(err).Str("component", "notify").Str("profile", session.ProfileID).Msg("load permission failed")
		current = notify.Undetermined
	}
	client.Send(notify.Event{
		Type: notify.EventConnected,
		Data: map[string]string{"profileId": session.ProfileID, "permission": string(current)},
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("component", "notify").Msg("read error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readWait))

		switch msg.Type {
		case notify.EventPermission:
			var payload permissionPayload
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				continue
			}
			p, ok := notify.ParsePermission(payload.State)
			if !ok {
				continue
			}
			if err := h.notifySvc.SetPermission(ctx, session.ProfileID, p); err != nil {
				log.Warn().Err(err).Str("component", "notify").Str("profile", session.ProfileID).Msg("store permission failed")
				continue
			}
			client.Send(notify.Event{Type: notify.EventPermission, Data: permissionPayload{State: string(p)}})
		default:
			log.Debug().Str("component", "notify").Str("type", msg.Type).Msg("ignored client message")
		}
	}
}
