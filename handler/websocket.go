package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"dinq_match/channel"
	"dinq_match/middleware"
	"dinq_match/realtime"
	"dinq_match/service"
	"dinq_match/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsEnvelope 推送给客户端的消息格式
type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type RealtimeHandler struct {
	registry   *realtime.Registry
	profileSvc *service.ProfileService
}

func NewRealtimeHandler(registry *realtime.Registry, profileSvc *service.ProfileService) *RealtimeHandler {
	return &RealtimeHandler{registry: registry, profileSvc: profileSvc}
}

// HandleWebSocket 处理 WebSocket 连接，把用户投递地址上的通知推送给客户端
// GET /ws?token=
func (h *RealtimeHandler) HandleWebSocket(c *gin.Context) {
	// 从 query 参数获取 token
	tokenString := c.Query("token")
	if tokenString == "" {
		utils.Unauthorized(c, "missing token")
		return
	}

	userID, err := middleware.ValidateToken(tokenString)
	if err != nil {
		utils.Unauthorized(c, "invalid token")
		return
	}

	address, err := h.profileSvc.GetDeliveryAddress(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrAddressUnresolved) {
			utils.BadRequest(c, "profile has no delivery address")
			return
		}
		respondError(c, err)
		return
	}

	sub, err := h.registry.Subscribe(c.Request.Context(), channel.Topic(address))
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Close()
		utils.Logger().Error("websocket upgrade failed", zap.String("profile_id", userID.String()), zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	go readPump(conn, cancel)
	go writePump(ctx, conn, sub, userID)
}

// readPump 只处理控制帧，连接断开时取消写协程
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// 客户端消息（如 heartbeat）只用于续期
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// writePump 转发订阅到的通知并定期 ping
func writePump(ctx context.Context, conn *websocket.Conn, sub *realtime.Subscription, userID uuid.UUID) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		conn.Close()
		utils.Logger().Debug("websocket closed", zap.String("profile_id", userID.String()))
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case payload, ok := <-sub.C:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			msg, err := json.Marshal(wsEnvelope{Type: "notification", Data: payload})
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
