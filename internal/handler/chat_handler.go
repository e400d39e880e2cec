package handler

import (
	"encoding/json"
	"net/http"

	"deptkb-go/internal/middleware"
	"deptkb-go/internal/repository"
	"deptkb-go/internal/service"
	"deptkb-go/internal/tools"
	"deptkb-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 浏览器端与 API 不同源，跨域校验交给网关
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ChatHandler 处理问答接口，包括阻塞式与 WebSocket 流式两种。
type ChatHandler struct {
	answers service.AnswerService
	conv    repository.ConversationRepository
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(answers service.AnswerService, conv repository.ConversationRepository) *ChatHandler {
	return &ChatHandler{answers: answers, conv: conv}
}

type askRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Question  string `json:"question" binding:"required"`
}

// Ask 处理阻塞式问答请求。
func (h *ChatHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	requester := tools.Requester{
		Role:  middleware.RequesterRole(c),
		Email: middleware.RequesterEmail(c),
	}
	result, err := h.answers.Answer(c.Request.Context(), req.SessionID, req.Question, requester)
	if err != nil {
		log.Errorf("[Chat] 问答失败, session: %s, error: %v", req.SessionID, err)
		Fail(c, http.StatusInternalServerError, "回答生成失败，请稍后重试")
		return
	}
	Success(c, result)
}

// History 返回某个会话的历史消息。
func (h *ChatHandler) History(c *gin.Context) {
	sessionID := c.Param("sessionId")
	messages, err := h.conv.GetHistory(c.Request.Context(), sessionID)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "读取历史失败")
		return
	}
	Success(c, messages)
}

// wsFinalFrame 是流式回答结束后发送的收尾帧。
type wsFinalFrame struct {
	Type   string                `json:"type"`
	Result *service.AnswerResult `json:"result"`
}

// Stream 处理 WebSocket 流式问答。每收到一条 {sessionId, question}
// 就流式返回分块，结束后补发一帧引用核验完成的最终结果。
func (h *ChatHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("[Chat] WebSocket 升级失败: %v", err)
		return
	}
	defer conn.Close()

	requester := tools.Requester{
		Role:  middleware.RequesterRole(c),
		Email: middleware.RequesterEmail(c),
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("[Chat] WebSocket 连接异常断开: %v", err)
			}
			return
		}

		var req askRequest
		if err := json.Unmarshal(payload, &req); err != nil || req.SessionID == "" || req.Question == "" {
			_ = conn.WriteJSON(gin.H{"type": "error", "msg": "消息格式错误"})
			continue
		}

		result, err := h.answers.StreamAnswer(c.Request.Context(), req.SessionID, req.Question, requester, conn)
		if err != nil {
			log.Errorf("[Chat] 流式问答失败, session: %s, error: %v", req.SessionID, err)
			_ = conn.WriteJSON(gin.H{"type": "error", "msg": "回答生成失败，请稍后重试"})
			continue
		}
		if err := conn.WriteJSON(wsFinalFrame{Type: "final", Result: result}); err != nil {
			log.Warnf("[Chat] 发送收尾帧失败: %v", err)
			return
		}
	}
}
