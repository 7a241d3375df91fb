package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gratitude_chat_service/internal/feed/domain"
	"gratitude_chat_service/internal/feed/repository"
	notifyapp "gratitude_chat_service/internal/notify/app"
	notifydomain "gratitude_chat_service/internal/notify/domain"
	notifyrepo "gratitude_chat_service/internal/notify/repository"
	"gratitude_chat_service/pkg/logger"
	"gratitude_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// FeedWebsocketHandler builds one message feed and one notification feed per
// connection and pushes view snapshots down the socket as they change
type FeedWebsocketHandler struct {
	msgRepo   repository.MessageRepository
	groups    repository.GroupRepository
	members   repository.MemberRepository
	pubsub    repository.FeedPubSub
	notifier  Notifier
	notifRepo notifyrepo.NotificationRepository
	dedup     *notifyapp.DedupStore
	groupUC   *GroupUseCase
}

// NewFeedWebsocketHandler create FeedWebsocketHandler
func NewFeedWebsocketHandler(
	msgRepo repository.MessageRepository,
	groups repository.GroupRepository,
	members repository.MemberRepository,
	pubsub repository.FeedPubSub,
	notifier Notifier,
	notifRepo notifyrepo.NotificationRepository,
	dedup *notifyapp.DedupStore,
) *FeedWebsocketHandler {
	return &FeedWebsocketHandler{
		msgRepo:   msgRepo,
		groups:    groups,
		members:   members,
		pubsub:    pubsub,
		notifier:  notifier,
		notifRepo: notifRepo,
		dedup:     dedup,
		groupUC:   NewGroupUseCase(groups, members, notifier),
	}
}

// feedConn per-connection state; writeMu serializes socket writes because
// snapshot callbacks fire from subscriber goroutines
type feedConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	userID    string
	msgFeed   *MessageFeedUseCase
	notifFeed *NotificationFeedUseCase
}

// HandleConnection websocket entry point, one loop per client
func (h *FeedWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenUser := conn.Locals(middlewares.TokenUserID)
	userID, ok := tokenUser.(string)
	if !ok || userID == "" {
		logger.Log.Error("websocket connection without user id")
		conn.Close()
		return
	}
	logger.Log.Info("websocket connected", zap.String("userID", userID))

	fc := &feedConn{
		conn:      conn,
		userID:    userID,
		msgFeed:   NewMessageFeedUseCase(h.msgRepo, h.groups, h.members, h.pubsub, h.notifier),
		notifFeed: NewNotificationFeedUseCase(h.notifRepo, h.pubsub),
	}

	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	defer func() {
		ticker.Stop()
		// synchronous teardown: no event handler runs after this point
		fc.msgFeed.Close()
		fc.notifFeed.Close()
		logger.Log.Info("websocket close", zap.String("userID", userID))
		conn.Close()
		cancel()
	}()

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	fc.msgFeed.SetOnChange(func(items []domain.Message, hasMore bool) {
		fc.send(domain.WSResponse{
			Action:  string(domain.FeedChanged),
			Success: true,
			Payload: map[string]interface{}{
				"scope":    "messages",
				"items":    items,
				"has_more": hasMore,
			},
		})
	})
	fc.notifFeed.SetOnChange(func(items []notifydomain.NotificationRecord, unread int, hasMore bool) {
		fc.send(domain.WSResponse{
			Action:  string(domain.FeedChanged),
			Success: true,
			Payload: map[string]interface{}{
				"scope":        "notifications",
				"items":        items,
				"unread_count": unread,
				"has_more":     hasMore,
			},
		})
	})
	fc.notifFeed.SetOnAlert(func(rec notifydomain.NotificationRecord) {
		if h.dedup != nil && h.dedup.ShouldSuppress(rec.Kind, rec.EventID()) {
			logger.Log.Debug("alert suppressed",
				zap.String("dedupe_key", notifydomain.DedupeKey(rec.Kind, rec.EventID())))
			return
		}
		fc.send(domain.WSResponse{
			Action:  string(domain.NotifyAlert),
			Success: true,
			Payload: map[string]interface{}{
				"notification": rec,
			},
		})
	})

	if err := fc.notifFeed.Load(ctx, userID); err != nil {
		logger.Log.Error("notification feed load failed",
			zap.String("userID", userID),
			zap.Error(err),
		)
	}

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
					logger.Log.Errorf("ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("connection closed", zap.String("userID", userID))
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			fc.sendError("unknown message type")
			continue
		}
		h.textMessageAction(ctx, fc, message)
	}
}

func (h *FeedWebsocketHandler) textMessageAction(ctx context.Context, fc *feedConn, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		fc.sendError("bad request payload")
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch req.Action {
	case string(domain.EnterThread):
		if err := fc.msgFeed.Load(ctx, req.ThreadID, fc.userID); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["thread_id"] = req.ThreadID
		}

	case string(domain.LeaveThread):
		fc.msgFeed.Close()
		resp.Success = true
		resp.Payload["thread_id"] = req.ThreadID

	case string(domain.LoadMoreMessages):
		if err := fc.msgFeed.LoadMore(ctx); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["has_more"] = fc.msgFeed.HasMore()
		}

	case string(domain.SendMessage):
		sent, err := fc.msgFeed.Send(ctx, req.Content, req.ImageURL, req.ReplyToMessageID)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["message_id"] = sent.ID
		}

	case string(domain.ToggleLike):
		if err := fc.msgFeed.ToggleLike(ctx, req.MessageID); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
		}

	case string(domain.DeleteMessage):
		if err := fc.msgFeed.DeleteMessage(ctx, req.MessageID); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["message_id"] = req.MessageID
		}

	case string(domain.CreateGroup):
		group, err := h.groupUC.CreateGroup(ctx, req.GroupName, fc.userID)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["group_id"] = group.ID
		}

	case string(domain.JoinGroup):
		if err := h.groupUC.JoinGroup(ctx, req.GroupID, fc.userID); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["group_id"] = req.GroupID
		}

	case string(domain.InviteMember):
		if err := h.groupUC.InviteMember(ctx, req.GroupID, fc.userID, req.RecipientID); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["group_id"] = req.GroupID
		}

	case string(domain.LoadNotifications):
		if err := fc.notifFeed.Load(ctx, fc.userID); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["unread_count"] = fc.notifFeed.UnreadCount()
		}

	case string(domain.LoadMoreNotifications):
		if err := fc.notifFeed.LoadMore(ctx); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["has_more"] = fc.notifFeed.HasMore()
		}

	case string(domain.MarkRead):
		if err := fc.notifFeed.MarkRead(ctx, req.NotificationID); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["unread_count"] = fc.notifFeed.UnreadCount()
		}

	case string(domain.MarkAllRead):
		if err := fc.notifFeed.MarkAllRead(ctx); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["unread_count"] = fc.notifFeed.UnreadCount()
		}

	case string(domain.DeleteNotification):
		if err := fc.notifFeed.Delete(ctx, req.NotificationID); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
		}

	default:
		fc.sendError("unknown action")
		return
	}

	if resp.Error != "" {
		logger.Log.Error("websocket action failed",
			zap.String("userID", fc.userID),
			zap.String("action", req.Action),
			zap.String("err", resp.Error),
		)
	}
	fc.send(resp)
}

func (fc *feedConn) send(resp domain.WSResponse) {
	b, _ := json.Marshal(resp)
	fc.writeMu.Lock()
	defer fc.writeMu.Unlock()
	if err := fc.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}

func (fc *feedConn) sendError(errorMsg string) {
	fc.send(domain.WSResponse{
		Action:  "error",
		Success: false,
		Error:   errorMsg,
	})
}
