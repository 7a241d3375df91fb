package domain

// Action websocket request action
type Action string

const (
	// EnterThread websocket action enter_thread
	EnterThread Action = "enter_thread"
	// LeaveThread websocket action leave_thread
	LeaveThread Action = "leave_thread"

	// LoadMoreMessages websocket action load_more_messages
	LoadMoreMessages Action = "load_more_messages"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// ToggleLike websocket action toggle_like
	ToggleLike Action = "toggle_like"
	// DeleteMessage websocket action delete_message
	DeleteMessage Action = "delete_message"

	// CreateGroup websocket action create_group
	CreateGroup Action = "create_group"
	// JoinGroup websocket action join_group
	JoinGroup Action = "join_group"
	// InviteMember websocket action invite_member
	InviteMember Action = "invite_member"

	// LoadNotifications websocket action load_notifications
	LoadNotifications Action = "load_notifications"
	// LoadMoreNotifications websocket action load_more_notifications
	LoadMoreNotifications Action = "load_more_notifications"
	// MarkRead websocket action mark_read
	MarkRead Action = "mark_read"
	// MarkAllRead websocket action mark_all_read
	MarkAllRead Action = "mark_all_read"
	// DeleteNotification websocket action delete_notification
	DeleteNotification Action = "delete_notification"

	// FeedChanged server push: the subscribed feed view changed
	FeedChanged Action = "feed_changed"
	// NotifyAlert server push: show a foreground alert (already deduped)
	NotifyAlert Action = "notify_alert"
)

// WSRequest websocket Request
type WSRequest struct {
	Action           string `json:"action"`
	ThreadID         string `json:"thread_id,omitempty"`
	Content          string `json:"content,omitempty"`
	ImageURL         string `json:"image_url,omitempty"`
	ReplyToMessageID string `json:"reply_to_message_id,omitempty"`
	MessageID        string `json:"message_id,omitempty"`
	NotificationID   string `json:"notification_id,omitempty"`
	GroupID          string `json:"group_id,omitempty"`
	GroupName        string `json:"group_name,omitempty"`
	RecipientID      string `json:"recipient_id,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
