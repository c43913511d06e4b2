// Package events carries asynchronous lifecycle notifications from the
// monitored agent process and fans them out to interested adapters.
package events

import "time"

// Type identifies a hook event kind. The set is closed: payloads with any
// other kind string are rejected at the ingress boundary.
type Type string

const (
	// Stop signals that the agent finished its current task.
	Stop Type = "Stop"
	// PostToolUseFailure signals a failed tool invocation.
	PostToolUseFailure Type = "PostToolUseFailure"
	// Notification carries a permission or idle prompt needing attention.
	Notification Type = "Notification"
)

// TypeFromString maps a kind string onto the closed event type set.
func TypeFromString(s string) (Type, bool) {
	switch Type(s) {
	case Stop, PostToolUseFailure, Notification:
		return Type(s), true
	}
	return "", false
}

// NotificationKind classifies a Notification event.
type NotificationKind string

const (
	NotificationPermission NotificationKind = "permission"
	NotificationIdle       NotificationKind = "idle"
	NotificationUnknown    NotificationKind = "unknown"
)

// HookEvent is an immutable record of one notification from the monitored
// process. Events reference sessions by ID only; destroying the session does
// not invalidate events already published.
type HookEvent struct {
	Type      Type      `json:"event_type"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`

	// Stop fields
	StopHookActive bool   `json:"stop_hook_active,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`

	// PostToolUseFailure fields
	ToolName string `json:"tool_name,omitempty"`
	Error    string `json:"error,omitempty"`

	// Notification fields
	Title            string           `json:"title,omitempty"`
	Body             string           `json:"body,omitempty"`
	NotificationKind NotificationKind `json:"notification_type,omitempty"`

	// Raw payload kept for adapters that need fields not modeled here.
	RawPayload map[string]any `json:"-"`
}

// FromPayload validates a kind string against the closed set and builds the
// event from the hook payload. Unknown kinds return (nil, false) so the caller
// can report the payload as ignored rather than failed.
func FromPayload(kind string, payload map[string]any) (*HookEvent, bool) {
	eventType, ok := TypeFromString(kind)
	if !ok {
		return nil, false
	}

	event := &HookEvent{
		Type:       eventType,
		SessionID:  stringField(payload, "session_id", "unknown"),
		Timestamp:  time.Now(),
		RawPayload: payload,
	}

	switch eventType {
	case Stop:
		if v, ok := payload["stop_hook_active"].(bool); ok {
			event.StopHookActive = v
		}
		event.TranscriptPath = stringField(payload, "transcript_path", "")

	case PostToolUseFailure:
		event.ToolName = stringField(payload, "tool_name", "")
		event.Error = stringField(payload, "error", "")

	case Notification:
		event.Title = stringField(payload, "title", "")
		event.Body = stringField(payload, "body", "")
		switch NotificationKind(stringField(payload, "type", "unknown")) {
		case NotificationPermission:
			event.NotificationKind = NotificationPermission
		case NotificationIdle:
			event.NotificationKind = NotificationIdle
		default:
			event.NotificationKind = NotificationUnknown
		}
	}

	return event, true
}

// FormatMessage renders the event as a short human-readable message for
// chat adapters.
func (e *HookEvent) FormatMessage() string {
	switch e.Type {
	case Stop:
		return "Task completed (session: " + e.SessionID + ")"

	case PostToolUseFailure:
		tool := e.ToolName
		if tool == "" {
			tool = "unknown"
		}
		errMsg := e.Error
		if errMsg == "" {
			errMsg = "Unknown error"
		}
		return "Tool execution failed\nTool: " + tool + "\nError: " + errMsg

	case Notification:
		title := e.Title
		if title == "" {
			title = "Notification"
		}
		switch e.NotificationKind {
		case NotificationPermission:
			return "Permission request\n" + title + "\n" + e.Body
		case NotificationIdle:
			return "Idle state\n" + title + "\n" + e.Body
		default:
			return title + "\n" + e.Body
		}
	}

	return "Event: " + string(e.Type)
}

func stringField(payload map[string]any, key, fallback string) string {
	if v, ok := payload[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
