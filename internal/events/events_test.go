package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeFromString(t *testing.T) {
	tests := []struct {
		in    string
		want  Type
		valid bool
	}{
		{"Stop", Stop, true},
		{"PostToolUseFailure", PostToolUseFailure, true},
		{"Notification", Notification, true},
		{"stop", "", false},
		{"Unknown", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := TypeFromString(tt.in)
		assert.Equal(t, tt.valid, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestFromPayloadStop(t *testing.T) {
	event, ok := FromPayload("Stop", map[string]any{
		"session_id":       "sess_123",
		"stop_hook_active": true,
		"transcript_path":  "/tmp/transcript.json",
	})

	require.True(t, ok)
	assert.Equal(t, Stop, event.Type)
	assert.Equal(t, "sess_123", event.SessionID)
	assert.True(t, event.StopHookActive)
	assert.Equal(t, "/tmp/transcript.json", event.TranscriptPath)
	assert.False(t, event.Timestamp.IsZero())
}

func TestFromPayloadToolFailure(t *testing.T) {
	event, ok := FromPayload("PostToolUseFailure", map[string]any{
		"session_id": "sess_123",
		"tool_name":  "Bash",
		"error":      "command not found",
	})

	require.True(t, ok)
	assert.Equal(t, "Bash", event.ToolName)
	assert.Equal(t, "command not found", event.Error)
}

func TestFromPayloadNotification(t *testing.T) {
	event, ok := FromPayload("Notification", map[string]any{
		"session_id": "sess_123",
		"title":      "Permission needed",
		"body":       "Allow file write?",
		"type":       "permission",
	})

	require.True(t, ok)
	assert.Equal(t, NotificationPermission, event.NotificationKind)
	assert.Equal(t, "Permission needed", event.Title)
}

func TestFromPayloadUnknownNotificationKind(t *testing.T) {
	event, ok := FromPayload("Notification", map[string]any{
		"session_id": "sess_123",
		"type":       "weird",
	})

	require.True(t, ok)
	assert.Equal(t, NotificationUnknown, event.NotificationKind)
}

func TestFromPayloadUnknownKindRejected(t *testing.T) {
	event, ok := FromPayload("SomethingElse", map[string]any{"session_id": "sess_123"})

	assert.False(t, ok)
	assert.Nil(t, event)
}

func TestFromPayloadMissingSessionID(t *testing.T) {
	event, ok := FromPayload("Stop", map[string]any{})

	require.True(t, ok)
	assert.Equal(t, "unknown", event.SessionID)
}

func TestFormatMessage(t *testing.T) {
	stop, _ := FromPayload("Stop", map[string]any{"session_id": "sess_1"})
	assert.Contains(t, stop.FormatMessage(), "Task completed")

	failure, _ := FromPayload("PostToolUseFailure", map[string]any{
		"session_id": "sess_1",
		"tool_name":  "Edit",
		"error":      "file missing",
	})
	msg := failure.FormatMessage()
	assert.Contains(t, msg, "Edit")
	assert.Contains(t, msg, "file missing")
}
