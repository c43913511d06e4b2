package localterm

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilejp/cc-anywhere-windows/internal/termctl"
)

func TestBufferEvictsOldest(t *testing.T) {
	b := NewBuffer(8)

	b.Write([]byte("abcdefgh"))
	b.Write([]byte("ij"))

	assert.Equal(t, []byte("cdefghij"), b.Snapshot())
	assert.Equal(t, 8, b.Len())
}

func TestBufferSnapshotIsCopy(t *testing.T) {
	b := NewBuffer(16)
	b.Write([]byte("hello"))

	snap := b.Snapshot()
	snap[0] = 'X'

	assert.True(t, bytes.Equal([]byte("hello"), b.Snapshot()))
}

func TestSpawnAndCaptureOutput(t *testing.T) {
	ctrl := NewController(nil)
	ctx := context.Background()

	id, err := ctrl.Spawn(ctx, "ws", t.TempDir(), []string{"sh", "-c", "echo hello-pane"})
	require.NoError(t, err)
	require.Greater(t, id, 0)

	require.Eventually(t, func() bool {
		text, err := ctrl.GetText(ctx, id, 10, false)
		return err == nil && strings.Contains(text, "hello-pane")
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, ctrl.Kill(ctx, id))
}

func TestSendText(t *testing.T) {
	ctrl := NewController(nil)
	ctx := context.Background()

	id, err := ctrl.Spawn(ctx, "ws", t.TempDir(), []string{"cat"})
	require.NoError(t, err)
	defer ctrl.Kill(ctx, id)

	require.NoError(t, ctrl.SendText(ctx, id, "ping\r"))

	require.Eventually(t, func() bool {
		text, err := ctrl.GetText(ctx, id, 10, false)
		return err == nil && strings.Contains(text, "ping")
	}, 2*time.Second, 20*time.Millisecond)
}

func TestListAndKill(t *testing.T) {
	ctrl := NewController(nil)
	ctx := context.Background()

	id, err := ctrl.Spawn(ctx, "my-workspace", t.TempDir(), []string{"cat"})
	require.NoError(t, err)

	panes, err := ctrl.List(ctx)
	require.NoError(t, err)
	require.Len(t, panes, 1)
	assert.Equal(t, id, panes[0].PaneID)
	assert.Equal(t, "my-workspace", panes[0].Workspace)

	require.NoError(t, ctrl.Kill(ctx, id))

	panes, err = ctrl.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, panes)
}

func TestUnknownPane(t *testing.T) {
	ctrl := NewController(nil)
	ctx := context.Background()

	err := ctrl.SendText(ctx, 999, "x")
	require.Error(t, err)

	var tErr *termctl.Error
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "lookup", tErr.Op)
}

func TestSpawnEmptyCommand(t *testing.T) {
	ctrl := NewController(nil)
	_, err := ctrl.Spawn(context.Background(), "ws", t.TempDir(), nil)
	require.Error(t, err)
}
