package consumers

import (
	"math"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/head_tracker/internal/calibration"
	"github.com/relabs-tech/head_tracker/internal/orientation"
	"github.com/relabs-tech/head_tracker/internal/pipeline"
)

type commandRecorder struct {
	mu   sync.Mutex
	cmds []calibration.Command
}

func (r *commandRecorder) Submit(cmd calibration.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
}

func (r *commandRecorder) all() []calibration.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]calibration.Command(nil), r.cmds...)
}

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readResponse(t *testing.T, conn *websocket.Conn) WSResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var resp WSResponse
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestHub_StreamsOrientation(t *testing.T) {
	muteLogs(t)
	h := NewHub(&commandRecorder{})
	conn := dialHub(t, h)
	require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, time.Millisecond)

	h.ReceiveOrientation(orientation.RotationY(math.Pi / 2))

	resp := readResponse(t, conn)
	require.Equal(t, "orientation", resp.Type)
	require.NotNil(t, resp.Orientation)
	assert.InDelta(t, 90.0, resp.Orientation.Pose.Yaw, 1e-6)
}

func TestHub_SendsLastStatusOnConnect(t *testing.T) {
	muteLogs(t)
	h := NewHub(&commandRecorder{})
	h.StatusChanged(pipeline.Status{State: pipeline.Disconnected})

	conn := dialHub(t, h)
	resp := readResponse(t, conn)
	require.Equal(t, "status", resp.Type)
	require.NotNil(t, resp.Status)
	assert.Equal(t, pipeline.Disconnected, resp.Status.State)
}

func TestHub_ActionsBecomeCommands(t *testing.T) {
	muteLogs(t)
	rec := &commandRecorder{}
	h := NewHub(rec)
	conn := dialHub(t, h)

	require.NoError(t, conn.WriteJSON(WSMessage{Action: "recalibrate"}))
	resp := readResponse(t, conn)
	assert.Equal(t, WSResponse{Type: "ack", Message: "recalibrate"}, resp)

	require.NoError(t, conn.WriteJSON(WSMessage{Action: "clear"}))
	resp = readResponse(t, conn)
	assert.Equal(t, WSResponse{Type: "ack", Message: "clear"}, resp)

	require.NoError(t, conn.WriteJSON(WSMessage{Action: "dance"}))
	resp = readResponse(t, conn)
	assert.Equal(t, "error", resp.Type)

	assert.Equal(t, []calibration.Command{calibration.Recalibrate, calibration.ClearCalibration}, rec.all())
}

func TestHub_ClientRemovedOnDisconnect(t *testing.T) {
	muteLogs(t)
	h := NewHub(&commandRecorder{})
	conn := dialHub(t, h)
	require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.Len() == 0 }, time.Second, time.Millisecond)

	assert.NotPanics(t, func() { h.ReceiveOrientation(orientation.Identity()) })
}
