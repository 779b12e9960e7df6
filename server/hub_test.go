package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gomantle/model_problems/Convection2D"
)

func testSnapshot(iter int) *Convection2D.Snapshot {
	return &Convection2D.Snapshot{
		Iteration:  iter,
		Time:       0.5 * float64(iter),
		TimeMyr:    2 * float64(iter),
		Dt:         0.5,
		T:          mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}),
		Vx:         mat.NewDense(2, 3, nil),
		Vz:         mat.NewDense(2, 3, nil),
		P:          mat.NewDense(2, 3, nil),
		Topography: []float64{-1, 0, 1},
	}
}

func TestNewFrame(t *testing.T) {
	s := testSnapshot(4)
	f := NewFrame(s)
	assert.Equal(t, "snapshot", f.Type)
	assert.Equal(t, 4, f.Iteration)
	assert.Equal(t, 3, f.Nx)
	assert.Equal(t, 2, f.Nz)
	assert.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}}, f.T)
	// Frames do not alias the snapshot
	f.T[0][0] = 99
	f.Topography[0] = 99
	assert.Equal(t, 1., s.T.At(0, 0))
	assert.Equal(t, -1., s.Topography[0])
}

func readFrame(t *testing.T, conn *websocket.Conn) (f Frame) {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(msg, &f))
	return
}

func TestHub(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub()
	go h.Run(ctx)
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	c1, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer c1.Close()
	// Whether registration or the broadcast lands first, the client sees frame 1 once
	require.NoError(t, h.Publish(testSnapshot(1)))
	f := readFrame(t, c1)
	assert.Equal(t, 1, f.Iteration)
	assert.Equal(t, []float64{-1, 0, 1}, f.Topography)

	require.NoError(t, h.Publish(testSnapshot(2)))
	assert.Equal(t, 2, readFrame(t, c1).Iteration)

	// A late client starts from the latest frame
	c2, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer c2.Close()
	assert.Equal(t, 2, readFrame(t, c2).Iteration)

	require.NoError(t, h.Publish(testSnapshot(3)))
	assert.Equal(t, 3, readFrame(t, c1).Iteration)
	assert.Equal(t, 3, readFrame(t, c2).Iteration)

	// Stopping the hub closes the clients and refuses further frames
	cancel()
	require.NoError(t, c1.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = c1.ReadMessage()
	assert.Error(t, err)
	assert.ErrorIs(t, h.Publish(testSnapshot(4)), ErrHubClosed)
}

func TestHubOrigin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub()
	go h.Run(ctx)
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	// Pages from another site can't open the stream
	c, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Nil(t, c)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// A page served by the same host can
	c, _, err = websocket.DefaultDialer.Dial(url, http.Header{"Origin": {srv.URL}})
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, h.Publish(testSnapshot(1)))
	assert.Equal(t, 1, readFrame(t, c).Iteration)
}
