package control

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/pulse/internal/clip"
	"go.klb.dev/pulse/internal/codec"
	"go.klb.dev/pulse/internal/events"
	"go.klb.dev/pulse/internal/metrics"
	"go.klb.dev/pulse/internal/trigger"
	"go.klb.dev/pulse/internal/upload"
)

type fakeUploader struct{ last atomic.Value }

func (f *fakeUploader) UploadBase64(_ context.Context, s string) (upload.Outcome, error) {
	f.last.Store(s)
	if s == "bad" {
		return upload.Outcome{}, &upload.Error{Kind: upload.KindDecode, Err: errors.New("illegal base64 data")}
	}
	return upload.Outcome{Success: true, URL: "http://h/x.png", Filename: "image.png", Size: "3 B"}, nil
}

type emptySource struct{}

func (emptySource) Name() string                         { return "empty" }
func (emptySource) ReadImage() (codec.RawImage, error)   { return codec.RawImage{}, clip.ErrEmpty }
func (emptySource) ReadEncoded() ([]byte, string, error) { return nil, "", clip.ErrEmpty }

type harness struct {
	addr     string
	bus      *events.Bus
	hub      *events.Hub
	uploader *fakeUploader
	triggers chan trigger.Event
}

func start(t *testing.T, token string, attach bool) *harness {
	t.Helper()
	h := &harness{
		bus:      events.NewBus(),
		hub:      events.NewHub(events.StatusBar),
		uploader: &fakeUploader{},
		triggers: make(chan trigger.Event, 4),
	}
	require.NoError(t, h.hub.Attach(h.bus))
	if attach {
		require.NoError(t, h.bus.SubscribeTrigger(func(ev trigger.Event) { h.triggers <- ev }))
	}
	svc := NewService(Deps{
		Bus:      h.bus,
		Hub:      h.hub,
		Uploader: h.uploader,
		Stats: func(context.Context) (metrics.Stats, error) {
			return metrics.Stats{CPUUsage: 12.5, MemoryUsed: 1 << 30, MemoryTotal: 1 << 34, DiskUsagePercent: 40}, nil
		},
		Clipboard:  emptySource{},
		ConfigPath: "/home/u/.config/pulse/config.toml",
		Token:      token,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	h.addr = ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("control plane did not stop")
		}
	})
	return h
}

func (h *harness) client(t *testing.T, token string) *Client {
	t.Helper()
	c, err := Dial(h.addr, token)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func (h *harness) do(t *testing.T, method, path, body, token string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, "http://"+h.addr+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestGRPCTrigger(t *testing.T) {
	h := start(t, "", true)
	c := h.client(t, "")

	require.NoError(t, c.Trigger(context.Background()))
	select {
	case ev := <-h.triggers:
		assert.Equal(t, TriggerName, ev.Name)
		assert.Equal(t, trigger.Pressed, ev.State)
	case <-time.After(time.Second):
		t.Fatal("trigger not published")
	}
}

func TestGRPCTriggerWithoutPipeline(t *testing.T) {
	h := start(t, "", false)
	err := h.client(t, "").Trigger(context.Background())
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestGRPCCalls(t *testing.T) {
	h := start(t, "", true)
	c := h.client(t, "")
	ctx := context.Background()

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12.5, st.CPUUsage)
	assert.Equal(t, uint64(1<<34), st.MemoryTotal)

	out, err := c.Upload(ctx, "aGk=")
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "http://h/x.png", out.URL)

	out, err = c.Upload(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "Failed to decode image: illegal base64 data", out.Error)

	pv, err := c.Clipboard(ctx)
	require.NoError(t, err)
	assert.False(t, pv.HasImage)
	assert.Equal(t, "No image in clipboard", pv.Error)
}

func TestGRPCAuth(t *testing.T) {
	h := start(t, "s3cret", true)
	_, err := h.client(t, "").Stats(context.Background())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = h.client(t, "wrong").Stats(context.Background())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = h.client(t, "s3cret").Stats(context.Background())
	assert.NoError(t, err)
}

func TestGRPCEvents(t *testing.T) {
	h := start(t, "", true)
	c := h.client(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan events.Event, 4)
	go func() { _ = c.Events(ctx, func(ev events.Event) { got <- ev }) }()

	require.Eventually(t, func() bool { return h.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	h.bus.PublishUI(events.New(events.UploadResult, upload.Outcome{Success: true, URL: "http://h/y.png"}))

	select {
	case ev := <-got:
		assert.Equal(t, events.UploadResult, ev.Name)
		payload, ok := ev.Payload.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "http://h/y.png", payload["url"])
	case <-time.After(2 * time.Second):
		t.Fatal("event not streamed")
	}
}

func TestREST(t *testing.T) {
	h := start(t, "", true)

	code, body := h.do(t, http.MethodPost, "/v1/trigger", "", "")
	assert.Equal(t, http.StatusAccepted, code)
	assert.JSONEq(t, `{"started":true}`, body)

	code, body = h.do(t, http.MethodGet, "/v1/stats", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"cpu_usage":12.5`)

	code, body = h.do(t, http.MethodPost, "/v1/upload", "data:image/png;base64,aGk=", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"success":true,"url":"http://h/x.png","filename":"image.png","size":"3 B"}`, body)
	assert.Equal(t, "data:image/png;base64,aGk=", h.uploader.last.Load())

	code, _ = h.do(t, http.MethodPost, "/v1/upload", `{"data":"aGk="}`, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "aGk=", h.uploader.last.Load())

	code, body = h.do(t, http.MethodGet, "/v1/clipboard", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"has_image":false,"error":"No image in clipboard"}`, body)

	code, body = h.do(t, http.MethodGet, "/v1/config/path", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"path":"/home/u/.config/pulse/config.toml"}`, body)

	code, _ = h.do(t, http.MethodGet, "/v1/nope", "", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRESTAuth(t *testing.T) {
	h := start(t, "s3cret", true)

	code, _ := h.do(t, http.MethodGet, "/v1/stats", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = h.do(t, http.MethodGet, "/v1/stats", "", "s3cret")
	assert.Equal(t, http.StatusOK, code)

	code, _ = h.do(t, http.MethodGet, "/v1/stats?token=s3cret", "", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestWebsocketEvents(t *testing.T) {
	h := start(t, "", true)
	h.bus.PublishUI(events.New(events.StatusBar, map[string]string{"text": "5%,  0 B,  0 B"}))

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+h.addr+"/v1/events", nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ev map[string]any
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, events.StatusBar, ev["event"], "retained status replayed on connect")

	h.bus.PublishUI(events.New(events.SwitchToUpload, nil))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, events.SwitchToUpload, ev["event"])
	assert.NotContains(t, ev, "payload")
}
