package control

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"

	"go.klb.dev/pulse/internal/clip"
	"go.klb.dev/pulse/internal/events"
)

// maxUploadBody bounds POST /v1/upload. Base64 inflates by a third.
const maxUploadBody = 64 << 20

const wsWriteTimeout = 10 * time.Second

type errorBody struct {
	Error string `json:"error"`
}

// NewMux returns the REST + websocket handler:
//
//	POST /v1/trigger       start an upload run
//	POST /v1/upload        body: base64 or data URL; returns the outcome
//	GET  /v1/stats         one metrics sample
//	GET  /v1/clipboard     preview of the clipboard image
//	GET  /v1/config/path   path of the per-user config file
//	GET  /v1/events        websocket stream of UI events
func (s *Service) NewMux() (*gwruntime.ServeMux, error) {
	mux := gwruntime.NewServeMux()
	routes := []struct {
		method, path string
		h            gwruntime.HandlerFunc
	}{
		{http.MethodPost, "/v1/trigger", s.handleTrigger},
		{http.MethodPost, "/v1/upload", s.handleUpload},
		{http.MethodGet, "/v1/stats", s.handleStats},
		{http.MethodGet, "/v1/clipboard", s.handleClipboard},
		{http.MethodGet, "/v1/config/path", s.handleConfigPath},
		{http.MethodGet, "/v1/events", s.handleEvents},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.path, s.requireToken(r.h)); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

func (s *Service) handleTrigger(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	if err := s.trigger(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "no upload pipeline attached"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"started": true})
}

func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBody))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: err.Error()})
		return
	}
	data := string(body)
	// Accept {"data": "..."} as well as a bare string body.
	var wrapped struct {
		Data string `json:"data"`
	}
	if json.Unmarshal(body, &wrapped) == nil && wrapped.Data != "" {
		data = wrapped.Data
	}
	writeJSON(w, http.StatusOK, s.upload(r.Context(), data))
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	st, err := s.d.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Service) handleClipboard(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, clip.PreviewOf(s.d.Clipboard))
}

func (s *Service) handleConfigPath(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string]string{"path": s.d.ConfigPath})
}

var upgrader = websocket.Upgrader{
	// The control plane is local; the UI webview has no stable origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	p := events.NewChanPeer(32)
	s.d.Hub.Register(p)
	defer s.d.Hub.Unregister(p)

	// The UI never sends anything; reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev := <-p.C():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				slog.Debug("websocket write failed", "peer", p.ID(), "err", err)
				return
			}
		}
	}
}

// requireToken enforces the bearer token on REST calls. Browsers cannot set
// headers on websocket requests, so ?token= is accepted too.
func (s *Service) requireToken(h gwruntime.HandlerFunc) gwruntime.HandlerFunc {
	if s.d.Token == "" {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		header := r.Header.Get("Authorization")
		if header == "" {
			header = r.URL.Query().Get("token")
		}
		if !tokenMatches(header, s.d.Token) {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token"})
			return
		}
		h(w, r, params)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "err", err)
	}
}
