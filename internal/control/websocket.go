// ABOUTME: WebSocket and HTTP control endpoints
// ABOUTME: Text messages carry control lines; /status serves a JSON snapshot
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeDeadline = 10 * time.Second

// WebConfig holds HTTP control server configuration
type WebConfig struct {
	Addr string // e.g. ":7071"
}

// WebServer serves /control (WebSocket) and /status (JSON).
type WebServer struct {
	config     WebConfig
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader

	httpServer *http.Server
	ln         net.Listener
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// NewWebServer creates the HTTP control server
func NewWebServer(config WebConfig, dispatcher *Dispatcher) *WebServer {
	ws := &WebServer{
		config:     config,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Operator consoles run on trusted local networks.
				origin := r.Header.Get("Origin")
				if origin != "" {
					log.Printf("Accepting control WebSocket from origin: %s", origin)
				}
				return true
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/control", ws.handleWebSocket)
	mux.HandleFunc("/status", ws.handleStatus)
	ws.httpServer = &http.Server{
		Addr:              config.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return ws
}

// Handler returns the HTTP handler, for embedding or tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.httpServer.Handler
}

// Start binds the address and serves in the background.
func (ws *WebServer) Start() error {
	ln, err := net.Listen("tcp", ws.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", ws.config.Addr, err)
	}
	ws.ln = ln
	log.Printf("Control WebSocket on ws://%s/control", ln.Addr())

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		if err := ws.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Control HTTP server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (ws *WebServer) Addr() net.Addr {
	if ws.ln == nil {
		return nil
	}
	return ws.ln.Addr()
}

// Stop shuts the server down gracefully.
func (ws *WebServer) Stop() {
	ws.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := ws.httpServer.Shutdown(ctx); err != nil {
			log.Printf("Control HTTP shutdown error: %v", err)
		}
		ws.wg.Wait()
	})
}

func (ws *WebServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(MaxLineBytes)

	s := ws.dispatcher.Open("websocket", r.RemoteAddr)
	defer ws.dispatcher.Close(s)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Control WebSocket error from %s: %v", s, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			log.Printf("Ignoring non-text control message from %s", s)
			continue
		}

		for _, line := range strings.Split(string(data), "\n") {
			reply, quit := ws.dispatcher.Handle(s, line)
			if reply != "" {
				conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
					log.Printf("Error writing control reply to %s: %v", s, err)
					return
				}
			}
			if quit {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
					time.Now().Add(writeDeadline))
				return
			}
		}
	}
}

// StatusResponse is the JSON body of GET /status.
type StatusResponse struct {
	Active        int      `json:"active"`
	ActiveName    string   `json:"active_name"`
	Previous      int      `json:"previous"`
	Transitioning bool     `json:"transitioning"`
	Progress      float64  `json:"progress"`
	Sources       []string `json:"sources"`
	Sessions      int      `json:"sessions"`
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := StatusResponse{
		Sources:  ws.dispatcher.sources.Names(),
		Sessions: ws.dispatcher.registry.Len(),
	}
	if ws.dispatcher.status != nil {
		st := ws.dispatcher.status.Status()
		resp.Active = st.Active
		resp.ActiveName = ws.dispatcher.sources.Name(st.Active)
		resp.Previous = st.Previous
		resp.Transitioning = st.Transitioning
		resp.Progress = st.Progress
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Error encoding status: %v", err)
	}
}
