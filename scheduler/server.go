package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ovheul/heatplan/planner"
)

// WebServer provides HTTP endpoints for health checking and the plan
// dashboard, plus a websocket pushing fresh plans to connected clients.
type WebServer struct {
	scheduler *HeatScheduler
	server    *http.Server
	port      int
	startTime time.Time
	upgrader  websocket.Upgrader
	clients   sync.Map
	broadcast chan []byte
	done      chan struct{}
}

// StatusResponse represents the health check response
type StatusResponse struct {
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
	Scheduler SchedulerStatus `json:"scheduler"`
	System    SystemHealth    `json:"system"`
}

// SystemHealth represents system-level health information
type SystemHealth struct {
	Uptime     string `json:"uptime"`
	Goroutines int    `json:"goroutines,omitempty"`
}

// PlanResponse wraps the latest planner output for the API
type PlanResponse struct {
	PlannedAt string          `json:"planned_at"`
	Plan      *planner.Output `json:"plan"`
}

// NewWebServer creates a new web server; a non-positive port disables it.
func NewWebServer(scheduler *HeatScheduler, port int) *WebServer {
	if port <= 0 {
		return nil
	}

	mux := http.NewServeMux()
	ws := &WebServer{
		scheduler: scheduler,
		port:      port,
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local dashboard only
			},
		},
		broadcast: make(chan []byte, 16),
		done:      make(chan struct{}),
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	mux.HandleFunc("/api/health", ws.healthHandler)
	mux.HandleFunc("/api/ready", ws.readinessHandler)
	mux.HandleFunc("/api/plan", ws.planHandler)
	mux.HandleFunc("/api/override", ws.overrideHandler)
	mux.HandleFunc("/api/ws", ws.wsHandler)

	fs := http.FileServer(http.Dir("./web/dist"))
	mux.Handle("/", fs)

	return ws
}

// Start starts the web server
func (ws *WebServer) Start() error {
	if ws == nil {
		return nil
	}

	go ws.broadcastLoop()
	go func() {
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.scheduler.logger.Printf("Web server error: %v", err)
		}
	}()
	return nil
}

// Stop shuts the web server down
func (ws *WebServer) Stop(ctx context.Context) error {
	if ws == nil {
		return nil
	}
	close(ws.done)
	return ws.server.Shutdown(ctx)
}

// BroadcastPlan pushes a fresh plan to all websocket clients.
func (ws *WebServer) BroadcastPlan(out *planner.Output) {
	if ws == nil {
		return
	}
	payload, err := json.Marshal(PlanResponse{
		PlannedAt: time.Now().Format(time.RFC3339),
		Plan:      out,
	})
	if err != nil {
		return
	}
	select {
	case ws.broadcast <- payload:
	default:
		// Drop when the channel is full; the next plan supersedes it.
	}
}

func (ws *WebServer) broadcastLoop() {
	for {
		select {
		case <-ws.done:
			return
		case payload := <-ws.broadcast:
			ws.clients.Range(func(key, _ any) bool {
				conn := key.(*websocket.Conn)
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					conn.Close()
					ws.clients.Delete(conn)
				}
				return true
			})
		}
	}
}

func (ws *WebServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
		Scheduler: ws.scheduler.GetStatus(),
		System: SystemHealth{
			Uptime:     time.Since(ws.startTime).Round(time.Second).String(),
			Goroutines: runtime.NumGoroutine(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (ws *WebServer) readinessHandler(w http.ResponseWriter, r *http.Request) {
	status := ws.scheduler.GetStatus()
	if !status.IsRunning {
		http.Error(w, "scheduler not running", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ready")
}

func (ws *WebServer) planHandler(w http.ResponseWriter, r *http.Request) {
	plan, at := ws.scheduler.GetLatestPlan()
	if plan == nil {
		http.Error(w, "no plan available yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PlanResponse{
		PlannedAt: at.Format(time.RFC3339),
		Plan:      plan,
	})
}

// overrideHandler installs or clears the operator's manual offset:
// POST {"offset": 2} sets it, POST {"offset": null} clears it.
func (ws *WebServer) overrideHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Offset *int `json:"offset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	config := ws.scheduler.GetConfig()
	if req.Offset != nil && (*req.Offset < config.OffsetMin || *req.Offset > config.OffsetMax) {
		http.Error(w, "offset out of range", http.StatusBadRequest)
		return
	}
	ws.scheduler.SetManualOffset(req.Offset)
	w.WriteHeader(http.StatusNoContent)
}

func (ws *WebServer) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ws.clients.Store(conn, struct{}{})

	// Push the current plan immediately so a fresh client is not empty
	// until the next cycle.
	if plan, at := ws.scheduler.GetLatestPlan(); plan != nil {
		if payload, err := json.Marshal(PlanResponse{PlannedAt: at.Format(time.RFC3339), Plan: plan}); err == nil {
			conn.WriteMessage(websocket.TextMessage, payload)
		}
	}

	go func() {
		defer func() {
			ws.clients.Delete(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
