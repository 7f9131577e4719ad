package central

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/vk/rnaflow/internal/ctxlog"
	sio "github.com/zishang520/socket.io/v2/socket"
)

// Server exposes a Ledger over socket.io.
type Server struct {
	ctx    context.Context
	ledger *Ledger
	io     *sio.Server
}

// NewServer creates a server backed by ledger. The context carries the logger.
func NewServer(ctx context.Context, ledger *Ledger) *Server {
	s := &Server{ctx: ctx, ledger: ledger, io: sio.NewServer(nil, nil)}
	s.io.On("connection", s.onConnection)
	return s
}

func (s *Server) onConnection(clients ...any) {
	logger := ctxlog.FromContext(s.ctx)
	client, ok := clients[0].(*sio.Socket)
	if !ok {
		logger.Error("Unexpected connection payload.", "type", fmt.Sprintf("%T", clients[0]))
		return
	}
	logger.Debug("Worker connected.", "sid", client.Id())

	// Every message repeats the worker id; the last one seen is released on
	// disconnect.
	var (
		mu     sync.Mutex
		worker string
	)

	client.On("claim", func(datas ...any) {
		msg := decodeMessage(datas)
		mu.Lock()
		worker = msg.Worker
		mu.Unlock()
		res := s.ledger.Claim(msg.Task, msg.Worker)
		logger.Debug("Claim.", "task", msg.Task, "worker", msg.Worker, "granted", res.Granted, "state", res.State)
		client.Emit("claim_result", map[string]any{
			"task":    msg.Task,
			"granted": res.Granted,
			"state":   string(res.State),
			"owner":   res.Owner,
		})
	})

	client.On("done", func(datas ...any) {
		msg := decodeMessage(datas)
		if s.ledger.Done(msg.Task, msg.Worker) {
			logger.Info("✅ Task done", "task", msg.Task, "worker", msg.Worker)
		}
	})

	client.On("failed", func(datas ...any) {
		msg := decodeMessage(datas)
		if s.ledger.Failed(msg.Task, msg.Worker, msg.Error) {
			logger.Warn("Task failed.", "task", msg.Task, "worker", msg.Worker, "error", msg.Error)
		}
	})

	client.On("disconnect", func(...any) {
		mu.Lock()
		w := worker
		mu.Unlock()
		if w == "" {
			return
		}
		if released := s.ledger.ReleaseWorker(w); len(released) > 0 {
			logger.Warn("Worker disconnected with running tasks.", "worker", w, "tasks", released)
		}
	})
}

// Handler returns the HTTP handler serving socket.io, /health and /tasks.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", s.io.ServeHandler(nil))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})
	mux.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.ledger.Snapshot())
	})
	return mux
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	logger := ctxlog.FromContext(s.ctx)
	httpServer := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🚀 Central scheduler listening", "address", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("central scheduler stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Info("🏁 Central scheduler shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.io.Close(nil)
	return httpServer.Shutdown(shutdownCtx)
}

type message struct {
	Task   string
	Worker string
	Error  string
}

func decodeMessage(datas []any) message {
	var msg message
	if len(datas) == 0 {
		return msg
	}
	m, ok := datas[0].(map[string]any)
	if !ok {
		return msg
	}
	msg.Task, _ = m["task"].(string)
	msg.Worker, _ = m["worker"].(string)
	msg.Error, _ = m["error"].(string)
	return msg
}
