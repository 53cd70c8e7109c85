// Command balancer runs the balancer: it accepts client WebSocket
// connections on one port and translator-server WebSocket connections on
// another, and routes trans_job_req/trans_job_resp traffic between them
// (spec.md §4.8), grounded on apps/gateway/src/main.go's listen/shutdown
// shape and apps/gateway/src/tunnel.go's upgrade/route wiring.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/balancer"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/config"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/ids"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/messaging"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	configPath := flag.String("config", "", "path to balancer config file")
	flag.Parse()

	cfg, err := config.LoadBalancerConfig(*configPath)
	if err != nil {
		slog.Error("failed to load balancer config", "error", err)
		os.Exit(1)
	}
	initLogger(cfg.LogLevel)

	var dispatcher *balancer.Dispatcher
	adapters := balancer.NewAdapterRegistry(func(uid ids.ServerUID) {
		dispatcher.FailAdapter(uid)
	})
	sessions := session.New(func(id ids.SessionID) {
		dispatcher.CancelSession(id)
	})
	dispatcher = balancer.NewDispatcher(adapters, sessions)

	clientRouter := mux.NewRouter()
	clientRouter.HandleFunc("/translate", handleClient(sessions, dispatcher)).Methods(http.MethodGet)
	clientRouter.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)

	adapterRouter := mux.NewRouter()
	adapterRouter.HandleFunc("/register", handleAdapter(adapters, dispatcher)).Methods(http.MethodGet)
	adapterRouter.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)

	clientSrv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      clientRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	adapterSrv := &http.Server{
		Addr:         cfg.AdapterListenAddr,
		Handler:      adapterRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		slog.Info("client listener starting", "addr", cfg.ListenAddr)
		errCh <- serve(clientSrv, cfg.TLSCertFile, cfg.TLSKeyFile)
	}()
	go func() {
		slog.Info("adapter listener starting", "addr", cfg.AdapterListenAddr)
		errCh <- serve(adapterSrv, cfg.TLSCertFile, cfg.TLSKeyFile)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("listener error, shutting down", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = clientSrv.Shutdown(shutdownCtx)
	_ = adapterSrv.Shutdown(shutdownCtx)
	slog.Info("balancer shut down cleanly")
}

func serve(srv *http.Server, certFile, keyFile string) error {
	if certFile != "" {
		return srv.ListenAndServeTLS(certFile, keyFile)
	}
	return srv.ListenAndServe()
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleClient upgrades an incoming client connection, opens its session,
// and wires its message stream into the dispatcher.
func handleClient(sessions *session.Registry, dispatcher *balancer.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("client websocket upgrade failed", "error", err)
			return
		}

		messaging.Accept(ws, messaging.Callbacks{
			OnOpen: func(c *messaging.Conn) {
				sessionID := sessions.OpenSession(c)
				slog.Info("client session opened", "session_id", sessionID)
			},
			OnMessage: func(c *messaging.Conn, raw []byte) {
				sessionID, ok := sessions.SessionFor(c)
				if !ok {
					return
				}
				handleClientMessage(dispatcher, sessionID, c, raw)
			},
			OnClose: func(c *messaging.Conn) {
				sessionID, ok := sessions.SessionFor(c)
				sessions.CloseHandle(c)
				if ok {
					dispatcher.CancelSession(sessionID)
					slog.Info("client session closed", "session_id", sessionID)
				}
			},
		})
	}
}

func handleClientMessage(dispatcher *balancer.Dispatcher, sessionID ids.SessionID, conn *messaging.Conn, raw []byte) {
	msgType, err := messaging.PeekMsgType(raw)
	if err != nil {
		slog.Warn("dropping malformed client message", "session_id", sessionID, "error", err)
		return
	}

	switch msgType {
	case messaging.MsgSuppLangReq:
		resp := &messaging.SuppLangResp{
			ResponseEnvelope: messaging.ResponseEnvelope{
				Envelope: messaging.Envelope{ProtVer: messaging.ProtocolVersion, MsgType: messaging.MsgSuppLangResp},
				StatCode: messaging.StatusOK,
			},
			Langs: dispatcher.SupportedLanguages(),
		}
		_ = conn.Send(resp)

	case messaging.MsgTransJobReq:
		var req messaging.TransJobReq
		if err := json.Unmarshal(raw, &req); err != nil {
			slog.Warn("dropping malformed trans_job_req", "session_id", sessionID, "error", err)
			return
		}
		dispatcher.Submit(sessionID, &req)

	default:
		slog.Warn("client sent unexpected message type", "session_id", sessionID, "msg_type", msgType)
	}
}

// handleAdapter upgrades an incoming translator-server connection, adds it
// to the adapter registry for its advertised language pair, and feeds its
// trans_job_resp replies back into the dispatcher.
func handleAdapter(adapters *balancer.AdapterRegistry, dispatcher *balancer.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sourceLang := r.URL.Query().Get("source_lang")
		targetLang := r.URL.Query().Get("target_lang")
		if sourceLang == "" || targetLang == "" {
			http.Error(w, "source_lang and target_lang are required", http.StatusBadRequest)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("adapter websocket upgrade failed", "error", err)
			return
		}

		// adapter is built inside OnOpen, which newConn runs to completion
		// before starting the reader/sender goroutines, so by the time
		// OnMessage/OnClose can ever fire this closure is already populated.
		var adapter *balancer.ConnAdapter
		messaging.Accept(ws, messaging.Callbacks{
			OnOpen: func(c *messaging.Conn) {
				adapter = balancer.NewConnAdapter(c, sourceLang, targetLang)
				adapters.Add(adapter, sourceLang, targetLang)
				slog.Info("translator server registered", "uid", adapter.UID(), "source_lang", sourceLang, "target_lang", targetLang)
			},
			OnMessage: func(c *messaging.Conn, raw []byte) {
				msgType, err := messaging.PeekMsgType(raw)
				if err != nil || msgType != messaging.MsgTransJobResp {
					slog.Warn("dropping unexpected adapter message", "uid", adapter.UID())
					return
				}
				var resp messaging.TransJobResp
				if err := json.Unmarshal(raw, &resp); err != nil {
					slog.Warn("malformed trans_job_resp from adapter", "uid", adapter.UID(), "error", err)
					return
				}
				dispatcher.DeliverResponse(resp.JobID, &resp)
			},
			OnClose: func(c *messaging.Conn) {
				adapters.Remove(adapter.UID())
				slog.Info("translator server disconnected", "uid", adapter.UID())
			},
		})
	}
}

func initLogger(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
