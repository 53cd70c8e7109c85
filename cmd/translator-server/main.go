// Command translator-server decodes translation jobs for one language pair,
// dispatched to it by a balancer it registers with over WebSocket (C5/C6).
// Like host-agent/cmd/agent/main.go, it can run in the foreground, install
// itself as a host service, or be driven by the host service manager
// directly — translation servers are long-running daemons in the original
// system (SPEC_FULL.md §B).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/kardianos/service"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/config"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/decoder"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/messaging"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/modelio"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/rm"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/translatorserver"
)

const (
	serviceName        = "BpbdTranslatorServer"
	serviceDisplayName = "Distributed Translation Infrastructure - Translator Server"
	serviceDescription = "Decodes translation jobs dispatched by the balancer for one language pair"
)

// daemon implements kardianos/service.Interface.
type daemon struct {
	cfg    *config.ServerConfig
	cancel context.CancelFunc
}

func (d *daemon) Start(s service.Service) error {
	go d.run()
	return nil
}

func (d *daemon) Stop(s service.Service) error {
	slog.Info("service stop requested")
	if d.cancel != nil {
		d.cancel()
	}
	return nil
}

func (d *daemon) run() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	defer cancel()

	if err := runServer(ctx, d.cfg); err != nil {
		slog.Error("translator server exited with error", "error", err)
		os.Exit(1)
	}
}

func main() {
	var (
		configPath  = flag.String("config", "", "path to translator server config file")
		doInstall   = flag.Bool("install", false, "install as a host service")
		doUninstall = flag.Bool("uninstall", false, "uninstall the host service")
		doRun       = flag.Bool("run", false, "run in foreground")
	)
	flag.Parse()

	initLogger("info")

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		slog.Error("failed to load server config", "error", err)
		os.Exit(1)
	}
	initLogger(cfg.LogLevel)

	svcConfig := &service.Config{
		Name:        serviceName,
		DisplayName: serviceDisplayName,
		Description: serviceDescription,
	}

	d := &daemon{cfg: cfg}
	svc, err := service.New(d, svcConfig)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	switch {
	case *doInstall:
		if err := svc.Install(); err != nil {
			slog.Error("failed to install service", "error", err)
			os.Exit(1)
		}
		slog.Info("service installed", "name", serviceName)

	case *doUninstall:
		if err := svc.Stop(); err != nil {
			slog.Warn("failed to stop service (may not be running)", "error", err)
		}
		if err := svc.Uninstall(); err != nil {
			slog.Error("failed to uninstall service", "error", err)
			os.Exit(1)
		}
		slog.Info("service uninstalled", "name", serviceName)

	case *doRun, service.Interactive():
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		if err := runServer(ctx, cfg); err != nil {
			slog.Error("translator server exited with error", "error", err)
			os.Exit(1)
		}

	default:
		if err := svc.Run(); err != nil {
			slog.Error("service run failed", "error", err)
			os.Exit(1)
		}
	}
}

// runServer loads the models, builds the decoder and job server, registers
// with the balancer, and services trans_job_req messages until ctx is
// cancelled or the balancer connection drops.
func runServer(ctx context.Context, cfg *config.ServerConfig) error {
	tmModel, err := modelio.LoadTM(cfg.TMFile)
	if err != nil {
		return fmt.Errorf("loading translation model: %w", err)
	}
	lmModel, err := modelio.LoadLM(cfg.LMFile)
	if err != nil {
		return fmt.Errorf("loading language model: %w", err)
	}

	var rmModel decoder.ReorderingModel
	if cfg.RMFile != "" {
		loaded, err := modelio.LoadRM(cfg.RMFile)
		if err != nil {
			return fmt.Errorf("loading reordering model: %w", err)
		}
		rmModel = loaded
	} else {
		rmModel = rm.NewModel()
	}

	dec, err := decoder.New(lmModel, tmModel, rmModel, decoder.DefaultParams())
	if err != nil {
		return fmt.Errorf("constructing decoder: %w", err)
	}
	srv := translatorserver.NewServer(dec, cfg.WorkerPoolSize)

	tlsMode, err := messaging.ParseTLSMode(cfg.TLSMode)
	if err != nil {
		return fmt.Errorf("parsing tls mode: %w", err)
	}

	registerURL, err := buildRegisterURL(cfg.BalancerURL, cfg.SourceLang, cfg.TargetLang)
	if err != nil {
		return fmt.Errorf("building balancer registration url: %w", err)
	}

	var jobsInFlight atomic.Int64
	closed := make(chan struct{})

	conn, err := messaging.Connect(ctx, registerURL, tlsMode, messaging.Callbacks{
		OnMessage: func(c *messaging.Conn, raw []byte) {
			handleInboundMessage(ctx, c, srv, raw, &jobsInFlight)
		},
		OnClose: func(c *messaging.Conn) { close(closed) },
	})
	if err != nil {
		return fmt.Errorf("connecting to balancer: %w", err)
	}
	defer conn.Close()
	slog.Info("registered with balancer", "url", registerURL, "source_lang", cfg.SourceLang, "target_lang", cfg.TargetLang)

	select {
	case <-ctx.Done():
		return nil
	case <-closed:
		return fmt.Errorf("%w: balancer connection dropped", messaging.ErrUnreachable)
	}
}

// buildRegisterURL appends this server's language pair as query parameters
// onto the configured balancer registration URL.
func buildRegisterURL(balancerURL, sourceLang, targetLang string) (string, error) {
	u, err := url.Parse(balancerURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("source_lang", sourceLang)
	q.Set("target_lang", targetLang)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// handleInboundMessage dispatches one message from the balancer: a
// trans_job_req starts a new job, a session_cancel cascades Server's own
// cancellation to every job still running for that session (spec.md §4.6).
func handleInboundMessage(ctx context.Context, conn *messaging.Conn, srv *translatorserver.Server, raw []byte, jobsInFlight *atomic.Int64) {
	msgType, err := messaging.PeekMsgType(raw)
	if err != nil {
		slog.Warn("dropping malformed message from balancer", "error", err)
		return
	}

	switch msgType {
	case messaging.MsgTransJobReq:
		handleTransJobReq(ctx, conn, srv, raw, jobsInFlight)
	case messaging.MsgSessionCancel:
		var cancel messaging.SessionCancel
		if err := json.Unmarshal(raw, &cancel); err != nil {
			slog.Warn("malformed session_cancel", "error", err)
			return
		}
		slog.Info("canceling session's jobs", "session_id", cancel.SessionID)
		srv.CancelSession(cancel.SessionID)
	default:
		slog.Warn("unexpected message type from balancer", "msg_type", msgType)
	}
}

// handleTransJobReq decodes one job's sentences in the background and
// sends the trans_job_resp back to the balancer once every sentence
// finishes, preserving spec.md §4.6's "per-sentence errors don't abort the
// job" behavior.
func handleTransJobReq(ctx context.Context, conn *messaging.Conn, srv *translatorserver.Server, raw []byte, jobsInFlight *atomic.Int64) {
	var req messaging.TransJobReq
	if err := json.Unmarshal(raw, &req); err != nil {
		slog.Warn("malformed trans_job_req", "error", err)
		return
	}

	jobsInFlight.Add(1)
	go func() {
		defer jobsInFlight.Add(-1)

		job := translatorserver.NewJob(req.JobID, req.SessionID)
		results := srv.Translate(ctx, job, req.SourceSent)

		data := make([]messaging.SentenceStatus, len(results))
		for i, r := range results {
			status := messaging.SentenceStatus{TransText: r.Target, StatCode: messaging.StatusOK}
			if r.Err != nil {
				status.TransText = r.Source
				status.StatCode = messaging.StatusResultError
				status.StatMsg = r.Err.Error()
			}
			if req.IsTransInfo {
				status.StackLoad = r.StackLoad
			}
			data[i] = status
		}

		resp := messaging.NewTransJobResp(req.JobID, messaging.StatusOK, "", data)
		if err := conn.Send(resp); err != nil {
			slog.Warn("failed to send trans_job_resp to balancer", "job_id", req.JobID, "error", err)
		}
	}()
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
