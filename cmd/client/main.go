// Command client is the CLI translation client (external collaborator,
// spec.md §9): it reads sentences from a file, batches them into
// trans_job_req requests, and writes the balancer's translations to an
// output file. Exit code 0 on success, 1 on argument or runtime failure,
// per spec.md §9's documented CLI contract.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/config"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/ids"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/messaging"
)

// profile is an optional named run configuration: a collaborator who
// repeats the same batch of flags for a given language pair can save them
// to a YAML file with -save-profile and replay them with -profile instead
// of retyping every flag, mirroring gateway/src/config.go's direct
// yaml.Unmarshal-of-a-file-it-reads-itself approach (no viper involved,
// since this is a one-off run profile rather than service configuration).
type profile struct {
	BalancerURL  string `yaml:"balancer_url"`
	SourceLang   string `yaml:"source_lang"`
	TargetLang   string `yaml:"target_lang"`
	TLSMode      string `yaml:"tls_mode"`
	MinSentences int    `yaml:"min_sentences"`
	MaxSentences int    `yaml:"max_sentences"`
	Priority     int    `yaml:"priority"`
	TransInfo    bool   `yaml:"trans_info"`
}

func loadProfile(path string) (*profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile file: %w", err)
	}
	var p profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile file: %w", err)
	}
	return &p, nil
}

func saveProfile(path string, p *profile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile file: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath    = flag.String("config", "", "path to client config file")
		profilePath   = flag.String("profile", "", "path to a saved YAML run profile")
		saveProfileTo = flag.String("save-profile", "", "save this run's settings as a YAML profile and exit")
		inputPath     = flag.String("input", "", "path to the input file, one sentence per line")
		outputPath    = flag.String("output", "", "path to write translated sentences to")
		balancerURL   = flag.String("balancer-url", "", "override the configured balancer URL")
		sourceLang    = flag.String("source-lang", "", "override the configured source language")
		targetLang    = flag.String("target-lang", "", "override the configured target language")
		tlsMode       = flag.String("tls-mode", "", "override the configured tls mode")
		minSentences  = flag.Int("min-sentences", 1, "minimum sentences batched per request")
		maxSentences  = flag.Int("max-sentences", 50, "maximum sentences batched per request")
		priority      = flag.Int("priority", 0, "request priority")
		transInfo     = flag.Bool("trans-info", false, "ask for per-sentence stack load diagnostics")
		debug         = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	initLogger(*debug)

	if *saveProfileTo != "" {
		p := &profile{
			BalancerURL: *balancerURL, SourceLang: *sourceLang, TargetLang: *targetLang, TLSMode: *tlsMode,
			MinSentences: *minSentences, MaxSentences: *maxSentences, Priority: *priority, TransInfo: *transInfo,
		}
		if err := saveProfile(*saveProfileTo, p); err != nil {
			slog.Error("failed to save profile", "error", err)
			return 1
		}
		slog.Info("profile saved", "path", *saveProfileTo)
		return 0
	}

	if *profilePath != "" {
		p, err := loadProfile(*profilePath)
		if err != nil {
			slog.Error("failed to load profile", "error", err)
			return 1
		}
		applyProfileDefaults(p, balancerURL, sourceLang, targetLang, tlsMode, minSentences, maxSentences, priority, transInfo)
	}

	if *inputPath == "" || *outputPath == "" {
		slog.Error("both -input and -output are required")
		return 1
	}
	if *minSentences <= 0 || *maxSentences < *minSentences {
		slog.Error("invalid -min-sentences/-max-sentences", "min", *minSentences, "max", *maxSentences)
		return 1
	}

	cfg, err := config.LoadClientConfig(*configPath)
	if err != nil {
		slog.Error("failed to load client config", "error", err)
		return 1
	}
	applyOverrides(cfg, *balancerURL, *sourceLang, *targetLang, *tlsMode, *transInfo)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid client configuration", "error", err)
		return 1
	}

	mode, err := messaging.ParseTLSMode(cfg.TLSMode)
	if err != nil {
		slog.Error("invalid tls mode", "error", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := newTranslationClient(ctx, cfg.BalancerURL, mode)
	if err != nil {
		slog.Error("failed to connect to balancer", "error", err)
		return 1
	}
	defer client.Close()

	sentences, err := readSentences(*inputPath)
	if err != nil {
		slog.Error("failed to read input file", "error", err)
		return 1
	}

	out, err := os.Create(*outputPath)
	if err != nil {
		slog.Error("failed to create output file", "error", err)
		return 1
	}
	defer out.Close()
	writer := bufio.NewWriter(out)
	defer writer.Flush()

	// minSentences only bounds a production client's eagerness to flush a
	// partial batch while more input might still arrive; since the whole
	// file is read up front here, only maxSentences shapes the batching.
	hadError := false
	for _, batch := range chunk(sentences, *maxSentences) {
		resp, err := client.Translate(ctx, cfg.SourceLang, cfg.TargetLang, *priority, cfg.IsTransInfo, batch)
		if err != nil {
			slog.Error("translation request failed", "error", err)
			return 1
		}
		for _, s := range resp.TargetData {
			if s.StatCode != messaging.StatusOK {
				hadError = true
				slog.Warn("sentence translation failed", "stat_msg", s.StatMsg)
			}
			fmt.Fprintln(writer, s.TransText)
		}
	}

	if hadError {
		return 1
	}
	return 0
}

// translationClient correlates outstanding trans_job_req requests with
// their trans_job_resp replies by client job id, so Translate can present
// the asynchronous messaging.Conn as a simple blocking call.
type translationClient struct {
	conn   *messaging.Conn
	jobIDs *ids.Manager

	mu      sync.Mutex
	pending map[ids.JobID]chan *messaging.TransJobResp
}

func newTranslationClient(ctx context.Context, uri string, mode messaging.TLSMode) (*translationClient, error) {
	c := &translationClient{
		jobIDs:  ids.NewManager(),
		pending: make(map[ids.JobID]chan *messaging.TransJobResp),
	}
	conn, err := messaging.Connect(ctx, uri, mode, messaging.Callbacks{
		OnMessage: c.handleMessage,
	})
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *translationClient) handleMessage(_ *messaging.Conn, raw []byte) {
	msgType, err := messaging.PeekMsgType(raw)
	if err != nil || msgType != messaging.MsgTransJobResp {
		return
	}
	var resp messaging.TransJobResp
	if err := json.Unmarshal(raw, &resp); err != nil {
		slog.Warn("malformed trans_job_resp from balancer", "error", err)
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[resp.JobID]
	if ok {
		delete(c.pending, resp.JobID)
	}
	c.mu.Unlock()

	if ok {
		ch <- &resp
	}
}

// Translate sends one trans_job_req and blocks until its matching response
// arrives or ctx is cancelled.
func (c *translationClient) Translate(ctx context.Context, sourceLang, targetLang string, priority int, transInfo bool, sentences []string) (*messaging.TransJobResp, error) {
	jobID := c.jobIDs.NextJobID()
	req := messaging.NewTransJobReq(jobID, sourceLang, targetLang, transInfo, priority, sentences)

	ch := make(chan *messaging.TransJobResp, 1)
	c.mu.Lock()
	c.pending[jobID] = ch
	c.mu.Unlock()

	if err := c.conn.Send(req); err != nil {
		c.mu.Lock()
		delete(c.pending, jobID)
		c.mu.Unlock()
		return nil, fmt.Errorf("sending trans_job_req: %w", err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, jobID)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (c *translationClient) Close() error {
	return c.conn.Close()
}

func readSentences(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func chunk(sentences []string, size int) [][]string {
	if size <= 0 {
		size = len(sentences)
	}
	var batches [][]string
	for i := 0; i < len(sentences); i += size {
		end := i + size
		if end > len(sentences) {
			end = len(sentences)
		}
		batches = append(batches, sentences[i:end])
	}
	return batches
}

// applyProfileDefaults fills in any flag still at its default value (empty
// strings, -min-sentences 1, -max-sentences 50, -priority 0, -trans-info
// false) from the loaded profile. A flag given on the command line with a
// value other than its default wins over the profile.
func applyProfileDefaults(p *profile, balancerURL, sourceLang, targetLang, tlsMode *string, minSentences, maxSentences, priority *int, transInfo *bool) {
	if *balancerURL == "" {
		*balancerURL = p.BalancerURL
	}
	if *sourceLang == "" {
		*sourceLang = p.SourceLang
	}
	if *targetLang == "" {
		*targetLang = p.TargetLang
	}
	if *tlsMode == "" {
		*tlsMode = p.TLSMode
	}
	if *minSentences == 1 && p.MinSentences != 0 {
		*minSentences = p.MinSentences
	}
	if *maxSentences == 50 && p.MaxSentences != 0 {
		*maxSentences = p.MaxSentences
	}
	if *priority == 0 && p.Priority != 0 {
		*priority = p.Priority
	}
	if !*transInfo && p.TransInfo {
		*transInfo = p.TransInfo
	}
}

func applyOverrides(cfg *config.ClientConfig, balancerURL, sourceLang, targetLang, tlsMode string, transInfo bool) {
	if balancerURL != "" {
		cfg.BalancerURL = balancerURL
	}
	if sourceLang != "" {
		cfg.SourceLang = sourceLang
	}
	if targetLang != "" {
		cfg.TargetLang = targetLang
	}
	if tlsMode != "" {
		cfg.TLSMode = tlsMode
	}
	if transInfo {
		cfg.IsTransInfo = true
	}
}

func initLogger(debug bool) {
	lvl := slog.LevelInfo
	if debug {
		lvl = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
