package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ddmscope/archive"
	"github.com/pithecene-io/ddmscope/cli/config"
	"github.com/pithecene-io/ddmscope/cli/render"
	"github.com/pithecene-io/ddmscope/log"
	"github.com/pithecene-io/ddmscope/metrics"
	"github.com/pithecene-io/ddmscope/policy"
	"github.com/pithecene-io/ddmscope/session"
	"github.com/pithecene-io/ddmscope/types"
)

// reportSidecar is the name of the report stored next to archived records.
const reportSidecar = "report.json"

// decodeInput is a byte stream to decode plus the identity it carries.
type decodeInput struct {
	reader io.Reader
	// sessionID and source are defaults; flags and config override.
	sessionID string
	source    string
	startedAt time.Time
	// bind, if set, is called with the session collector before decoding.
	bind func(*metrics.Collector)
}

// invalidInput reports a usage or configuration error.
func invalidInput(format string, args ...any) error {
	return cli.Exit(fmt.Sprintf(format, args...), session.ExitCodeInvalidInput)
}

// runDecode executes one decode session over in and maps its outcome to
// the process exit code.
func runDecode(c *cli.Context, cfg *config.Config, in decodeInput) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return invalidInput("%v", err)
	}

	sessionID := in.sessionID
	if c.IsSet("session-id") {
		sessionID = c.String("session-id")
	}
	source := in.source
	if s := resolveString(c, "source", configVal(cfg, func(c *config.Config) string { return c.Source })); s != "" {
		source = s
	}
	startedAt := in.startedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	meta := types.NewSessionMeta(sessionID, source, startedAt)

	level, err := log.ParseLevel(resolveString(c, "log-level", configVal(cfg, func(c *config.Config) string { return c.LogLevel })))
	if err != nil {
		return invalidInput("invalid log level: %v", err)
	}
	logger := log.NewLoggerWithWriter(meta, c.App.ErrWriter, level)
	defer func() { _ = logger.Sync() }()

	opts := session.Options{
		Handshake:    resolveBool(c, "handshake", configVal(cfg, func(c *config.Config) bool { return c.Decode.Handshake })),
		ExpandChunks: resolveBool(c, "chunks", configVal(cfg, func(c *config.Config) bool { return c.Decode.Chunks })),
		MaxPackets:   resolveInt64(c, "max-packets", configVal(cfg, func(c *config.Config) int64 { return c.Decode.MaxPackets })),
	}
	if opts.MaxPackets < 0 {
		return invalidInput("--max-packets must be >= 0, got %d", opts.MaxPackets)
	}

	storage, err := parseStorageChoice(c, cfg)
	if err != nil {
		return invalidInput("invalid storage config: %v", err)
	}
	choice := parsePolicyChoice(c, cfg, storage.enabled())
	if err := validatePolicyConfig(choice, storage.enabled(), logger); err != nil {
		return invalidInput("invalid policy config: %v", err)
	}
	adapterCfg, err := parseAdapterChoice(c, cfg)
	if err != nil {
		return invalidInput("invalid adapter config: %v", err)
	}

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	backend := ""
	if storage.enabled() {
		backend = storage.backend
	}
	collector := metrics.NewCollector(meta.Source, choice.name, backend, meta.SessionID)
	if in.bind != nil {
		in.bind(collector)
	}

	var (
		client *archive.LodeClient
		sink   policy.Sink
	)
	if storage.enabled() {
		client, err = openArchive(ctx, storage, archive.ConfigFor(storage.dataset, meta))
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to open archive: %v", err), session.ExitCodePolicyFailure)
		}
		sink = archive.NewInstrumentedSink(client, collector)
	}
	pol, err := buildPolicy(choice, sink, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create policy: %v", err), session.ExitCodePolicyFailure)
	}
	defer func() { _ = pol.Close() }()

	var renderErr error
	var observer session.Observer
	quiet := c.Bool("quiet")
	if !quiet {
		observer = r.RecordFunc(&renderErr)
	}

	result, err := session.Run(ctx, &session.Config{
		Meta:      meta,
		Input:     in.reader,
		Options:   opts,
		Policy:    pol,
		Logger:    logger,
		Collector: collector,
		Observer:  observer,
	})
	if err != nil {
		return invalidInput("%v", err)
	}

	// Post-session work runs even after cancellation.
	finishCtx := context.WithoutCancel(ctx)

	storagePath := ""
	if client != nil {
		storagePath = buildStoragePath(storage, client.Config())
		if err := client.WriteSummary(finishCtx, collector.Snapshot(), time.Now()); err != nil {
			logger.Warn("summary write failed", map[string]any{"error": err.Error()})
		}
	}

	if adapterCfg != nil {
		notify(finishCtx, adapterCfg, result, storagePath, collector, logger)
	}

	report := session.BuildReport(result, collector.Snapshot(), choice.name)
	report.StoragePath = storagePath
	if path := c.String("report"); path != "" {
		if err := session.WriteReport(report, path); err != nil {
			logger.Warn("report write failed", map[string]any{"path": path, "error": err.Error()})
		}
	}
	if client != nil {
		if err := storeReport(finishCtx, client, report); err != nil {
			logger.Warn("report sidecar write failed", map[string]any{"error": err.Error()})
		}
	}

	if renderErr != nil {
		return fmt.Errorf("render: %w", renderErr)
	}
	if !quiet {
		printSessionResult(c.App.ErrWriter, result, choice, storagePath)
	}

	if result.Outcome != session.OutcomeCompleted {
		return cli.Exit(result.Message, result.Outcome.ExitCode())
	}
	return cli.Exit("", result.Outcome.ExitCode())
}

func storeReport(ctx context.Context, client *archive.LodeClient, report *session.Report) error {
	data, err := session.MarshalReport(report)
	if err != nil {
		return err
	}
	return client.PutFile(ctx, reportSidecar, data)
}

func printSessionResult(w io.Writer, result *session.Result, choice policyChoice, storagePath string) {
	fmt.Fprintf(w, "\nsession_id=%s, outcome=%s, duration=%s\n",
		result.Meta.SessionID,
		result.Outcome,
		result.Duration.Round(time.Millisecond),
	)

	switch choice.name {
	case "buffered":
		fmt.Fprintf(w, "policy=%s, drops=%d, buffer_bytes=%d\n",
			choice.name,
			result.PolicyStats.RecordsDropped,
			result.PolicyStats.BufferSize,
		)
	case "streaming":
		fmt.Fprintf(w, "policy=%s, flushes=%d, triggers=%v\n",
			choice.name,
			result.PolicyStats.FlushCount,
			result.FlushTriggers,
		)
	default:
		fmt.Fprintf(w, "policy=%s\n", choice.name)
	}

	fmt.Fprintf(w, "packets=%d, chunks=%d, fail_chunks=%d, chunk_errors=%d\n",
		result.Counts.Packets,
		result.Counts.Chunks,
		result.Counts.FailChunks,
		result.Counts.ChunkErrors,
	)
	if storagePath != "" {
		fmt.Fprintf(w, "storage=%s\n", storagePath)
	}
}
