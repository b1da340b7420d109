package cmd

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ddmscope/capture"
	"github.com/pithecene-io/ddmscope/cli/config"
	"github.com/pithecene-io/ddmscope/cli/render"
	"github.com/pithecene-io/ddmscope/iox"
	"github.com/pithecene-io/ddmscope/metrics"
	"github.com/pithecene-io/ddmscope/types"
)

// CaptureCommand returns the capture command with subcommands.
func CaptureCommand() *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Record and decode JDWP traffic captures",
		Subcommands: []*cli.Command{
			captureDecodeCommand(),
			captureRecordCommand(),
		},
	}
}

func directionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "direction",
		Usage: "Connection direction: to_vm or from_vm",
		Value: string(capture.FromVM),
	}
}

func captureDecodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Decode one direction of a capture file",
		ArgsUsage: "<capture>",
		Flags:     append(decodeFlags(), directionFlag()),
		Action:    captureDecodeAction,
	}
}

func captureDecodeAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return invalidInput("capture decode requires exactly one capture file")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return invalidInput("%v", err)
	}
	dir, err := capture.ParseDirection(resolveString(c, "direction", configVal(cfg, func(c *config.Config) string { return c.Capture.Direction })))
	if err != nil {
		return invalidInput("%v", err)
	}

	f, err := os.Open(c.Args().First())
	if err != nil {
		return invalidInput("cannot open capture: %v", err)
	}
	defer iox.DiscardClose(f)

	reader, err := capture.Open(bufio.NewReader(f))
	if err != nil {
		return invalidInput("invalid capture: %v", err)
	}
	h := reader.Header()

	return runDecode(c, cfg, decodeInput{
		reader:    reader.Stream(dir),
		sessionID: h.SessionID,
		source:    h.Source,
		startedAt: time.Unix(0, h.StartedAt),
		bind: func(collector *metrics.Collector) {
			reader.OnFrame = func(*capture.DataFrame) { collector.IncCaptureFrames() }
		},
	})
}

func captureRecordCommand() *cli.Command {
	return &cli.Command{
		Name:      "record",
		Usage:     "Wrap a raw byte stream into a capture file",
		ArgsUsage: "<raw|-> <capture>",
		Flags: append(ReadOnlyFlags(),
			directionFlag(),
			&cli.StringFlag{
				Name:  "source",
				Usage: "Source identifier stored in the header (default: input path)",
			},
			&cli.StringFlag{
				Name:  "session-id",
				Usage: "Session ID stored in the header (default: generated)",
			},
		),
		Action: captureRecordAction,
	}
}

// RecordResponse describes a written capture.
type RecordResponse struct {
	SessionID string `json:"session_id" yaml:"session_id"`
	Source    string `json:"source" yaml:"source"`
	Direction string `json:"direction" yaml:"direction"`
	Frames    int64  `json:"frames" yaml:"frames"`
	DataBytes int64  `json:"data_bytes" yaml:"data_bytes"`
	FileBytes int64  `json:"file_bytes" yaml:"file_bytes"`
	Output    string `json:"output" yaml:"output"`
}

func captureRecordAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return invalidInput("capture record requires an input and an output path")
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return invalidInput("%v", err)
	}
	dir, err := capture.ParseDirection(c.String("direction"))
	if err != nil {
		return invalidInput("%v", err)
	}

	inPath, outPath := c.Args().Get(0), c.Args().Get(1)
	source := inPath
	src := os.Stdin
	if inPath == "-" {
		source = "stdin"
	} else {
		src, err = os.Open(inPath)
		if err != nil {
			return invalidInput("cannot open input: %v", err)
		}
		defer iox.DiscardClose(src)
	}
	if c.IsSet("source") {
		source = c.String("source")
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("cannot create capture: %w", err)
	}
	defer iox.DiscardClose(out)

	meta := types.NewSessionMeta(c.String("session-id"), source, time.Now())
	bw := bufio.NewWriter(out)
	counted := &iox.CountingWriter{W: bw}
	w, err := capture.NewWriter(counted, meta)
	if err != nil {
		return fmt.Errorf("write capture header: %w", err)
	}
	if _, err := w.ReadFrom(src, dir, time.Now); err != nil {
		return fmt.Errorf("record capture: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush capture: %w", err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("sync capture: %w", err)
	}

	return r.Render(RecordResponse{
		SessionID: meta.SessionID,
		Source:    meta.Source,
		Direction: string(dir),
		Frames:    w.Frames(),
		DataBytes: w.Bytes(),
		FileBytes: counted.N,
		Output:    outPath,
	})
}
