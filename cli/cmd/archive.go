package cmd

import (
	"errors"
	"fmt"

	"github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ddmscope/archive"
	"github.com/pithecene-io/ddmscope/cli/render"
	"github.com/pithecene-io/ddmscope/types"
)

// ArchiveCommand returns the archive command with subcommands.
// Archive subcommands only read; they never write to the dataset.
func ArchiveCommand() *cli.Command {
	return &cli.Command{
		Name:  "archive",
		Usage: "Query archived decode sessions",
		Subcommands: []*cli.Command{
			archiveSummaryCommand(),
			archiveRecordsCommand(),
		},
	}
}

func archiveQueryFlags(extra ...cli.Flag) []cli.Flag {
	flags := append(ReadOnlyFlags(), ConfigFlag)
	flags = append(flags, storageFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:  "session-id",
			Usage: "Filter by session ID",
		},
		&cli.StringFlag{
			Name:  "source",
			Usage: "Filter by source",
		},
	)
	return append(flags, extra...)
}

func archiveSummaryCommand() *cli.Command {
	return &cli.Command{
		Name:   "summary",
		Usage:  "Show the latest session summary",
		Flags:  archiveQueryFlags(),
		Action: archiveSummaryAction,
	}
}

func archiveSummaryAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	ds, err := openQueryDataset(c)
	if err != nil {
		return err
	}

	summary, err := archive.QueryLatestSummary(c.Context, ds, c.String("session-id"), c.String("source"))
	if errors.Is(err, archive.ErrNoSummaryFound) {
		return cli.Exit("no matching session summary", 1)
	}
	if err != nil {
		return fmt.Errorf("query summary: %w", err)
	}

	r.Title("Session summary")
	return r.Render(summary)
}

func archiveRecordsCommand() *cli.Command {
	return &cli.Command{
		Name:  "records",
		Usage: "List archived decode records",
		Flags: archiveQueryFlags(
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Filter by record kind: packet, chunk, fail, summary",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum records to return (0 = all)",
				Value: 100,
			},
		),
		Action: archiveRecordsAction,
	}
}

func archiveRecordsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	kind := c.String("kind")
	switch types.RecordKind(kind) {
	case "", types.RecordKindPacket, types.RecordKindChunk, types.RecordKindFail, archive.RecordKindSummary:
	default:
		return invalidInput("invalid --kind: %q (must be packet, chunk, fail, or summary)", kind)
	}

	ds, err := openQueryDataset(c)
	if err != nil {
		return err
	}

	records, err := archive.QueryRecords(c.Context, ds, archive.Filter{
		SessionID:  c.String("session-id"),
		Source:     c.String("source"),
		RecordKind: kind,
	}, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}
	return r.Render(records)
}

func openQueryDataset(c *cli.Context) (lode.Dataset, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, invalidInput("%v", err)
	}
	storage, err := parseStorageChoice(c, cfg)
	if err != nil {
		return nil, invalidInput("invalid storage config: %v", err)
	}
	ds, err := openReadDataset(c.Context, storage)
	if err != nil {
		return nil, invalidInput("cannot open archive: %v", err)
	}
	return ds, nil
}
