// Package main provides the ddmscope CLI entrypoint.
//
// Usage:
//
//	ddmscope <command> [subcommand] [options]
//
// Exit codes for the decoding commands (packets, capture decode):
//   - 0: stream decoded to the end
//   - 1: malformed or truncated stream
//   - 2: archive policy or sink failure
//   - 3: invalid arguments or configuration
//   - 130: interrupted
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ddmscope/cli/cmd"
	"github.com/pithecene-io/ddmscope/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "ddmscope",
		Usage:          "Decode JDWP and DDMS traffic from Android debugging sessions",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.PacketsCommand(),
			cmd.CaptureCommand(),
			cmd.EncodeCommand(),
			cmd.ChunkTypesCommand(),
			cmd.ArchiveCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		os.Exit(1)
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	code, msg := exitStatus(err)
	if msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(code)
}

// exitStatus returns the exit code for err and the message to print,
// empty when there is nothing worth printing.
func exitStatus(err error) (int, string) {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		// cli.Exit("", N).Error() returns "exit status N"
		if msg == fmt.Sprintf("exit status %d", code) {
			msg = ""
		}
		return code, msg
	}
	return 1, fmt.Sprintf("Error: %v", err)
}
