package cmd

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ddmscope/iox"
)

// PacketsCommand returns the packets command.
// It decodes a raw JDWP byte stream, as captured from one direction of a
// debugger connection.
func PacketsCommand() *cli.Command {
	return &cli.Command{
		Name:      "packets",
		Usage:     "Decode a raw JDWP byte stream",
		ArgsUsage: "<file|->",
		Flags:     decodeFlags(),
		Action:    packetsAction,
	}
}

func packetsAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return invalidInput("packets requires exactly one input file (- for stdin)")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return invalidInput("%v", err)
	}

	path := c.Args().First()
	in := decodeInput{source: path}
	if path == "-" {
		in.reader = os.Stdin
		in.source = "stdin"
	} else {
		f, err := os.Open(path)
		if err != nil {
			return invalidInput("cannot open input: %v", err)
		}
		defer iox.DiscardClose(f)
		in.reader = f
	}

	return runDecode(c, cfg, in)
}
