package cmd

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ddmscope/ddms"
	"github.com/pithecene-io/ddmscope/iox"
	"github.com/pithecene-io/ddmscope/jdwp"
)

// EncodeCommand returns the encode command.
// It writes a single DDMS packet carrying one chunk, e.g. to replay
// against a VM or to build decoder fixtures.
func EncodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "Encode a DDMS packet carrying one chunk",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "type",
				Aliases:  []string{"t"},
				Usage:    "Chunk type tag (4 characters, e.g. HELO)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "payload",
				Usage: "Chunk payload as hex",
			},
			&cli.IntFlag{
				Name:  "id",
				Usage: "Packet ID",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "reply",
				Usage: "Encode a reply instead of a DDMS command",
			},
			&cli.IntFlag{
				Name:  "fail-code",
				Usage: "FAIL chunk error code (with --type FAIL)",
			},
			&cli.StringFlag{
				Name:  "fail-message",
				Usage: "FAIL chunk message (with --type FAIL)",
			},
			&cli.BoolFlag{
				Name:  "handshake",
				Usage: "Prefix the output with the JDWP-Handshake",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file (default: stdout)",
			},
		},
		Action: encodeAction,
	}
}

func encodeAction(c *cli.Context) error {
	chunk, err := buildChunk(c.String("type"), c.String("payload"), c.IsSet("fail-code") || c.IsSet("fail-message"), c.Int("fail-code"), c.String("fail-message"))
	if err != nil {
		return invalidInput("%v", err)
	}
	defer iox.DiscardErr(chunk.Shutdown)

	id := c.Int("id")
	if int(int32(id)) != id {
		return invalidInput("--id %d out of range", id)
	}

	var pkt *jdwp.Packet
	if c.Bool("reply") {
		pkt, err = ddms.NewDDMSReply(c.Context, int32(id), chunk)
	} else {
		pkt, err = ddms.NewDDMSPacket(c.Context, int32(id), chunk)
	}
	if err != nil {
		return invalidInput("encode packet: %v", err)
	}
	defer iox.DiscardClose(pkt)

	out := c.App.Writer
	if path := c.String("output"); path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("cannot create output: %w", err)
		}
		defer iox.DiscardClose(f)
		out = f
	}

	bw := bufio.NewWriter(out)
	if err := writeEncoded(c, bw, pkt); err != nil {
		return err
	}
	return bw.Flush()
}

func writeEncoded(c *cli.Context, w io.Writer, pkt *jdwp.Packet) error {
	if c.Bool("handshake") {
		if err := jdwp.WriteHandshake(w); err != nil {
			return fmt.Errorf("write handshake: %w", err)
		}
	}
	if err := jdwp.WritePacket(c.Context, w, pkt); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	return nil
}

// buildChunk builds a chunk of tag from a hex payload, or a FAIL chunk from
// code and message when fail is set.
func buildChunk(tag, payloadHex string, fail bool, code int, message string) (*ddms.Chunk, error) {
	t, err := ddms.ParseChunkType(tag)
	if err != nil {
		return nil, err
	}
	if fail {
		if t != ddms.FAIL {
			return nil, fmt.Errorf("--fail-code and --fail-message require --type FAIL, got %s", t)
		}
		if payloadHex != "" {
			return nil, fmt.Errorf("--payload cannot be combined with --fail-code or --fail-message")
		}
		if int(int32(code)) != code {
			return nil, fmt.Errorf("--fail-code %d out of range", code)
		}
		return ddms.NewFailChunk(int32(code), message)
	}

	data, err := hex.DecodeString(strings.Join(strings.Fields(payloadHex), ""))
	if err != nil {
		return nil, fmt.Errorf("invalid --payload hex: %w", err)
	}
	return ddms.NewBytesChunk(t, data)
}
