package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ddmscope/cli/render"
	"github.com/pithecene-io/ddmscope/ddms"
)

// ChunkTypeInfo is one row of the chunk type registry.
type ChunkTypeInfo struct {
	Tag   string `json:"tag" yaml:"tag"`
	Value string `json:"value" yaml:"value"`
}

// ChunkTypesCommand returns the chunktypes command.
func ChunkTypesCommand() *cli.Command {
	return &cli.Command{
		Name:   "chunktypes",
		Usage:  "List the registered DDMS chunk types",
		Flags:  ReadOnlyFlags(),
		Action: chunkTypesAction,
	}
}

func chunkTypesAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	r.Title("DDMS chunk types")
	return r.Render(chunkTypeInfos())
}

func chunkTypeInfos() []ChunkTypeInfo {
	known := ddms.KnownChunkTypes()
	infos := make([]ChunkTypeInfo, 0, len(known))
	for _, t := range known {
		infos = append(infos, ChunkTypeInfo{
			Tag:   t.String(),
			Value: fmt.Sprintf("0x%08X", uint32(t)),
		})
	}
	return infos
}
