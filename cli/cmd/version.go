package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ddmscope/cli/render"
	"github.com/pithecene-io/ddmscope/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version       string `json:"version" yaml:"version"`
	Commit        string `json:"commit" yaml:"commit"`
	CaptureFormat int    `json:"capture_format" yaml:"capture_format"`
}

// VersionCommand returns the version command.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}

		return r.Render(VersionResponse{
			Version:       types.Version,
			Commit:        commit,
			CaptureFormat: types.CaptureFormatVersion,
		})
	}
}
