package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/replaycast/cli/render"
	"github.com/pithecene-io/replaycast/decoder"
	"github.com/pithecene-io/replaycast/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version         string `json:"version" yaml:"version"`
	Commit          string `json:"commit" yaml:"commit"`
	DecoderEmbedded bool   `json:"decoder_embedded" yaml:"decoder_embedded"`
	DecoderSHA256   string `json:"decoder_sha256,omitempty" yaml:"decoder_sha256,omitempty"`
}

// VersionCommand returns the version command.
// It must not start the decoder or touch the replay directory.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  []cli.Flag{FormatFlag, NoColorFlag, TUIFlag},
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}

		// TUI not supported for version command
		if c.Bool("tui") {
			return cli.Exit("--tui is not supported for version command", exitFailure)
		}

		resp := VersionResponse{
			Version:         types.Version,
			Commit:          commit,
			DecoderEmbedded: decoder.IsEmbedded(),
		}
		if resp.DecoderEmbedded {
			resp.DecoderSHA256 = decoder.EmbeddedChecksum()
		}
		return r.Render(resp)
	}
}
