package cmd

import (
	"io"

	"github.com/jaffee/commandeer"
	"github.com/lidarhd/lasprep/aws/s3"
	"github.com/spf13/cobra"
)

// FetchMain is wrapped by NewFetchCommand and only exported for testing
// purposes.
var FetchMain *s3.Main

// NewFetchCommand returns a new cobra command wrapping FetchMain.
func NewFetchCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	FetchMain = s3.NewMain()
	fetchCommand := &cobra.Command{
		Use:   "fetch",
		Short: "download tile archives and orthoimages from S3",
		Long: `Downloads <prefix>las/*.las.zip and <prefix>orthos/*.tif from an S3
bucket into <input-dir>/las and <input-dir>/orthos, skipping files already
present with the same size.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			return FetchMain.Run(ctx)
		},
	}
	flags := fetchCommand.Flags()
	err = commandeer.Flags(flags, FetchMain)
	if err != nil {
		panic(err)
	}
	return fetchCommand
}

func init() {
	subcommandFns["fetch"] = NewFetchCommand
}
