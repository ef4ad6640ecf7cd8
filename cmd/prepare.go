package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jaffee/commandeer"
	"github.com/lidarhd/lasprep/prepare"
	"github.com/spf13/cobra"
)

// PrepareMain is wrapped by NewPrepareCommand and only exported for testing
// purposes.
var PrepareMain *prepare.Main

// NewPrepareCommand returns a new cobra command wrapping PrepareMain.
func NewPrepareCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	PrepareMain = prepare.NewMain()
	prepareCommand := &cobra.Command{
		Use:   "prepare",
		Short: "colorize, split and assign LIDAR tiles to train, val and test",
		Long: `Matches every tile archive in <input-dir>/las with its orthoimage in
<input-dir>/orthos, assigns tiles to train, val and test, then extracts
and colorizes each tile into <colorized-dir> with PDAL. With --split,
colorized tiles are also cut into <splitted-dir>/<split>/<id>/ sub-tiles.
The assignment is written to <colorized-dir>/dataset_split.csv.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			return PrepareMain.Run(ctx)
		},
	}
	flags := prepareCommand.Flags()
	err = commandeer.Flags(flags, PrepareMain)
	if err != nil {
		panic(err)
	}
	return prepareCommand
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, so a
// running pdal process is killed rather than orphaned.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func init() {
	subcommandFns["prepare"] = NewPrepareCommand
}
