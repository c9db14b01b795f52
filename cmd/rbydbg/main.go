// rbydbg inspects disk images holding checksummed, log-structured
// metadata blocks: raw block logs, btrees built from them, and the
// filesystem metadata tree on top.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/flashdbg/rbydkit/disk"
	"github.com/flashdbg/rbydkit/internal/logx"
	"github.com/flashdbg/rbydkit/mtree"
)

var log zerolog.Logger

func main() {
	app := &cli.App{
		Name:  "rbydbg",
		Usage: "Inspect rbyd-based disk images",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  "block-size",
				Usage: "block size in bytes",
				Value: 4096,
			},
			&cli.UintFlag{
				Name:  "block-count",
				Usage: "block count, inferred from the image size when 0",
			},
			&cli.IntFlag{
				Name:  "depth",
				Usage: "tree descent depth limit",
			},
			&cli.BoolFlag{
				Name:  "error-on-corrupt",
				Usage: "exit with status 2 when any corruption is seen",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Before: func(cliCtx *cli.Context) error {
			log = logx.NewLogger(os.Stderr)
			if !cliCtx.Bool("verbose") {
				log = log.Level(zerolog.WarnLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			rbydCommand,
			btreeCommand,
			mtreeCommand,
			lsCommand,
			gstateCommand,
			bmapCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		if exitErr, ok := err.(cli.ExitCoder); ok {
			fmt.Fprintf(os.Stderr, "rbydbg: %s\n", err)
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "rbydbg: %s\n", err)
		os.Exit(1)
	}
}

// errCorrupt is the exit used when --error-on-corrupt is set and the
// walk saw corruption. Status 2 is reserved for it; usage and I/O
// errors exit 1.
func errCorrupt() error {
	return cli.Exit("corruption detected", 2)
}

// openDisk opens the image named by the first argument.
func openDisk(cliCtx *cli.Context) (*disk.Disk, error) {
	path := cliCtx.Args().First()
	if path == "" {
		return nil, fmt.Errorf("image path required")
	}

	opts := []disk.Option{disk.WithBlockSize(uint32(cliCtx.Uint("block-size")))}
	if count := cliCtx.Uint("block-count"); count > 0 {
		opts = append(opts, disk.WithBlockCount(uint32(count)))
	}

	return disk.Open(path, opts...)
}

// openFS opens the image and resolves the filesystem from the mroot
// address given as the second argument, or the default anchor.
func openFS(cliCtx *cli.Context) (*disk.Disk, *mtree.FS, error) {
	d, err := openDisk(cliCtx)
	if err != nil {
		return nil, nil, err
	}

	var opts []mtree.Option
	if arg := cliCtx.Args().Get(1); arg != "" {
		addr, err := disk.ParseAddr(arg)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, mtree.WithAnchor(addr))
	}
	if depth := cliCtx.Int("depth"); depth > 0 {
		opts = append(opts, mtree.WithDepthLimit(depth))
	}

	fs, err := mtree.Open(d, opts...)
	if err != nil {
		return nil, nil, err
	}
	if fs.Corrupt() {
		log.Warn().Msg("filesystem resolved with corruption")
	}

	return d, fs, nil
}
