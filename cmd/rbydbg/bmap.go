package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/flashdbg/rbydkit/bmap"
)

var bmapCommand = &cli.Command{
	Name:      "bmap",
	Usage:     "Map which blocks the filesystem occupies",
	ArgsUsage: "<image> [mroot]",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "in-use",
			Usage: "report committed byte ranges instead of whole blocks",
		},
	},
	Action: func(cliCtx *cli.Context) error {
		d, fs, err := openFS(cliCtx)
		if err != nil {
			return err
		}

		m := bmap.Build(d, fs, bmap.WithInUse(cliCtx.Bool("in-use")))

		tw := tabwriter.NewWriter(os.Stdout, 1, 8, 1, ' ', 0)
		fmt.Fprintln(tw, "BLOCK\tKIND\tUSED\tFPRINT")
		for _, u := range m.Blocks() {
			fmt.Fprintf(tw, "0x%x\t%s\t%s\t%016x\n",
				u.Block, u.Kind, usedColumn(u, d.BlockSize()), u.Fingerprint)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if m.Corrupt() && cliCtx.Bool("error-on-corrupt") {
			return errCorrupt()
		}
		return nil
	},
}

func usedColumn(u bmap.Usage, blockSize uint32) string {
	if u.Ranges == nil {
		return fmt.Sprintf("0..%d", blockSize)
	}

	parts := make([]string, 0, len(u.Ranges))
	for _, r := range u.Ranges {
		parts = append(parts, fmt.Sprintf("%d..%d", r.Off, r.Off+r.Len))
	}

	return strings.Join(parts, ",")
}
