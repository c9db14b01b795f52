package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/flashdbg/rbydkit/format"
	"github.com/flashdbg/rbydkit/mtree"
)

var lsCommand = &cli.Command{
	Name:      "ls",
	Usage:     "List a directory's entries",
	ArgsUsage: "<image> [mroot]",
	Flags: []cli.Flag{
		&cli.UintFlag{
			Name:  "did",
			Usage: "directory id to list",
		},
	},
	Action: func(cliCtx *cli.Context) error {
		_, fs, err := openFS(cliCtx)
		if err != nil {
			return err
		}

		did := uint32(cliCtx.Uint("did"))

		corrupt := fs.Corrupt()

		tw := tabwriter.NewWriter(os.Stdout, 1, 8, 1, ' ', 0)
		fmt.Fprintln(tw, "MID\tTYPE\tNAME")
		for ent := range fs.Dir(did) {
			if ent.Corrupt {
				corrupt = true
				log.Warn().Uint32("did", did).Msg("listing truncated by corrupt mdir")
				break
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\n", ent.Mid, ent.Tag, ent.Name)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if corrupt && cliCtx.Bool("error-on-corrupt") {
			return errCorrupt()
		}
		return nil
	},
}

var gstateCommand = &cli.Command{
	Name:      "gstate",
	Usage:     "Dump the XOR-folded global state",
	ArgsUsage: "<image> [mroot]",
	Action: func(cliCtx *cli.Context) error {
		_, fs, err := openFS(cliCtx)
		if err != nil {
			return err
		}

		g := fs.GState()
		for _, tag := range g.Tags() {
			fmt.Printf("%s: %s\n", tag, hex.EncodeToString(g.States[tag]))
			for _, delta := range g.Deltas[tag] {
				fmt.Printf("  delta 0x%x: %s\n", delta.Block, hex.EncodeToString(delta.Data))
			}
			if tag != format.TagGRMDelta {
				continue
			}
			grm, err := mtree.DecodeGRM(g.States[tag])
			if err != nil {
				log.Warn().Err(err).Msg("grm state does not decode")
				continue
			}
			for _, rm := range grm.Mids {
				fmt.Printf("  pending rm: mid %d rid %d\n", rm.Mid, rm.Rid)
			}
		}

		if (fs.Corrupt() || g.Corrupt()) && cliCtx.Bool("error-on-corrupt") {
			return errCorrupt()
		}
		return nil
	},
}
