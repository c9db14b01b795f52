package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/flashdbg/rbydkit/btree"
	"github.com/flashdbg/rbydkit/disk"
	"github.com/flashdbg/rbydkit/rbyd"
)

var btreeCommand = &cli.Command{
	Name:      "btree",
	Usage:     "Walk a btree rooted at an rbyd",
	ArgsUsage: "<image> <addr>",
	Action: func(cliCtx *cli.Context) error {
		d, err := openDisk(cliCtx)
		if err != nil {
			return err
		}

		arg := cliCtx.Args().Get(1)
		if arg == "" {
			return fmt.Errorf("btree root address required")
		}
		addr, err := disk.ParseAddr(arg)
		if err != nil {
			return err
		}

		var fetchOpts []rbyd.Option
		if addr.Trunk != 0 {
			fetchOpts = append(fetchOpts, rbyd.WithTrunk(addr.Trunk))
		}
		root, err := rbyd.FetchSet(d, addr.Blocks, fetchOpts...)
		if err != nil {
			return err
		}

		var walkOpts []btree.WalkerOption
		if depth := cliCtx.Int("depth"); depth > 0 {
			walkOpts = append(walkOpts, btree.WithDepthLimit(depth))
		}
		w := btree.NewWalker(d, root, walkOpts...)

		corrupt := !root.Readable()
		tw := tabwriter.NewWriter(os.Stdout, 1, 8, 1, ' ', 0)
		fmt.Fprintln(tw, "BID\tWEIGHT\tBLOCK\tTAG\tSTATE")
		for leaf := range w.All() {
			state := "ok"
			if leaf.Corrupt {
				state = "corrupt"
				corrupt = true
			}
			fmt.Fprintf(tw, "%s%d\t%d\t0x%x\t%s\t%s\n",
				strings.Repeat("  ", len(leaf.Path)),
				leaf.Bid, leaf.Weight, leaf.Node.Block, tagNames(leaf.Tags), state)
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

// tagNames joins a bucket's tag names.
func tagNames(tags []rbyd.Entry) string {
	names := make([]string, 0, len(tags))
	for _, ent := range tags {
		names = append(names, ent.Tag.String())
	}

	return strings.Join(names, ",")
}

var mtreeCommand = &cli.Command{
	Name:      "mtree",
	Usage:     "Dump the mroot chain and every mdir",
	ArgsUsage: "<image> [mroot]",
	Action: func(cliCtx *cli.Context) error {
		_, fs, err := openFS(cliCtx)
		if err != nil {
			return err
		}

		for i, mroot := range fs.MRoots() {
			fmt.Printf("mroot[%d] 0x%x: rev %d, trunk 0x%x, weight %d\n",
				i, mroot.Block, mroot.Rev, mroot.Trunk, mroot.Weight)
		}

		corrupt := fs.Corrupt()
		for mdir := range fs.Mdirs() {
			if mdir.Corrupt {
				fmt.Printf("mdir mid %d: corrupt\n", mdir.Base)
				corrupt = true
				continue
			}
			addr := disk.Addr{Blocks: append([]uint32{mdir.Rbyd.Block}, mdir.Rbyd.Redund...)}
			fmt.Printf("mdir mid %d: %s, rev %d, weight %d\n",
				mdir.Base, addr, mdir.Rbyd.Rev, mdir.Weight())
		}

		if corrupt && cliCtx.Bool("error-on-corrupt") {
			return errCorrupt()
		}
		return nil
	},
}
