package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/flashdbg/rbydkit/disk"
	"github.com/flashdbg/rbydkit/rbyd"
)

var rbydCommand = &cli.Command{
	Name:      "rbyd",
	Usage:     "Dump one rbyd block log",
	ArgsUsage: "<image> <addr>",
	Action: func(cliCtx *cli.Context) error {
		d, err := openDisk(cliCtx)
		if err != nil {
			return err
		}

		arg := cliCtx.Args().Get(1)
		if arg == "" {
			return fmt.Errorf("rbyd address required, e.g. 0x2 or 0x{2,3}.100")
		}
		addr, err := disk.ParseAddr(arg)
		if err != nil {
			return err
		}

		var opts []rbyd.Option
		if addr.Trunk != 0 {
			opts = append(opts, rbyd.WithTrunk(addr.Trunk))
		}
		r, err := rbyd.FetchSet(d, addr.Blocks, opts...)
		if err != nil {
			return err
		}
		if !r.Readable() {
			fmt.Printf("rbyd %s: unreadable\n", addr)
			if cliCtx.Bool("error-on-corrupt") {
				return errCorrupt()
			}
			return nil
		}

		fmt.Printf("rbyd 0x%x: rev %d, trunk 0x%x, weight %d, eoff 0x%x, cksum %08x\n",
			r.Block, r.Rev, r.Trunk, r.Weight, r.Eoff, r.Cksum)
		for _, block := range r.Redund {
			fmt.Printf("redund 0x%x\n", block)
		}

		tw := tabwriter.NewWriter(os.Stdout, 1, 8, 1, ' ', 0)
		fmt.Fprintln(tw, "RID\tTAG\tWEIGHT\tSIZE\tDATA")
		for ent := range r.All() {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n",
				ent.Rid, ent.Tag, ent.Weight, len(ent.Data), hexPreview(ent.Data))
		}

		return tw.Flush()
	},
}

// hexPreview renders up to 16 payload bytes.
func hexPreview(data []byte) string {
	if len(data) > 16 {
		return hex.EncodeToString(data[:16]) + ".."
	}

	return hex.EncodeToString(data)
}
