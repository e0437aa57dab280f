package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kestrelvm/kestrel/internal/types"
	"github.com/kestrelvm/kestrel/pkg/core"
	"github.com/kestrelvm/kestrel/pkg/runlog"
)

var reportCmd = &cobra.Command{
	Use:   "report [image id]",
	Short: "Inspect recorded runs of a program image.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := types.ImageIDFromBase58(args[0])
		if err != nil {
			log.Fatalf("image id: %v", err)
		}

		store, err := runlog.Open(runlog.Config{
			Path:     getString(cmd, "db"),
			ReadOnly: true,
		})
		if err != nil {
			log.Fatalf("open run log: %v", err)
		}
		defer store.Close()

		if cmd.Flags().Changed("seq") {
			showReport(cmd, store, id, getUint64(cmd, "seq"))
			return
		}

		reports, err := store.List(id)
		if err != nil {
			log.Fatalf("list runs: %v", err)
		}
		if len(reports) == 0 {
			cmd.Printf("no recorded runs for %s\n", id)
			return
		}
		for _, r := range reports {
			cmd.Printf("seq %-4d %s  ticks=%-8d X0=%-12d modified=%-5v events=%d\n",
				r.Seq, r.When.Format("2006-01-02 15:04:05"),
				r.TicksConsumed, r.Regs[0], r.CodeModified, len(r.Events))
		}
	},
}

func init() {
	reportCmd.Flags().Uint64("seq", 0, "Show one run in full by sequence number")
}

func showReport(cmd *cobra.Command, store *runlog.Store, id types.ImageID, seq uint64) {
	r, err := store.Get(id, seq)
	if err != nil {
		log.Fatalf("get run: %v", err)
	}

	cmd.Printf("image %s, run %d, recorded %s\n", r.ImageID, r.Seq, r.When.Format("2006-01-02 15:04:05"))
	for i := 0; i < core.NumRegs; i++ {
		if r.Regs[i] != 0 {
			cmd.Printf("X%-2d = 0x%016x (%d)\n", i, r.Regs[i], r.Regs[i])
		}
	}
	cmd.Printf("PC  = 0x%x\n", r.PC)
	cmd.Printf("ticks consumed = %d, remaining = %d\n", r.TicksConsumed, r.TicksRemaining)
	cmd.Printf("code modified  = %v\n", r.CodeModified)
	for _, ev := range r.Events {
		cmd.Printf("event: %s\n", ev)
	}
}
