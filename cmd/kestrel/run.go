package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kestrelvm/kestrel/internal/types"
	"github.com/kestrelvm/kestrel/pkg/core"
	"github.com/kestrelvm/kestrel/pkg/guest"
	"github.com/kestrelvm/kestrel/pkg/image"
	"github.com/kestrelvm/kestrel/pkg/runlog"
)

var runCmd = &cobra.Command{
	Use:   "run [image file]",
	Short: "Run a program image in a fresh guest environment.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		img, err := image.Load(args[0])
		if err != nil {
			log.Fatalf("load image: %v", err)
		}

		opts := guest.Options{
			CodeBase:   img.Base,
			Code:       img.Words,
			TickBudget: getUint64(cmd, "ticks"),
		}
		if getBool(cmd, "exclusive-compare") {
			opts.Exclusive = guest.ExclusiveCompare
		}
		if getBool(cmd, "strict-events") {
			opts.Events = guest.EventsStrict
		}

		env, err := guest.NewEnv(opts)
		if err != nil {
			log.Fatalf("environment: %v", err)
		}

		pc := getUint64(cmd, "pc")
		if !cmd.Flags().Changed("pc") {
			pc = img.Base
		}

		id := img.ID()
		log.WithFields(log.Fields{
			"image": id,
			"words": len(img.Words),
			"base":  fmt.Sprintf("0x%x", img.Base),
			"ticks": opts.TickBudget,
		}).Info("starting run")

		c := core.New(env)
		c.SetPC(pc)
		c.Run()

		consumed := opts.TickBudget - env.RemainingTicks()
		printOutcome(cmd, c, env, consumed)

		if err := env.Err(); err != nil {
			log.Warnf("strict events: %v", err)
		}

		if getBool(cmd, "record") {
			recordRun(cmd, c, env, id, consumed)
		}
	},
}

func init() {
	runCmd.Flags().Uint64("ticks", 100, "Initial tick budget")
	runCmd.Flags().Uint64("pc", 0, "Start program counter (default: image base)")
	runCmd.Flags().Bool("exclusive-compare", false, "Fail exclusive writes on value mismatch")
	runCmd.Flags().Bool("strict-events", false, "Latch an error on the first out-of-band event")
	runCmd.Flags().Bool("record", false, "Record the outcome in the run log database")
}

func printOutcome(cmd *cobra.Command, c *core.Core, env *guest.Env, consumed uint64) {
	for i := 0; i < core.NumRegs; i++ {
		if v := c.Reg(i); v != 0 {
			cmd.Printf("X%-2d = 0x%016x (%d)\n", i, v, v)
		}
	}
	cmd.Printf("PC  = 0x%x\n", c.PC())
	cmd.Printf("ticks consumed = %d, remaining = %d\n", consumed, env.RemainingTicks())
	cmd.Printf("code modified  = %v\n", env.CodeModified())
	for _, ev := range env.Events() {
		cmd.Printf("event: %s\n", ev)
	}
}

func recordRun(cmd *cobra.Command, c *core.Core, env *guest.Env, id types.ImageID, consumed uint64) {
	store, err := runlog.Open(runlog.DefaultConfig(getString(cmd, "db")))
	if err != nil {
		log.Fatalf("open run log: %v", err)
	}
	defer store.Close()

	report := &runlog.Report{
		ImageID:        id,
		PC:             c.PC(),
		TicksConsumed:  consumed,
		TicksRemaining: env.RemainingTicks(),
		CodeModified:   env.CodeModified(),
		Events:         env.Events(),
	}
	for i := 0; i < core.NumRegs; i++ {
		report.Regs[i] = c.Reg(i)
	}

	seq, err := store.Put(report)
	if err != nil {
		log.Fatalf("record run: %v", err)
	}
	log.WithFields(log.Fields{"image": report.ImageID, "seq": seq}).Info("run recorded")
}
