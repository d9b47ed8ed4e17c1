package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notargets/goensight/partitions"
)

func (a *app) partitionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partition CASE",
		Short: "Report how the cells of a part split into partitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := a.readCase(args[0])
			if err != nil {
				return err
			}
			strategy, err := partitions.ParseStrategy(a.cfg.GetString("strategy"))
			if err != nil {
				return err
			}
			if obj.NumParts() == 0 {
				return fmt.Errorf("case %s has no parts", args[0])
			}
			partIndex := 0
			if name := a.cfg.GetString("part"); name != "" {
				partIndex = -1
				for i, p := range obj.Parts() {
					if p.Name == name {
						partIndex = i
					}
				}
				if partIndex < 0 {
					return fmt.Errorf("no part named %q", name)
				}
			}
			// A selected step is read as the only one
			const step = 0
			part := obj.Part(partIndex)
			for _, cl := range part.Cells(step) {
				pb, err := partitions.NewPartitionBuilder(obj, partIndex, step, cl.Type(),
					a.cfg.GetInt("size"), strategy)
				if err != nil {
					return err
				}
				layout, err := pb.BuildPartitions()
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s %s: %s\n", part.Name, cl.Type().Keyword(), pb.Statistics(layout))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.String("part", "", "part name, default the first part")
	f.Int("step", -1, "time step to partition (0 based), -1 uses the first")
	f.Int("size", 1024, "target cells per partition")
	f.String("strategy", "rcb", "block, roundrobin, rcb or morton")
	return cmd
}
