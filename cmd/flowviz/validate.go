package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
)

func validateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <descriptor>",
		Short: "Check a graph descriptor and report every defect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := flowgraph.LoadDescriptorFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			g, err := flowgraph.Build(desc)
			if err != nil {
				var defects flowgraph.ConstructionErrors
				if errors.As(err, &defects) {
					for _, d := range defects {
						fmt.Fprintf(out, "  %-16s %s\n", flowgraph.Reason(d), d.Error())
					}
					return fmt.Errorf("%s: %d defects", args[0], len(defects))
				}
				return err
			}

			fmt.Fprintf(out, "%s: ok, %d nodes, %d links\n", args[0], len(g.Nodes), len(g.Links))
			if desc.InitialFocusNodeID != "" {
				if _, ok := g.Node(desc.InitialFocusNodeID); !ok {
					fmt.Fprintf(out, "  warning: initial focus %q is not a node and will be ignored\n", desc.InitialFocusNodeID)
				}
			}
			return nil
		},
	}
}
