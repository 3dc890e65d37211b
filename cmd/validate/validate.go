// Package validate implements the topology validation command.
package validate

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tphakala/mixcore/internal/conf"
	"github.com/tphakala/mixcore/internal/errors"
	"github.com/tphakala/mixcore/internal/graph"
)

// Command creates the validate command: load a topology file, build the
// graph under every builder policy, and report what was built.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [topology.yaml]",
		Short: "Validate a mix graph topology file",
		Long: "Load a topology file, construct the graph it describes, and reject it " +
			"if any edge violates the connection policies (cycles, pin limits, format " +
			"mismatches, meta-node edge rules).",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := settings.Graph.Topology
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.Newf("no topology file given and graph.topology is not configured").
					Component("cmd").
					Category(errors.CategoryValidation).
					Build()
			}
			return run(cmd.OutOrStdout(), path)
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

// setupFlags configures flags specific to the validate command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVar(&settings.Graph.Topology, "topology", viper.GetString("graph.topology"), "Topology file to validate when no argument is given")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}
}

func run(w io.Writer, path string) error {
	topo, err := graph.LoadTopology(path)
	if err != nil {
		return err
	}

	builder, err := topo.Build(nil)
	if err != nil {
		return err
	}

	printReport(w, path, builder)
	return nil
}

// printReport lists the built nodes and the producer-to-consumer routes.
func printReport(w io.Writer, path string, b *graph.Builder) {
	nodes := b.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name() < nodes[j].Name() })

	fmt.Fprintf(w, "%s: %d nodes\n", path, len(nodes))

	var producers, consumers []graph.Node
	for _, n := range nodes {
		line := fmt.Sprintf("  %-12s %s", n.Type(), n.Name())
		if key := n.FormatKey(); key != "" {
			line += "  format=" + key
		}
		if n.IsMeta() {
			line += fmt.Sprintf("  children=%d in / %d out", len(n.ChildInputs()), len(n.ChildOutputs()))
		}
		fmt.Fprintln(w, line)

		switch n.Type() {
		case graph.TypeProducer:
			producers = append(producers, n)
		case graph.TypeConsumer:
			consumers = append(consumers, n)
		}
	}

	if len(producers) == 0 || len(consumers) == 0 {
		fmt.Fprintln(w, "ok")
		return
	}

	fmt.Fprintln(w, "routes:")
	for _, p := range producers {
		for _, c := range consumers {
			state := "unreachable"
			if b.ExistsPathCached(p, c) {
				state = "reachable"
			}
			fmt.Fprintf(w, "  %s -> %s: %s\n", p.Name(), c.Name(), state)
		}
	}
	fmt.Fprintln(w, "ok")
}
