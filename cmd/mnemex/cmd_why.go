package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whyCmd = &cobra.Command{
	Use:   "why <trace_id>",
	Short: "Explain a trace's dispatch shape",
	Long: `Dumps a trace's exec-nodes in start order along with the
predecessor edge feeding each one — the "Glass Box" view into a single
ingest_blob or chat call's tool dispatch chain.`,
	Args: cobra.ExactArgs(1),
	RunE: runWhy,
}

func runWhy(cmd *cobra.Command, args []string) error {
	traceID := args[0]

	a, err := buildApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	trace, err := a.store.GetTrace(traceID)
	if err != nil {
		return fmt.Errorf("load trace: %w", err)
	}
	if trace == nil {
		fmt.Printf("No trace found for %s\n", traceID)
		return nil
	}

	fmt.Printf("trace %s: status=%s started=%s\n", trace.TraceID, trace.Status, trace.StartedAt.Format("2006-01-02T15:04:05Z07:00"))
	if len(trace.Metadata) > 0 {
		fmt.Printf("metadata: %v\n", trace.Metadata)
	}
	fmt.Println()

	nodes, err := a.store.ExecNodesForTrace(traceID)
	if err != nil {
		return fmt.Errorf("load exec nodes: %w", err)
	}
	if len(nodes) == 0 {
		fmt.Println("No tool dispatches recorded for this trace.")
		return nil
	}

	for i, n := range nodes {
		arrow := "  "
		if n.Predecessor != "" {
			arrow = fmt.Sprintf("<- %s", n.Predecessor)
		}
		fmt.Printf("%d. %-16s state=%-8s started=%s finished=%s %s\n", i+1, n.ToolName, n.State, n.StartedAt, n.FinishedAt, arrow)
	}
	return nil
}
