package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue depth, trace counts, and graph size",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("mnemex status")
	fmt.Println("=============")
	fmt.Printf("data dir: %s\n\n", opts.DataDir)

	jobCounts, err := a.store.JobCounts()
	if err != nil {
		return fmt.Errorf("job counts: %w", err)
	}
	fmt.Println("queue:")
	for _, status := range []string{"queued", "done", "error"} {
		fmt.Printf("  %-8s %d\n", status, jobCounts[status])
	}

	traceCounts, err := a.store.TraceCounts()
	if err != nil {
		return fmt.Errorf("trace counts: %w", err)
	}
	fmt.Println("\ntraces:")
	for _, status := range []string{"running", "done", "error", "rejected"} {
		fmt.Printf("  %-8s %d\n", status, traceCounts[status])
	}

	nodes, edges, err := a.store.GraphCounts()
	if err != nil {
		return fmt.Errorf("graph counts: %w", err)
	}
	cards, err := a.store.MemoryCardCount()
	if err != nil {
		return fmt.Errorf("memory card count: %w", err)
	}
	fmt.Printf("\nmemory cards: %d\ngraph nodes:  %d\ngraph edges:  %d\n", cards, nodes, edges)

	return nil
}
