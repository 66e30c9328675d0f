package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Property graph maintenance",
}

var graphCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Merge duplicate entity nodes sharing a canonical string",
	RunE:  runGraphCompact,
}

func init() {
	graphCmd.AddCommand(graphCompactCmd)
}

func runGraphCompact(cmd *cobra.Command, args []string) error {
	a, err := buildApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.graph.Compaction()
	if err != nil {
		return fmt.Errorf("compaction: %w", err)
	}
	fmt.Printf("removed %d duplicate entity node(s)\n", removed)
	return nil
}
