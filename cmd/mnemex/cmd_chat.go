package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"mnemex/cmd/mnemex/chat"
)

var chatMessage string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask mnemex a question",
	Long: `With no flags, launches the interactive chat TUI. With
--message, answers a single question non-interactively and exits,
useful for scripting.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "ask a single question and print the answer instead of launching the TUI")
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := buildApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if chatMessage != "" {
		result, err := a.orchestrator.Chat(context.Background(), chatMessage, 10, true, 2)
		if err != nil {
			return fmt.Errorf("chat: %w", err)
		}
		fmt.Println(result.Answer)
		for _, c := range result.Citations {
			fmt.Printf("  - %s (%s)\n", c.MemoryID, c.SourceType)
		}
		return nil
	}

	p := tea.NewProgram(chat.New(a.orchestrator), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
