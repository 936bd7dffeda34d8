package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"siteqa/retrieval"
)

var showSources bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question from the index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively, keeping conversation history",
	Long: `chat reads one question per line. Type /clear to forget the
conversation and /exit to quit.`,
	RunE: runChat,
}

func init() {
	askCmd.Flags().BoolVar(&showSources, "sources", false, "print the retrieved passages")
	chatCmd.Flags().BoolVar(&showSources, "sources", false, "print the retrieved passages")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	res, err := a.engine.Ask(cmd.Context(), strings.Join(args, " "), nil)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	return chatLoop(cmd.Context(), a.engine, cmd.InOrStdin(), cmd.OutOrStdout())
}

type asker interface {
	Ask(ctx context.Context, question string, turns []retrieval.Turn) (*retrieval.Result, error)
}

// chatLoop answers each input line within one session. Failed questions are
// reported and not added to the history.
func chatLoop(ctx context.Context, engine asker, in io.Reader, out io.Writer) error {
	session := retrieval.NewSession()
	scanner := bufio.NewScanner(in)

	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/exit", "/quit":
			return nil
		case "/clear":
			session.Clear()
			fmt.Fprintln(out, "History cleared.")
		default:
			res, err := engine.Ask(ctx, line, session.Turns())
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				break
			}
			session.Append(line, res.Answer)
			printResult(out, res)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func printResult(out io.Writer, res *retrieval.Result) {
	fmt.Fprintln(out, res.Answer)
	if !showSources {
		return
	}
	for i, m := range res.Matches {
		fmt.Fprintf(out, "  [%d] score=%.3f %s\n", i+1, m.Score, truncate(m.Text, 120))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
