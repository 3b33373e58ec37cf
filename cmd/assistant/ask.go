package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"portfolio-assistant/internal/assistant"
	"portfolio-assistant/internal/history"
)

var askSession string

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "cli", "conversation id")
	askCmd.Flags().Bool("reset", false, "start the conversation over before asking")
	rootCmd.AddCommand(askCmd)
}

var askCmd = &cobra.Command{
	Use:   "ask [utterance]",
	Short: "Ask the assistant from the shell; with no argument, read lines from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := assistant.WithTransport(cmd.Context(), assistant.TransportCLI)

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeApp(a)

		out := cmd.OutOrStdout()
		if reset, _ := cmd.Flags().GetBool("reset"); reset {
			a.assistant.Reset(ctx, askSession)
		}
		if len(args) > 0 {
			return askOnce(ctx, a.assistant, out, strings.Join(args, " "))
		}
		return askLoop(ctx, a.assistant, cmd.InOrStdin(), out)
	},
}

func askOnce(ctx context.Context, svc *assistant.Service, out io.Writer, text string) error {
	turn, err := svc.Ask(ctx, askSession, text)
	if err != nil {
		return err
	}
	printExchange(out, turn.Reply)
	return nil
}

// askLoop greets with the last agent message, then answers one line at a
// time until EOF.
func askLoop(ctx context.Context, svc *assistant.Service, in io.Reader, out io.Writer) error {
	if log := svc.History(ctx, askSession); len(log) > 0 {
		printExchange(out, log[len(log)-1])
	}
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		err := askOnce(ctx, svc, out, sc.Text())
		if errors.Is(err, assistant.ErrEmptyUtterance) {
			continue
		}
		if err != nil {
			return err
		}
	}
}

func printExchange(out io.Writer, ex history.Exchange) {
	fmt.Fprintln(out, ex.Body)
	if len(ex.FollowUps) > 0 {
		fmt.Fprintf(out, "\n[%s]\n", strings.Join(ex.FollowUps, "] ["))
	}
	fmt.Fprintln(out)
}
