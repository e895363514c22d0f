package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/manno/shipmate/internal/conversation"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant interactively",
	Long: `Start an interactive provisioning conversation on stdin.

Each line is sent to the assistant as one message. Type "exit" or "quit" to
leave; the session lives only for the lifetime of the process.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := GetLogger()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		conv, err := buildConversation(ctx, cmd)
		if err != nil {
			logger.Error("failed to wire conversation", "error", err)
			return err
		}

		sessionKey := uuid.New().String()
		fmt.Println("Tell me which repository you would like to set up a pipeline for.")

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				return nil
			}

			reply, err := conv.HandleMessage(ctx, sessionKey, line)
			if err != nil {
				logger.Error("failed to handle message", "error", err)
				fmt.Println("Something went wrong, please try again.")
				continue
			}

			fmt.Println(reply.Message)
			if reply.Disposition == conversation.Finished {
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	registerProvisionFlags(chatCmd)
}
