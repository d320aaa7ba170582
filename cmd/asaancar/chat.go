package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"asaancar/internal/api"
	"asaancar/internal/chat"
	"asaancar/internal/realtime"
)

func init() {
	chatCmd.AddCommand(chatStartCmd)
	chatCmd.AddCommand(chatOpenCmd)
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "List conversations with rental stores",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadAuthedApp()
		if err != nil {
			return err
		}
		svc := chat.NewService(a.client, nil, a.sess, a.logger)
		if err := svc.LoadConversations(cmd.Context()); err != nil {
			return err
		}
		conversations := svc.ConversationStore().All()
		if len(conversations) == 0 {
			fmt.Println("No conversations yet. Start one with 'asaancar chat start <store-id>'.")
			return nil
		}
		for _, conv := range conversations {
			line := fmt.Sprintf("%-6s %s", conv.ID, conv.StoreName)
			if conv.UnreadCount > 0 {
				line += fmt.Sprintf("  (%d unread)", conv.UnreadCount)
			}
			if conv.LastMessage != nil {
				line += "  — " + truncate(conv.LastMessage.Body, 40)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var chatStartCmd = &cobra.Command{
	Use:   "start <store-id>",
	Short: "Start a conversation with a rental store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadAuthedApp()
		if err != nil {
			return err
		}
		storeID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("store id must be numeric: %w", err)
		}
		svc := chat.NewService(a.client, nil, a.sess, a.logger)
		conv, err := svc.StartConversation(cmd.Context(), storeID)
		if err != nil {
			return err
		}
		fmt.Printf("Conversation %s with %s. Open it with 'asaancar chat open %s'.\n",
			conv.ID, conv.StoreName, conv.ID)
		return nil
	},
}

var chatOpenCmd = &cobra.Command{
	Use:   "open <conversation-id>",
	Short: "Open a conversation and chat interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadAuthedApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		// Live push is optional; without pusher settings the chat still
		// works over REST alone.
		var channel chat.Channel
		if a.cfg.PusherHost != "" {
			conn, dialErr := realtime.Dial(ctx, realtime.Config{
				Host:    a.cfg.PusherHost,
				Key:     a.cfg.PusherKey,
				TLS:     a.cfg.PusherTLS,
				AuthURL: a.cfg.APIBaseURL + a.cfg.AuthPath,
			}, a.sess, a.logger)
			if dialErr != nil {
				a.logger.Warn("realtime unavailable, running REST-only", "error", dialErr)
			} else {
				defer conn.Close()
				channel = conn
			}
		}

		svc := chat.NewService(a.client, channel, a.sess, a.logger)
		svc.OnNewMessage(func(msg api.Message) {
			fmt.Printf("\r%s\n> ", renderMessage(msg, a.sess.UserID))
		})
		svc.OnTyping(func(isTyping bool, userID int64) {
			if isTyping {
				fmt.Print("\r[store is typing…]\n> ")
			}
		})

		history, err := svc.Open(ctx, api.ID(args[0]))
		if err != nil {
			return err
		}
		defer svc.Close()

		for _, msg := range history {
			fmt.Println(renderMessage(msg, a.sess.UserID))
		}
		fmt.Println("Type a message and press enter. /quit to leave.")

		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			if ctx.Err() != nil {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			switch {
			case line == "":
			case line == "/quit":
				return nil
			default:
				svc.Typing(true)
				confirmed, sendErr := svc.Send(ctx, line)
				svc.Typing(false)
				if sendErr != nil {
					fmt.Printf("send failed: %v (message discarded)\n", sendErr)
				} else {
					fmt.Println(renderMessage(confirmed, a.sess.UserID))
				}
			}
			fmt.Print("> ")
		}
		return scanner.Err()
	},
}

func renderMessage(msg api.Message, selfID int64) string {
	who := "store"
	if msg.Mine(selfID) {
		who = "you"
	}
	stamp := msg.CreatedAt.Local().Format(time.Kitchen)
	return fmt.Sprintf("[%s] %-5s %s", stamp, who+":", msg.Body)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
