package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"asaancar/internal/api"
	"asaancar/internal/session"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(profileCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in and save the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		password, err := promptSecret("Password: ")
		if err != nil {
			return err
		}
		result, err := a.client.Login(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		sess := session.Session{
			Token:    session.Token(result.Token),
			UserID:   result.User.ID,
			UserName: result.User.Name,
		}
		if err := a.saveSession(sess); err != nil {
			return err
		}
		fmt.Printf("Signed in as %s (%s)\n", result.User.Name, result.User.Email)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <name> <email>",
	Short: "Create an account and sign in",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		password, err := promptSecret("Password: ")
		if err != nil {
			return err
		}
		result, err := a.client.Register(cmd.Context(), api.RegisterParams{
			Name:     args[0],
			Email:    args[1],
			Password: password,
		})
		if err != nil {
			return err
		}
		sess := session.Session{
			Token:    session.Token(result.Token),
			UserID:   result.User.ID,
			UserName: result.User.Name,
		}
		if err := a.saveSession(sess); err != nil {
			return err
		}
		fmt.Printf("Account created for %s\n", result.User.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and drop the saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if a.sess.Authenticated() {
			// The local session goes away even if the server call fails.
			if err := a.client.Logout(cmd.Context()); err != nil {
				a.logger.Warn("server-side logout failed", "error", err)
			}
		}
		if err := a.saveSession(session.Anonymous()); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the signed-in user's profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadAuthedApp()
		if err != nil {
			return err
		}
		user, err := a.client.Profile(cmd.Context(), a.sess.UserID)
		if err != nil {
			return err
		}
		fmt.Printf("Name:  %s\nEmail: %s\n", user.Name, user.Email)
		if user.Phone != "" {
			fmt.Printf("Phone: %s\n", user.Phone)
		}
		return nil
	},
}

// promptSecret reads a line from stdin. Echo suppression is deliberately
// not attempted; the client targets scripted and interactive use alike.
func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
