package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"synoptic/internal/api"
	"synoptic/internal/logging"
	"synoptic/internal/session"
)

var password string

// loginCmd stores the session for later commands and the interactive UI
var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in as a doctor",
	Long: `Logs in against the backend and stores the session locally.

The password is read from --password, or from the first line of stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register <username> <email>",
	Short: "Create a doctor account",
	Args:  cobra.ExactArgs(2),
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in doctor",
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVar(&password, "password", "", "Password (default: read from stdin)")
	registerCmd.Flags().StringVar(&password, "password", "", "Password (default: read from stdin)")
}

// readPassword returns --password, or the first stdin line.
func readPassword(cmd *cobra.Command) (string, error) {
	if password != "" {
		return password, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("password required")
	}
	return line, nil
}

// describeError prefers the backend's own message.
func describeError(action string, err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return fmt.Errorf("%s: %s", action, apiErr.Message)
	}
	return fmt.Errorf("%s: %w", action, err)
}

func runLogin(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	pw, err := readPassword(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	email := strings.TrimSpace(args[0])
	u, err := e.client.Login(ctx, email, pw)
	if err != nil {
		logging.Audit().SessionEvent(logging.AuditLogin, email, false)
		return describeError("login failed", err)
	}
	if err := e.store.Save(u); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	logging.AuditAs(u.Username).SessionEvent(logging.AuditLogin, u.Username, true)
	logger.Info("logged in", zap.String("user", u.Username), zap.String("id", u.ID))

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as Dr. %s (%s)\n", u.DisplayName(), u.Email)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	pw, err := readPassword(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	username, email := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
	if err := e.client.Register(ctx, username, email, pw); err != nil {
		logging.Audit().SessionEvent(logging.AuditRegister, username, false)
		return describeError("registration failed", err)
	}
	logging.Audit().SessionEvent(logging.AuditRegister, username, true)
	logger.Info("registered", zap.String("user", username))

	fmt.Fprintln(cmd.OutOrStdout(), "Registration successful! Log in with 'synoptic login "+email+"'.")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	u, loadErr := e.store.Load()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	// The backend keeps no session state; a failed call does not block logout.
	if err := e.client.Logout(ctx); err != nil {
		logger.Warn("backend logout failed", zap.Error(err))
	}
	if err := e.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	if loadErr != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
		return nil
	}
	logging.AuditAs(u.Username).SessionEvent(logging.AuditLogout, u.Username, true)
	fmt.Fprintf(cmd.OutOrStdout(), "Logged out Dr. %s\n", u.DisplayName())
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	u, err := e.store.Load()
	if errors.Is(err, session.ErrNoSession) {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Dr. %s <%s> (id %s)\n", u.DisplayName(), u.Email, u.ID)
	return nil
}
