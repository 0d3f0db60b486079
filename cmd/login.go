package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aleksandrbar00/kulai-app/internal/auth"
	"github.com/aleksandrbar00/kulai-app/internal/logging"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the lesson service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.ServerURL == "" {
			return fmt.Errorf("no server configured; set KULAI_SERVER_URL or pass --server")
		}

		log, closer, err := logging.Setup(cfg.LogPath, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("set up logging: %w", err)
		}
		defer closer.Close()

		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Username: ")
		username, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		username = strings.TrimSpace(username)

		fmt.Print("Password: ")
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return err
		}

		client := buildClient(cfg, log)
		tokens, err := client.Login(cmd.Context(), username, string(password))
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}

		if err := auth.NewStore(cfg.TokenPath).Save(tokens); err != nil {
			return fmt.Errorf("save tokens: %w", err)
		}
		fmt.Println("Logged in.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := auth.NewStore(cfg.TokenPath).Clear(); err != nil {
			return fmt.Errorf("clear tokens: %w", err)
		}
		fmt.Println("Logged out.")
		return nil
	},
}
