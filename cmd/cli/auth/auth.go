package auth

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/crucial707/asset-custody/cmd/cli/client"
	"github.com/crucial707/asset-custody/cmd/cli/config"
	"github.com/spf13/cobra"
)

// InitAuth registers login, logout and whoami on the root command.
func InitAuth(rootCmd *cobra.Command) {
	rootCmd.AddCommand(loginCmd(), logoutCmd(), whoamiCmd())
}

// loginCmd logs in a user and stores the JWT token locally.
func loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the custody API",
		Long:  "Authenticate with email and password and store the session token for subsequent commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if email == "" {
				email = prompt(in, "Email: ")
			}
			if password == "" {
				password = os.Getenv("CUSTODY_PASSWORD")
			}
			if password == "" {
				password = prompt(in, "Password: ")
			}
			if email == "" || password == "" {
				return fmt.Errorf("email and password are required")
			}

			var resp struct {
				Token string `json:"token"`
				User  struct {
					Name string `json:"name"`
					Role string `json:"role"`
				} `json:"user"`
			}
			if err := client.CallAnonymous("POST", "/auth/login", map[string]string{"email": email, "password": password}, &resp); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if resp.Token == "" {
				return fmt.Errorf("login succeeded but no token returned")
			}
			if err := config.SaveToken(resp.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			fmt.Printf("Logged in as %s (%s).\n", resp.User.Name, resp.User.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or CUSTODY_PASSWORD)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the locally stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := config.ClearToken()
			if err != nil {
				return err
			}
			if !removed {
				fmt.Println("No user logged in.")
				return nil
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var me struct {
				ID    int    `json:"id"`
				Name  string `json:"name"`
				Email string `json:"email"`
				Role  string `json:"role"`
			}
			if err := client.Call("GET", "/auth/me", nil, &me); err != nil {
				return err
			}
			fmt.Printf("%s <%s> role=%s id=%d\n", me.Name, me.Email, me.Role, me.ID)
			return nil
		},
	}
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}
