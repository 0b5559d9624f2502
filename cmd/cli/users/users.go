package users

import (
	"fmt"

	"github.com/crucial707/asset-custody/cmd/cli/client"
	"github.com/crucial707/asset-custody/cmd/cli/output"
	"github.com/crucial707/asset-custody/internal/models"
	"github.com/spf13/cobra"
)

// ==========================
// CLI Command Init
// ==========================
func InitUsers(rootCmd *cobra.Command) {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage API accounts (admin only)",
	}
	usersCmd.AddCommand(listUsersCmd(), createUserCmd())
	rootCmd.AddCommand(usersCmd)
}

// ==========================
// List Users
// ==========================
func listUsersCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			var page struct {
				Items []models.User `json:"items"`
			}
			if err := client.Call("GET", "/users", nil, &page); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(page.Items)
			}
			rows := make([][]interface{}, 0, len(page.Items))
			for _, u := range page.Items {
				rows = append(rows, []interface{}{u.ID, u.Name, u.Email, u.Role, u.Active})
			}
			output.RenderTable([]string{"ID", "Name", "Email", "Role", "Active"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// ==========================
// Create User
// ==========================
func createUserCmd() *cobra.Command {
	var name, email, password, role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var u models.User
			payload := map[string]string{"name": name, "email": email, "password": password, "role": role}
			if err := client.Call("POST", "/users", payload, &u); err != nil {
				return err
			}
			fmt.Printf("User %d created (%s, %s)\n", u.ID, u.Email, u.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "initial password (min 8 chars)")
	cmd.Flags().StringVar(&role, "role", models.RoleViewer, "admin, status, report or viewer")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}
