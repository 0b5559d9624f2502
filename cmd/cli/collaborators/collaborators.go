package collaborators

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/crucial707/asset-custody/cmd/cli/client"
	"github.com/crucial707/asset-custody/cmd/cli/output"
	"github.com/crucial707/asset-custody/internal/models"
	"github.com/spf13/cobra"
)

// InitCollaborators registers collaborator lookup and activation commands.
func InitCollaborators(rootCmd *cobra.Command) {
	collaboratorsCmd := &cobra.Command{
		Use:     "collaborators",
		Aliases: []string{"collab"},
		Short:   "Look up collaborators and change their active flag",
	}
	collaboratorsCmd.AddCommand(listCmd(), activeCmd(true), activeCmd(false), holdingsCmd())
	rootCmd.AddCommand(collaboratorsCmd)
}

func listCmd() *cobra.Command {
	var (
		query      string
		activeOnly bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List collaborators",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if query != "" {
				q.Set("q", query)
			}
			if activeOnly {
				q.Set("active", "true")
			}
			var list []models.Collaborator
			if err := client.Call("GET", "/collaborators?"+q.Encode(), nil, &list); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(list)
			}
			rows := make([][]interface{}, 0, len(list))
			for _, c := range list {
				rows = append(rows, []interface{}{c.ID, c.Name, c.RUT, c.ProjectName, c.SupervisorName, c.Active})
			}
			output.RenderTable([]string{"ID", "Name", "RUT", "Project", "Supervisor", "Active"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "match name or RUT")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active collaborators")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func activeCmd(active bool) *cobra.Command {
	use, short, action := "deactivate [id]", "Deactivate a collaborator holding no assets", "deactivate"
	if active {
		use, short, action = "activate [id]", "Reactivate a collaborator", "activate"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.Atoi(args[0]); err != nil {
				return fmt.Errorf("invalid collaborator id %q", args[0])
			}
			err := client.Call("POST", "/collaborators/"+args[0]+"/"+action, nil, nil)
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
				var body struct {
					Pending []models.PendingAsset `json:"pending_assets"`
				}
				if json.Unmarshal(apiErr.Body, &body) == nil && len(body.Pending) > 0 {
					printPending(body.Pending)
				}
			}
			if err != nil {
				return err
			}
			fmt.Printf("Collaborator %s %sd\n", args[0], action)
			return nil
		},
	}
}

func holdingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "holdings [id]",
		Short: "Show the assets a collaborator currently holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var history struct {
				Collaborator models.Collaborator  `json:"collaborator"`
				Assets       []models.PendingAsset `json:"assets"`
			}
			if err := client.Call("GET", "/collaborators/"+args[0]+"/history", nil, &history); err != nil {
				return err
			}
			fmt.Printf("%s (%s)\n", history.Collaborator.Name, history.Collaborator.RUT)
			printPending(history.Assets)
			return nil
		},
	}
}

func printPending(list []models.PendingAsset) {
	rows := make([][]interface{}, 0, len(list))
	for _, a := range list {
		rows = append(rows, []interface{}{a.ID, a.Category, a.Name, a.Serial, a.AssignedOn.Format("2006-01-02")})
	}
	output.RenderTable([]string{"Asset", "Category", "Name", "Serial", "Since"}, rows)
}
