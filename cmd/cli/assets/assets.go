package assets

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/crucial707/asset-custody/cmd/cli/client"
	"github.com/crucial707/asset-custody/cmd/cli/output"
	"github.com/crucial707/asset-custody/internal/models"
	"github.com/spf13/cobra"
)

// ==========================
// Init Assets
// ==========================
func InitAssets(rootCmd *cobra.Command) {

	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "Browse inventory and change asset state",
	}

	assetsCmd.AddCommand(
		listAssetsCmd(),
		getAssetCmd(),
		assignmentsCmd(),
		setStateCmd(),
		deleteAssetCmd(),
	)

	rootCmd.AddCommand(assetsCmd)
}

type assetPage struct {
	Items []models.Asset `json:"items"`
	Total int            `json:"total"`
}

// ==========================
// LIST
// ==========================
func listAssetsCmd() *cobra.Command {
	var (
		query, state, category string
		limit                  int
		asJSON                 bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if query != "" {
				q.Set("q", query)
			}
			if state != "" {
				q.Set("state", state)
			}
			if category != "" {
				q.Set("category", category)
			}
			q.Set("limit", strconv.Itoa(limit))

			var page assetPage
			if err := client.Call("GET", "/assets?"+q.Encode(), nil, &page); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(page.Items)
			}

			rows := make([][]interface{}, 0, len(page.Items))
			for _, a := range page.Items {
				rows = append(rows, []interface{}{a.ID, a.Category, a.Name, output.Str(a.Serial), a.State, output.Str(a.HolderLabel), a.OpenAssignments})
			}
			output.RenderTable([]string{"ID", "Category", "Name", "Serial", "State", "Holder", "Open"}, rows)
			if page.Total > len(page.Items) {
				fmt.Printf("showing %d of %d\n", len(page.Items), page.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "search name, serial, brand or holder")
	cmd.Flags().StringVar(&state, "state", "", "FREE, ASSIGNED, MAINTENANCE, RETIRED or OBSOLETE")
	cmd.Flags().StringVar(&category, "category", "", "asset category")
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// ==========================
// GET
// ==========================
func getAssetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [id]",
		Short: "Show one asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var a models.Asset
			if err := client.Call("GET", "/assets/"+args[0], nil, &a); err != nil {
				return err
			}
			return output.PrintJSON(a)
		},
	}
}

// ==========================
// OPEN ASSIGNMENTS
// ==========================
func assignmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assignments [id]",
		Short: "List the open assignments of an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var list []models.Assignment
			if err := client.Call("GET", "/assets/"+args[0]+"/assignments", nil, &list); err != nil {
				return err
			}
			rows := make([][]interface{}, 0, len(list))
			for _, a := range list {
				holder := a.CollaboratorName
				if holder == "" {
					holder = "-"
				}
				rows = append(rows, []interface{}{a.ID, holder, a.Shared, a.AssignedOn.Format("2006-01-02")})
			}
			output.RenderTable([]string{"Event", "Collaborator", "Shared", "Since"}, rows)
			return nil
		},
	}
}

// ==========================
// SET STATE
// ==========================
func setStateCmd() *cobra.Command {
	var state, reason string

	cmd := &cobra.Command{
		Use:   "state [id]",
		Short: "Move an asset to FREE, MAINTENANCE, RETIRED or OBSOLETE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap models.AssetSnapshot
			err := client.Call("POST", "/assets/"+args[0]+"/state", map[string]string{"state": state, "reason": reason}, &snap)
			if err != nil {
				return err
			}
			fmt.Printf("Asset %d is now %s\n", snap.ID, snap.State)
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "target state")
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded in the asset history")
	cmd.MarkFlagRequired("state")
	cmd.MarkFlagRequired("reason")
	return cmd
}

// ==========================
// DELETE
// ==========================
func deleteAssetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Call("DELETE", "/assets/"+args[0], nil, nil); err != nil {
				return err
			}
			fmt.Println("Asset deleted")
			return nil
		},
	}
}
