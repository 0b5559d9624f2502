package movements

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/crucial707/asset-custody/cmd/cli/client"
	"github.com/crucial707/asset-custody/cmd/cli/output"
	"github.com/crucial707/asset-custody/internal/models"
	"github.com/spf13/cobra"
)

// InitMovements registers checkout, checkin and the movement log.
func InitMovements(rootCmd *cobra.Command) {
	movementsCmd := &cobra.Command{
		Use:     "movements",
		Aliases: []string{"mv"},
		Short:   "Record checkouts and check-ins",
	}
	movementsCmd.AddCommand(checkoutCmd(), checkinCmd(), listCmd())
	rootCmd.AddCommand(movementsCmd)
}

type result struct {
	MovementID int                  `json:"movement_id"`
	EventIDs   []int                `json:"event_ids"`
	Asset      models.AssetSnapshot `json:"asset"`
}

func record(payload map[string]any) error {
	var res result
	if err := client.Call("POST", "/movements", payload, &res); err != nil {
		return err
	}
	holder := output.Str(res.Asset.HolderLabel)
	fmt.Printf("Movement %d recorded. Asset %d: %s, holder %s, %d open assignment(s)\n",
		res.MovementID, res.Asset.ID, res.Asset.State, holder, res.Asset.OpenEvents)
	return nil
}

func checkoutCmd() *cobra.Command {
	var (
		assetID        int
		collaborator   string
		shared         bool
		location, cond string
		notes, date    string
	)

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Hand an asset to a collaborator",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"asset_id": assetID,
				"kind":     models.MovementCheckout,
				"shared":   shared,
			}
			if id, err := strconv.Atoi(collaborator); err == nil {
				payload["collaborator_id"] = id
			} else {
				payload["collaborator"] = collaborator
			}
			setIf(payload, "location", location)
			setIf(payload, "condition_out", cond)
			setIf(payload, "notes", notes)
			setIf(payload, "assigned_on", date)
			return record(payload)
		},
	}

	cmd.Flags().IntVar(&assetID, "asset", 0, "asset id")
	cmd.Flags().StringVar(&collaborator, "to", "", "collaborator id, RUT or name")
	cmd.Flags().BoolVar(&shared, "shared", false, "add the collaborator as a shared holder")
	cmd.Flags().StringVar(&location, "location", "", "delivery location")
	cmd.Flags().StringVar(&cond, "condition", "", "condition at delivery")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	cmd.Flags().StringVar(&date, "date", "", "assignment date (YYYY-MM-DD), defaults to today")
	cmd.MarkFlagRequired("asset")
	cmd.MarkFlagRequired("to")
	return cmd
}

func checkinCmd() *cobra.Command {
	var (
		assetID      int
		collaborator string
		cond, notes  string
		date         string
	)

	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Return an asset; without --from every open assignment is closed",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"asset_id": assetID,
				"kind":     models.MovementCheckin,
			}
			if collaborator != "" {
				if id, err := strconv.Atoi(collaborator); err == nil {
					payload["collaborator_id"] = id
				} else {
					payload["collaborator"] = collaborator
				}
			}
			setIf(payload, "condition_in", cond)
			setIf(payload, "notes", notes)
			setIf(payload, "returned_on", date)
			return record(payload)
		},
	}

	cmd.Flags().IntVar(&assetID, "asset", 0, "asset id")
	cmd.Flags().StringVar(&collaborator, "from", "", "collaborator id, RUT or name returning the asset")
	cmd.Flags().StringVar(&cond, "condition", "", "condition at return")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	cmd.Flags().StringVar(&date, "date", "", "return date (YYYY-MM-DD), defaults to today")
	cmd.MarkFlagRequired("asset")
	return cmd
}

func listCmd() *cobra.Command {
	var (
		assetID int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the latest movements",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/movements"
			if assetID > 0 {
				path = "/movements/asset/" + url.PathEscape(strconv.Itoa(assetID))
			}
			var list []models.Movement
			if err := client.Call("GET", path, nil, &list); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(list)
			}
			rows := make([][]interface{}, 0, len(list))
			for _, m := range list {
				rows = append(rows, []interface{}{m.ID, m.RecordedAt.Format("2006-01-02 15:04"), m.Kind, m.AssetID, m.AssignedTo, m.ResponsibleUser})
			}
			output.RenderTable([]string{"ID", "When", "Kind", "Asset", "Collaborator", "Recorded by"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVar(&assetID, "asset", 0, "only movements of this asset")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func setIf(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
