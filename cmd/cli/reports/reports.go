package reports

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/crucial707/asset-custody/cmd/cli/client"
	"github.com/crucial707/asset-custody/cmd/cli/config"
	"github.com/crucial707/asset-custody/cmd/cli/output"
	"github.com/crucial707/asset-custody/internal/models"
	"github.com/spf13/cobra"
)

// InitReports registers the dashboard and CSV export commands.
func InitReports(rootCmd *cobra.Command) {
	reportsCmd := &cobra.Command{
		Use:   "reports",
		Short: "Dashboard figures and CSV exports",
	}
	reportsCmd.AddCommand(kpisCmd(), exportCmd())
	rootCmd.AddCommand(reportsCmd)
}

func kpisCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kpis",
		Short: "Show total, assigned and this month's movements",
		RunE: func(cmd *cobra.Command, args []string) error {
			var k models.KPIs
			if err := client.Call("GET", "/reports/kpis", nil, &k); err != nil {
				return err
			}
			output.RenderTable([]string{"Total assets", "Assigned", "Movements this month"},
				[][]interface{}{{k.TotalAssets, k.AssignedAssets, k.MovementsMonth}})
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:   "export [name]",
		Short: "Download a CSV export (assets, movements, peripherals)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := config.LoadToken()
			if err != nil {
				return err
			}
			req, err := http.NewRequest("GET", config.APIURL()+"/reports/export/"+args[0], nil)
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := (&http.Client{Timeout: 2 * time.Minute}).Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("export failed (%d): %s", resp.StatusCode, string(b))
			}

			if dest == "" {
				dest = args[0] + "_" + time.Now().Format("20060102") + ".csv"
			}
			f, err := os.Create(dest)
			if err != nil {
				return err
			}
			n, err := io.Copy(f, resp.Body)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %s (%d bytes)\n", dest, n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dest, "output", "o", "", "destination file")
	return cmd
}
