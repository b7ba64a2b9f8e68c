package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	apiURL string
	format string
)

func main() {
	root := &cobra.Command{
		Use:   "corral",
		Short: "Corral CLI — manage cluster compute fleets",
	}

	root.PersistentFlags().StringVar(&apiURL, "api", "", "API URL (default http://localhost:8585)")
	root.PersistentFlags().StringVar(&format, "format", "table", "output format: table or json")

	fleetCmd := &cobra.Command{Use: "fleet", Short: "Manage compute fleets"}
	fleetCmd.AddCommand(
		fleetStatusCmd(),
		fleetStartCmd(),
		fleetStopCmd(),
		fleetUpdateCmd(),
	)

	clusterCmd := &cobra.Command{Use: "cluster", Short: "Inspect clusters"}
	clusterCmd.AddCommand(clusterListCmd())

	root.AddCommand(
		fleetCmd,
		clusterCmd,
		statusCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func getAPIURL() string {
	if apiURL != "" {
		return apiURL
	}
	if v := os.Getenv("CORRAL_API"); v != "" {
		return v
	}
	// Try config file.
	home, _ := os.UserHomeDir()
	data, err := os.ReadFile(home + "/.corral/config.yaml")
	if err == nil {
		var cfg struct {
			API string `yaml:"api"`
		}
		if yaml.Unmarshal(data, &cfg) == nil && cfg.API != "" {
			return cfg.API
		}
	}
	return "http://localhost:8585"
}

func authHeader(req *http.Request) {
	if token := os.Getenv("CORRAL_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func apiGet(path string) ([]byte, error) {
	req, _ := http.NewRequest(http.MethodGet, getAPIURL()+path, nil)
	authHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, apiError(resp.StatusCode, body)
	}
	return body, nil
}

func apiPatch(path string, payload any) ([]byte, error) {
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest(http.MethodPatch, getAPIURL()+path, strings.NewReader(string(data)))
	req.Header.Set("Content-Type", "application/json")
	authHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, apiError(resp.StatusCode, body)
	}
	return body, nil
}

func apiError(status int, body []byte) error {
	var e struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return fmt.Errorf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Errorf("HTTP %d: %s", status, string(body))
}

type fleetState struct {
	Status                string    `json:"status"`
	LastStatusUpdatedTime time.Time `json:"lastStatusUpdatedTime"`
}

func printFleetState(data []byte) error {
	if format == "json" {
		fmt.Println(string(data))
		return nil
	}
	var st fleetState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tLAST UPDATED")
	fmt.Fprintf(w, "%s\t%s\n", st.Status, st.LastStatusUpdatedTime.Format(time.RFC3339))
	return w.Flush()
}

func fleetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <cluster>",
		Short: "Show the compute fleet status of a cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := apiGet("/v1/clusters/" + args[0] + "/computefleet")
			if err != nil {
				return err
			}
			return printFleetState(data)
		},
	}
}

func fleetStartCmd() *cobra.Command {
	var batch bool
	cmd := &cobra.Command{
		Use:   "start <cluster>",
		Short: "Start the compute fleet (enable the compute environment with --batch)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := "START_REQUESTED"
			if batch {
				status = "ENABLED"
			}
			return updateFleet(args[0], status)
		},
	}
	cmd.Flags().BoolVar(&batch, "batch", false, "cluster uses a batch scheduler")
	return cmd
}

func fleetStopCmd() *cobra.Command {
	var batch bool
	cmd := &cobra.Command{
		Use:   "stop <cluster>",
		Short: "Stop the compute fleet (disable the compute environment with --batch)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := "STOP_REQUESTED"
			if batch {
				status = "DISABLED"
			}
			return updateFleet(args[0], status)
		},
	}
	cmd.Flags().BoolVar(&batch, "batch", false, "cluster uses a batch scheduler")
	return cmd
}

func fleetUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <cluster> <status>",
		Short: "Request a raw compute fleet status value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateFleet(args[0], args[1])
		},
	}
}

func updateFleet(clusterName, status string) error {
	data, err := apiPatch("/v1/clusters/"+clusterName+"/computefleet", map[string]string{"status": status})
	if err != nil {
		return err
	}
	return printFleetState(data)
}

func clusterListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List observed clusters",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := apiGet("/v1/clusters")
			if err != nil {
				return err
			}
			if format == "json" {
				fmt.Println(string(data))
				return nil
			}
			var resp struct {
				Clusters []struct {
					Name      string    `json:"name"`
					Scheduler string    `json:"scheduler"`
					Version   string    `json:"version"`
					LastSeen  time.Time `json:"lastSeen"`
				} `json:"clusters"`
			}
			if err := json.Unmarshal(data, &resp); err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSCHEDULER\tVERSION\tLAST SEEN")
			for _, c := range resp.Clusters {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, c.Scheduler, c.Version, c.LastSeen.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon health",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := apiGet("/healthz")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}
