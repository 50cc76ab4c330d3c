package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tisianewembou/NextWavePt3/internal/device"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List video capture devices",
		Long: `Enumerates the video capture nodes visible to the recorder and reports ` +
			`whether each one can currently be opened.`,
		Run: func(_ *cobra.Command, _ []string) {
			nodes := device.List()

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(nodes); err != nil {
					fmt.Fprintln(os.Stderr, "failed to encode device list:", err)
					os.Exit(1)
				}
				return
			}

			if len(nodes) == 0 {
				fmt.Println("no capture devices found")
				return
			}
			for _, n := range nodes {
				status := "ok"
				if !n.Accessible {
					status = "unavailable"
				}
				fmt.Printf("%-16s %-40s %s\n", n.Path, n.Name, status)
			}
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output device list as JSON")

	return cmd
}
