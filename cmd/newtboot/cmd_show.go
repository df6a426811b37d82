package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtboot/pkg/cli"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the parsed inventory",
	RunE: func(cmd *cobra.Command, args []string) error {
		routers, err := loadInventory()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, r := range routers {
			fmt.Fprintln(out, cli.Bold(r.Hostname)+r.DeviceInfo())

			t := cli.NewTableTo(out, "INTERFACE", "ADDRESS", "STATUS", "DESCRIPTION").WithPrefix("  ")
			for _, iface := range r.Interfaces {
				status := cli.Green(string(iface.Status))
				if !iface.IsUp() {
					status = cli.Yellow(string(iface.Status))
				}
				t.Row(iface.Name, iface.Address.String(), status, iface.Description)
			}
			t.Flush()

			if r.HasBGP() {
				fmt.Fprintf(out, "  BGP AS %d router-id %s, %d neighbors\n",
					r.BGP.ASN, r.BGP.RouterID, len(r.BGP.Neighbors))
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}
