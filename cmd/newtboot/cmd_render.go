package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtboot/pkg/cli"
	"github.com/newtron-network/newtboot/pkg/render"
)

var renderDevice string

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render every configuration candidate without contacting devices",
	Long: `Render the base and BGP candidates for each router in the inventory
and print them. Nothing is sent to any device.

Examples:
  newtboot --config network.yml render
  newtboot --config network.yml render --device r1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		routers, err := loadInventory()
		if err != nil {
			return err
		}
		r := render.New(app.vars.Templates)
		out := cmd.OutOrStdout()

		found := false
		for _, router := range routers {
			if renderDevice != "" && router.Hostname != renderDevice {
				continue
			}
			found = true

			base, err := r.RenderBase(router)
			if err != nil {
				return fmt.Errorf("%s: %w", router.Hostname, err)
			}
			bgp, err := r.RenderBGP(router)
			if err != nil {
				return fmt.Errorf("%s: %w", router.Hostname, err)
			}

			fmt.Fprintf(out, "%s\n", cli.Bold(fmt.Sprintf("# %s (%s/%s)", router.Hostname, router.Vendor, router.OS)))
			fmt.Fprintf(out, "%s\n", cli.Dim("## base"))
			fmt.Fprint(out, base)
			fmt.Fprintf(out, "%s\n", cli.Dim("## bgp"))
			fmt.Fprint(out, bgp)
			fmt.Fprintln(out)
		}
		if !found && renderDevice != "" {
			return fmt.Errorf("device %q not in inventory", renderDevice)
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderDevice, "device", "", "Render only this device")
}
