package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtboot/pkg/driver"
)

var driversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "List the device OS values with a registered driver",
	Run: func(cmd *cobra.Command, args []string) {
		for _, os := range driver.Default().Supported() {
			fmt.Fprintln(cmd.OutOrStdout(), os)
		}
	},
}
