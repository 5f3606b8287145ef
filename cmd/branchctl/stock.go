package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Print the stock catalog the server would serve",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, data, stores, err := openData(cmd.Context())
		if err != nil {
			return err
		}
		defer stores.Close()

		items := data.FetchStockList(cmd.Context())
		for _, item := range items {
			fmt.Fprintln(cmd.OutOrStdout(), item)
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "catalog is empty or unavailable")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stockCmd)
}
