package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bifrost/cli/style"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the orchestrator",
	Aliases: []string{"doctor"},
	RunE:    runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	h, err := client.Health()
	if err != nil {
		fmt.Println(style.ErrorBox.Render("cannot reach bifrost at " + client.BaseURL))
		return err
	}

	fmt.Println(style.Banner.Render("BIFROST"))
	fmt.Printf("%s  up %s\n", style.DotOk, style.DimText.Render(h.Uptime))
	fmt.Printf("   sessions  %d\n", h.Sessions)
	fmt.Printf("   runs      %d in dedup window\n", h.Runs)
	fmt.Printf("   observers %d\n", h.Observers)
	return nil
}
