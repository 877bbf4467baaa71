package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bifrost/cli/style"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the current session",
	Args:  cobra.NoArgs,
	RunE:  runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	s, err := client.Session()
	if err != nil {
		fmt.Println(style.DimText.Render("no active session"))
		return err
	}
	fmt.Printf("%s %s\n", style.Bold.Render(s.User+"@"+s.Host),
		style.DimText.Render("expires "+s.ExpiresAt.Format("2006-01-02 15:04")))
	return nil
}
