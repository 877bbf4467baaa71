package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bifrost/cli/style"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the saved session token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	if conf.Token == "" {
		fmt.Println(style.DimText.Render("not logged in"))
		return nil
	}
	// Revocation is idempotent server-side; a dead server still clears
	// the local token.
	if err := client.Logout(); err != nil {
		fmt.Println(style.Warning.Render("server revoke failed: " + err.Error()))
	}
	conf.Token = ""
	if err := conf.Save(); err != nil {
		return err
	}
	fmt.Println(style.Success.Render("✓ logged out"))
	return nil
}
