package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"bifrost/cli/style"
)

var loginCmd = &cobra.Command{
	Use:   "login <user>@<host>",
	Short: "Verify a credential against a remote host and save a session token",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	user, host, err := splitTarget(args[0])
	if err != nil {
		return err
	}

	password, err := promptPassword(fmt.Sprintf("%s@%s password: ", user, host))
	if err != nil {
		return err
	}

	resp, err := client.Login(host, user, password)
	if err != nil {
		fmt.Println(style.Failure.Render("login failed: " + err.Error()))
		return err
	}

	conf.Token = resp.Token
	conf.Host = host
	conf.User = user
	if err := conf.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println(style.Success.Render("✓ logged in"), style.DimText.Render("session valid until "+resp.ExpiresAt.Format("2006-01-02")))
	return nil
}

func splitTarget(s string) (user, host string, err error) {
	for i := 0; i < len(s); i++ {
		if s[i] == '@' {
			if i == 0 || i == len(s)-1 {
				break
			}
			return s[:i], s[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("target must look like user@host, got %q", s)
}

// promptPassword reads a secret without echoing. Falls back to BIFROST_PASSWORD
// for non-interactive use.
func promptPassword(prompt string) (string, error) {
	if pw := os.Getenv("BIFROST_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty password")
	}
	return string(raw), nil
}
