package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bifrost/cli/api"
	"bifrost/cli/style"
)

var (
	runHost       string
	runUser       string
	runDescriptor string
	runTargetDir  string
)

var runCmd = &cobra.Command{
	Use:   "run <run-name>",
	Short: "Trigger a remote run and stream its output",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runHost, "host", "", "remote host (defaults to last login)")
	runCmd.Flags().StringVar(&runUser, "user", "", "remote user (defaults to last login)")
	runCmd.Flags().StringVar(&runDescriptor, "descriptor", "run.yaml", "descriptor file already uploaded to the target directory")
	runCmd.Flags().StringVar(&runTargetDir, "dir", "", "remote directory whose contents seed the run")
	runCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	runName := args[0]

	host, user := runHost, runUser
	if host == "" {
		host = conf.Host
	}
	if user == "" {
		user = conf.User
	}
	if host == "" || user == "" {
		return fmt.Errorf("no host/user given and none remembered; log in first or pass --host/--user")
	}

	password, err := promptPassword(fmt.Sprintf("%s@%s password: ", user, host))
	if err != nil {
		return err
	}

	fmt.Println(style.Title.Render("▶ " + runName))

	failed := false
	err = client.Trigger(api.TriggerRequest{
		Host:       host,
		User:       user,
		Password:   password,
		RunName:    runName,
		Descriptor: runDescriptor,
		TargetDir:  runTargetDir,
	}, func(ev api.Event) {
		switch ev.Type {
		case "status":
			fmt.Println(style.Status.Render("· " + ev.Message))
		case "stdout":
			fmt.Println(style.Stdout.Render(ev.Message))
		case "stderr":
			fmt.Println(style.Stderr.Render(ev.Message))
		case "success":
			fmt.Println(style.Success.Render("✓ " + ev.Message))
		case "error":
			failed = true
			fmt.Println(style.Failure.Render("✗ " + ev.Message))
		}
	})
	if errors.Is(err, api.ErrAlreadyRunning) {
		fmt.Println(style.Warning.Render("already running — try again in a few seconds"))
		return err
	}
	if err != nil {
		return err
	}
	if failed {
		return fmt.Errorf("run failed")
	}
	return nil
}
