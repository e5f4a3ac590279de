// Command termcoorddemo is a minimal terminal client built on top of the
// termcoord package: it attaches a local shell or an SSH session and
// renders the resulting snapshots straight to the controlling terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "termcoorddemo",
		Short: "Minimal terminal coordination demo client",
		Long: `termcoorddemo drives a Device (local shell or SSH session) through a
Coordinator and renders the published Snapshot to the controlling
terminal, one full repaint per update.`,
		SilenceUsage: true,
	}

	var shell string
	localCmd := &cobra.Command{
		Use:   "local",
		Short: "Attach a locally-spawned shell",
		Example: `  # Run the default shell
  termcoorddemo local

  # Run a specific shell
  termcoorddemo local --shell /bin/zsh`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runLocal(shell)
		},
	}
	localCmd.Flags().StringVar(&shell, "shell", "", "shell binary to spawn (default: $SHELL)")

	var addr, user, keyPath, password string
	var useAgent bool
	sshCmd := &cobra.Command{
		Use:   "ssh",
		Short: "Attach a shell over SSH",
		Example: `  # Connect with an SSH agent
  termcoorddemo ssh --addr example.com:22 --user alice --agent

  # Connect with a private key
  termcoorddemo ssh --addr example.com:22 --user alice --key ~/.ssh/id_ed25519`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runSSH(addr, user, keyPath, password, useAgent)
		},
	}
	sshCmd.Flags().StringVar(&addr, "addr", "", "host:port to dial")
	sshCmd.Flags().StringVar(&user, "user", "", "SSH username")
	sshCmd.Flags().StringVar(&keyPath, "key", "", "path to a private key")
	sshCmd.Flags().StringVar(&password, "password", "", "password (prefer --key or --agent)")
	sshCmd.Flags().BoolVar(&useAgent, "agent", false, "authenticate via SSH_AUTH_SOCK")
	_ = sshCmd.MarkFlagRequired("addr")
	_ = sshCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(localCmd, sshCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
