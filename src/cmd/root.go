package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X cat-board/src/cmd.Version=..."
var Version = "dev"

type rootFlags struct {
	apiURL    string // Memo APIのベースURL
	tokenFile string // トークン保存ファイル
	logLevel  string // CLIのログレベル
}

// NewRootCommand builds the catboard command tree
func NewRootCommand() *cobra.Command {
	flags := new(rootFlags)

	rootCmd := &cobra.Command{
		Use:           "catboard",
		Short:         "Cat Board: sticky note memos backed by the Memo API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.apiURL, "api", "", "Memo API base URL (default $MEMO_API_BASE_URL)")
	pf.StringVar(&flags.tokenFile, "token-file", "", "token storage file (default $TOKEN_STORAGE_PATH)")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "log level for CLI commands")

	rootCmd.AddCommand(
		newServeCommand(flags),
		newListCommand(flags),
		newAddCommand(flags),
		newRemoveCommand(flags),
		newLoginCommand(flags),
		newLogoutCommand(flags),
		newWhoamiCommand(flags),
		newVersionCommand(),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
