package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dodger215/e-learnig-app/internal/ui"
	"github.com/dodger215/e-learnig-app/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "meet",
	Short:   "Terminal client for WebRTC meeting rooms",
	Long:    `Meet is a command-line client for the e-learning meeting rooms. It joins a room over the signaling server, negotiates direct WebRTC sessions with every other participant, and exposes chat, mute, camera and screen-share controls from the terminal.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
