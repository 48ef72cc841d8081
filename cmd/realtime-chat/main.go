// Command realtime-chat is a terminal chat over a realtime speech session.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

const (
	envPartialKey = "AIPROXY_PARTIAL_KEY"
	envServiceURL = "AIPROXY_SERVICE_URL"
	envClientID   = "AIPROXY_CLIENT_ID"
)

var (
	voice        string
	instructions string
	textOnly     bool
	microphone   bool
	sinkName     string
)

var rootCmd = &cobra.Command{
	Use:   "realtime-chat",
	Short: "Chat with a realtime model through the proxy",
	Long: `realtime-chat opens a realtime session through the proxy and plays the
spoken responses on the default output device.

The proxy is configured from the environment:
  AIPROXY_PARTIAL_KEY  partial key of the proxied service (required)
  AIPROXY_SERVICE_URL  service url (defaults to the legacy service url)
  AIPROXY_CLIENT_ID    client id reported to the proxy`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&voice, "voice", "alloy", "voice of spoken responses")
	rootCmd.Flags().StringVar(&instructions, "instructions", "", "session instructions (defaults to a short assistant prompt)")
	rootCmd.Flags().BoolVar(&textOnly, "text-only", false, "disable audio responses")
	rootCmd.Flags().BoolVar(&microphone, "mic", false, "stream microphone audio with server side turn detection")
	rootCmd.Flags().StringVar(&sinkName, "sink", sinkMiniaudio, "audio output: miniaudio or portaudio")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
