package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical/cropcare/internal/config"
	"github.com/spherical/cropcare/internal/ui"
)

var (
	cfgFile string
	verbose bool
	noColor bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cropcare",
	Short: "CropCare - agricultural document and image assistant",
	Long: `CropCare reads agricultural documents and crop photos, summarizes them with a
language model and answers follow-up questions in English, Hindi, Telugu or Malayalam.
Summaries can be read aloud as MP3 audio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Init(noColor, verbose)

		path := cfgFile
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if verbose {
			loaded.Observability.LogLevel = "debug"
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serveCmd, extractCmd, chatCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
