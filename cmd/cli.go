// SPDX-License-Identifier: MIT
// Package cmd wires the cobra CLI: the root command runs the visualizer,
// `list` prints audio devices, `overlay` installs an overlay image.
package cmd

import (
	"fmt"

	"spectra/internal/assets"
	"spectra/internal/audio"
	"spectra/internal/config"
	"spectra/pkg/build"

	"github.com/spf13/cobra"
)

// flag values, applied over the loaded config only when explicitly set.
type cliFlags struct {
	configPath  string
	overlayPath string
	device      int
	fps         int
	displayMode string
	sourceFile  string
	verbose     bool
}

// Execute parses the command line and runs the selected command.
func Execute() error {
	buildInfo := build.GetBuildFlags()
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time audio-reactive visual renderer",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigWithFlags(cmd, flags)
			if err != nil {
				return err
			}
			return runPipeline(cfg)
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"Path to config file (default: config.yaml, spectra.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false,
		"Show debug output")

	rootCmd.Flags().StringVarP(&flags.overlayPath, "overlay", "o", "",
		"Overlay image path for this run (does not modify the config file)")
	rootCmd.Flags().IntVarP(&flags.device, "device", "d", config.MinDeviceID,
		"Input device ID. Use 'list' to see available devices.")
	rootCmd.Flags().IntVar(&flags.fps, "fps", 0,
		"Target render frame rate")
	rootCmd.Flags().StringVar(&flags.displayMode, "display", "",
		"Display surface: terminal, png or null")
	rootCmd.Flags().StringVarP(&flags.sourceFile, "file", "f", "",
		"Loop a WAV/MP3 file instead of capturing")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listDevices()
		},
	}
	rootCmd.AddCommand(listCmd)

	overlayCmd := &cobra.Command{
		Use:   "overlay <image>",
		Short: "Install an overlay image and point the config at it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return installOverlay(args[0], flags.configPath)
		},
	}
	overlayCmd.Flags().StringVar(&overlayAssetsDir, "assets-dir", overlayAssetsDir,
		"Directory the overlay is installed into")
	rootCmd.AddCommand(overlayCmd)

	return rootCmd.Execute()
}

// loadConfigWithFlags loads the file config and layers the explicitly set
// flags on top, re-validating the result.
func loadConfigWithFlags(cmd *cobra.Command, flags *cliFlags) (*config.Config, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	if flags.verbose {
		cfg.LogLevel = "debug"
	}
	if cmd.Flags().Changed("overlay") {
		cfg.Overlay.Path = flags.overlayPath
	}
	if cmd.Flags().Changed("device") {
		cfg.Audio.InputDevice = flags.device
	}
	if cmd.Flags().Changed("fps") {
		cfg.Render.TargetFPS = flags.fps
	}
	if cmd.Flags().Changed("display") {
		cfg.Display.Mode = config.DisplayMode(flags.displayMode)
	}
	if cmd.Flags().Changed("file") {
		cfg.Audio.Source = config.SourceFile
		cfg.Audio.File = flags.sourceFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlayAssetsDir is where `spectra overlay` installs images.
var overlayAssetsDir = "assets"

// installOverlay copies the image into the assets store and rewrites the
// config file to use it.
func installOverlay(imagePath, configPath string) error {
	installed, err := assets.Install(imagePath, overlayAssetsDir)
	if err != nil {
		return err
	}
	if configPath == "" {
		configPath = "config.yaml"
	}
	if err := assets.RewriteOverlayPath(configPath, installed); err != nil {
		return err
	}
	fmt.Printf("Overlay installed: %s\n", installed)
	return nil
}

// listDevices prints every device PortAudio can see.
func listDevices() error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	devices, err := audio.Devices()
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}
	if len(devices) == 0 {
		fmt.Println("No audio devices found.")
		return nil
	}
	for _, d := range devices {
		fmt.Println(d)
	}
	return nil
}
