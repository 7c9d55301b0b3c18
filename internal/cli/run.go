package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/forge"
	"github.com/clipforge/clipforge/internal/probe"
)

func newForgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forge INPUT... OUTPUT",
		Short: "Create a new clip from one or more video files or folders",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runForge,
	}

	cmd.Flags().Float64("dur-scale", 0, "Rescale duration by factor")
	cmd.Flags().Float64("dur-target", 0, "Rescale duration to target seconds")
	cmd.Flags().String("trim-start", "", "Trim start: offset seconds or timestamp (2006-01-02T15:04:05)")
	cmd.Flags().String("trim-end", "", "Trim end: offset seconds or timestamp (2006-01-02T15:04:05)")
	cmd.Flags().Float64("res-scale", 0, "Rescale resolution by factor")
	cmd.Flags().String("res-target", "", "Rescale resolution to W:H")
	cmd.Flags().Bool("no-audio", false, "Drop audio instead of passing it through")
	cmd.Flags().Bool("cache", false, "Write folder caches for scanned folders without one")
	cmd.Flags().Bool("recurse", false, "Recurse into subfolders of folder inputs")

	return cmd
}

func runForge(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	op, err := operationFromFlags(cmd)
	if err != nil {
		return err
	}

	inputs := make([]forge.Input, 0, len(args)-1)
	for _, p := range args[:len(args)-1] {
		inputs = append(inputs, forge.Path(p))
	}
	output := args[len(args)-1]

	session := forge.NewContext(cfg, probe.NewRunner(cfg.FFprobePath), log)
	clip, err := session.Forge(output, inputs, op)
	if err != nil {
		return err
	}

	if err := session.Doit(cmd.Context()); err != nil {
		return err
	}

	if d, err := clip.Duration(); err == nil {
		log.Info().Str("output", clip.Path()).Float64("duration", d).Msg("forged")
	}
	return nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level: %w", err)
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger(), nil
}

func operationFromFlags(cmd *cobra.Command) (forge.Operation, error) {
	var op forge.Operation

	op.Duration.ScaleFactor, _ = cmd.Flags().GetFloat64("dur-scale")
	op.Duration.Target, _ = cmd.Flags().GetFloat64("dur-target")
	op.Resolution.ScaleFactor, _ = cmd.Flags().GetFloat64("res-scale")
	op.NoAudio, _ = cmd.Flags().GetBool("no-audio")
	op.Cache, _ = cmd.Flags().GetBool("cache")
	op.Recurse, _ = cmd.Flags().GetBool("recurse")

	var err error
	if s, _ := cmd.Flags().GetString("trim-start"); s != "" {
		if op.Duration.TrimStart, err = parseEndpoint(s); err != nil {
			return op, fmt.Errorf("trim-start: %w", err)
		}
	}
	if s, _ := cmd.Flags().GetString("trim-end"); s != "" {
		if op.Duration.TrimEnd, err = parseEndpoint(s); err != nil {
			return op, fmt.Errorf("trim-end: %w", err)
		}
	}
	if s, _ := cmd.Flags().GetString("res-target"); s != "" {
		if op.Resolution.Target, err = parseResolution(s); err != nil {
			return op, fmt.Errorf("res-target: %w", err)
		}
	}

	return op, op.Validate()
}

// parseEndpoint accepts an offset in seconds or a timezone-naive timestamp.
func parseEndpoint(s string) (*forge.Endpoint, error) {
	if off, err := strconv.ParseFloat(s, 64); err == nil {
		return &forge.Endpoint{Offset: off}, nil
	}
	at, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return nil, fmt.Errorf("not an offset or timestamp: %q", s)
	}
	return &forge.Endpoint{At: at}, nil
}

func parseResolution(s string) (probe.Resolution, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return probe.Resolution{}, fmt.Errorf("expected W:H, got %q", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return probe.Resolution{}, fmt.Errorf("parse width: %w", err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return probe.Resolution{}, fmt.Errorf("parse height: %w", err)
	}
	return probe.Resolution{W: w, H: h}, nil
}
