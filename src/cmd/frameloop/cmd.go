package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"presenter/src/config"
	"presenter/src/platform/window"
	"presenter/src/render"
	"presenter/src/render/vkdevice"
)

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "frameloop",
		Short:        "Render frames into a resizable window",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML or YAML config file")

	load := func() (config.Config, error) {
		if configPath == "" {
			return config.Default(), nil
		}
		return config.Load(configPath)
	}
	root.AddCommand(newRunCmd(load), newConfigCmd(load))
	return root
}

func newConfigCmd(load func() (config.Config, error)) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if asYAML {
				return cfg.EncodeYAML(cmd.OutOrStdout())
			}
			return cfg.EncodeTOML(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print YAML instead of TOML")
	return cmd
}

func newRunCmd(load func() (config.Config, error)) *cobra.Command {
	var (
		frames      uint64
		fpsInterval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the window and run the frame loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			log, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, log, frames, fpsInterval)
		},
	}
	cmd.Flags().Uint64Var(&frames, "frames", 0, "stop after this many frames (0 runs until the window closes)")
	cmd.Flags().DurationVar(&fpsInterval, "fps-interval", 5*time.Second, "how often to log the frame rate")
	return cmd
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger, frames uint64, fpsInterval time.Duration) (err error) {
	if err := window.Init(); err != nil {
		return err
	}
	defer window.Terminate()

	win, err := window.New(cfg.Window, log)
	if err != nil {
		return err
	}
	defer win.Destroy()

	dev, err := vkdevice.New(cfg.Device, win.RequiredInstanceExtensions(), win.CreateSurface, log)
	if err != nil {
		return err
	}
	defer dev.Destroy()

	renderer, err := render.NewRenderer(win, dev,
		render.WithConfig(cfg.Render),
		render.WithLogger(log),
	)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, renderer.Close())
	}()

	renderer.SetOnRebuild(func(sc *render.Swapchain) error {
		win.SetTitle(fmt.Sprintf("%s %dx%d", cfg.Window.Title, sc.Extent().Width, sc.Extent().Height))
		return nil
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	meter := newFPSMeter(fpsInterval, log)
	loop := render.NewLoop(win, renderer, log)
	err = loop.Run(ctx, func(fi render.FrameInfo) error {
		meter.tick(fi.FrameTime)
		if frames > 0 && loop.Frames()+1 >= frames {
			cancel()
		}
		return nil
	})
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info("frameloop exiting", slog.Uint64("frames", loop.Frames()))
	return err
}

// fpsMeter logs the average frame rate once per interval.
type fpsMeter struct {
	log      *slog.Logger
	interval time.Duration
	elapsed  time.Duration
	frames   int
}

func newFPSMeter(interval time.Duration, log *slog.Logger) *fpsMeter {
	return &fpsMeter{log: log, interval: interval}
}

func (m *fpsMeter) tick(dt time.Duration) {
	if m.interval <= 0 {
		return
	}
	m.elapsed += dt
	m.frames++
	if m.elapsed < m.interval {
		return
	}
	m.log.Info("frame rate",
		slog.Float64("fps", float64(m.frames)/m.elapsed.Seconds()),
		slog.Int("frames", m.frames))
	m.elapsed = 0
	m.frames = 0
}
