package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"academy_site/internal/adapters/terminal"
	"academy_site/internal/catalog"
	"academy_site/internal/domain"
	"academy_site/internal/marquee"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		sourceFlag    string
		fps           int
		reducedMotion bool
		plain         bool
		logOutput     string
	)
	flagSet := pflag.NewFlagSet("marquee", pflag.ContinueOnError)
	flagSet.StringVar(&sourceFlag, "source", string(domain.DefaultSource), "review platform tab: Google, Sulekha or Justdial")
	flagSet.IntVar(&fps, "fps", 30, "animation frames per second")
	flagSet.BoolVar(&reducedMotion, "reduced-motion", false, "start with the animation off")
	flagSet.BoolVar(&plain, "plain", false, "no full-screen UI: print one status line per frame, read tab 1-3, p(ause), u(npause), r, q from stdin")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	src, err := domain.ParseSource(sourceFlag)
	if err != nil {
		return err
	}
	if fps < 1 || fps > 240 {
		return fmt.Errorf("--fps must be between 1 and 240, got %d", fps)
	}

	// the alt screen owns stdout; logs go to a file or nowhere
	var out io.Writer = io.Discard
	if logOutput != "" {
		f, err := os.OpenFile(logOutput, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log output: %w", err)
		}
		defer f.Close()
		out = f
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("service", "academy_site").Str("cmd", "marquee").Logger()

	if plain {
		return runPlain(src, fps, reducedMotion)
	}

	model := terminal.New(catalog.All(), src, reducedMotion, terminal.WithFPS(fps))
	log.Info().Str("source", string(src)).Int("fps", fps).Bool("reduced_motion", reducedMotion).Msg("marquee preview starting")

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseAllMotion())
	_, err = program.Run()
	return err
}

// runPlain drives the marquee headless: frames and stdin commands are
// serialized through a marquee.Driver, and each frame rewrites one line.
func runPlain(src domain.Source, fps int, reducedMotion bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := marquee.New(catalog.All(), marquee.WithReducedMotion(reducedMotion))
	m.SelectTab(src)
	d := marquee.NewDriver(m)

	frames, stopFrames := marquee.FrameTicker(fps)
	defer stopFrames()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		sources := domain.Sources()
		for sc.Scan() {
			var fn func(*marquee.Marquee)
			switch cmd := strings.TrimSpace(sc.Text()); cmd {
			case "1", "2", "3":
				s := sources[int(cmd[0]-'1')]
				fn = func(m *marquee.Marquee) { m.SelectTab(s) }
			case "p":
				fn = func(m *marquee.Marquee) { m.Enter("track") }
			case "u":
				fn = func(m *marquee.Marquee) { m.LeaveAll() }
			case "r":
				fn = func(m *marquee.Marquee) { m.SetReducedMotion(!m.ReducedMotion()) }
			case "q":
				cancel()
				return
			}
			if fn != nil {
				if err := d.Do(ctx, fn); err != nil {
					return
				}
			}
		}
	}()

	err := d.Run(ctx, frames, func(s marquee.Snapshot) {
		fmt.Printf("\r%-8s %-7s offset %8.1f / %6.1f px  %3.0f px/s  %2d cards ",
			s.Source, s.State, s.Offset, s.HalfWidth, s.Speed, s.Cards)
	})
	fmt.Println()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
