// Command scratchcard plays a ParcelAce scratch card in the terminal.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fairyhunter13/parcelace-scratch/internal/model"
	"github.com/fairyhunter13/parcelace-scratch/internal/scratch"
	"github.com/fairyhunter13/parcelace-scratch/internal/terminal"
	"github.com/fairyhunter13/parcelace-scratch/internal/validator"
)

type options struct {
	columns    int
	code       string
	validUntil string
	threshold  float64
	seed       uint64
	verbose    bool
}

// runner starts the Bubble Tea program; tests replace it.
type runner func(m tea.Model) error

func runProgram(m tea.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}

func newRootCmd(run runner) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "scratchcard",
		Short: "Scratch a ParcelAce reward card in the terminal",
		Long: `Renders a scratch card in the terminal. Drag with the mouse to scratch
the coating; once enough of it is gone the promo code is revealed.

Example:
  scratchcard --code ACE15 --valid-until 2025-12-31`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildModel(opts)
			if err != nil {
				return err
			}
			return run(m)
		},
	}

	cmd.Flags().IntVarP(&opts.columns, "width", "w", terminal.DefaultColumns, "Card width in terminal cells")
	cmd.Flags().StringVar(&opts.code, "code", "", "Promo code under the coating (default PARCEL20)")
	cmd.Flags().StringVar(&opts.validUntil, "valid-until", "", "Expiry date of the promo code, e.g. 2025-12-31")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", scratch.DefaultSettings().Threshold, "Scratched share that reveals the code")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "Seed for the coating speckles (default: time based)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	return cmd
}

func buildModel(opts *options) (*terminal.Model, error) {
	if opts.columns < 1 || opts.columns > 512 {
		return nil, fmt.Errorf("width must be between 1 and 512 cells, got %d", opts.columns)
	}
	if opts.threshold <= 0 || opts.threshold > 1 {
		return nil, fmt.Errorf("threshold must be in (0, 1], got %v", opts.threshold)
	}

	var offer *model.RewardOffer
	if code := strings.TrimSpace(opts.code); code != "" {
		if err := validator.New().Var(code, "promocode"); err != nil {
			return nil, fmt.Errorf("invalid promo code %q: use 3-32 upper-case letters, digits, '-' or '_'", code)
		}
		offer = &model.RewardOffer{DiscountCode: code, ValidUntil: opts.validUntil}
	} else if opts.validUntil != "" {
		offer = &model.RewardOffer{ValidUntil: opts.validUntil}
	}

	settings := scratch.DefaultSettings()
	settings.Threshold = opts.threshold

	seed := opts.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	log.Debug().
		Int("columns", opts.columns).
		Float64("threshold", settings.Threshold).
		Bool("custom_code", offer != nil && offer.DiscountCode != "").
		Msg("starting scratch card")

	return terminal.New(terminal.Options{
		Columns:   opts.columns,
		Offer:     offer,
		Settings:  settings,
		Seed:      seed,
		Clipboard: terminal.SystemClipboard{},
	}), nil
}

func main() {
	if err := newRootCmd(runProgram).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
