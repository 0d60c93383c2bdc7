package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"challenge-cards/internal/domain"
	"challenge-cards/internal/ratingsync"
)

// printRenderer reports rating changes on the terminal.
type printRenderer struct {
	out io.Writer
}

func (r printRenderer) RatingChanged(card string, dim domain.Dimension, value int) {
	fmt.Fprintf(r.out, "%s %s: %s\n", card, dim, stars(value))
}

func (r printRenderer) RatingFailed(card string, dim domain.Dimension, restored int, err error) {
	fmt.Fprintf(r.out, "failed to save rating (%v); %s %s back to %s\n", err, card, dim, stars(restored))
}

func (r printRenderer) RatingSaved(_ string, dim domain.Dimension, _ int) {
	fmt.Fprintf(r.out, "✓ %s rating saved\n", dim)
}

var rateCmd = &cobra.Command{
	Use:   "rate <card title> <dimension> <stars>",
	Short: "Rate a card; repeating the current rating clears it",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := current.catalog()
		if err != nil {
			return err
		}
		card, ok := cat.Card(args[0])
		if !ok {
			return fmt.Errorf("%w: no card titled %q", domain.ErrNotFound, args[0])
		}
		dim, err := domain.ParseDimension(args[1])
		if err != nil {
			return err
		}
		value, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("%w: stars must be a number", domain.ErrValidation)
		}

		ratings := ratingsync.New(current.session, current.api,
			ratingsync.WithRenderer(printRenderer{out: cmd.OutOrStdout()}),
			ratingsync.WithLogger(current.log))
		if err := ratings.Load(cmd.Context()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "could not load your ratings: %v\n", err)
		}

		m, err := ratings.SetRating(cmd.Context(), card.Title, dim, value)
		if err != nil {
			return err
		}
		waitErr := m.Wait(cmd.Context())
		ratings.Wait()
		if waitErr != nil {
			return waitErr
		}
		if !current.session.IsAuthenticated() {
			fmt.Fprintln(cmd.OutOrStdout(), "not signed in: rating kept for this run only")
		}
		return nil
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show how much of the catalog you have rated",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := current.catalog()
		if err != nil {
			return err
		}
		ratings := ratingsync.New(current.session, current.api, ratingsync.WithLogger(current.log))
		if err := ratings.Load(cmd.Context()); err != nil {
			return err
		}

		p := ratings.Projection().Progress(len(cat.Cards))
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Rated %d of %d cards (%d%%)\n", p.RatedCards, p.TotalCards, p.Percent)
		for _, d := range domain.Dimensions {
			fmt.Fprintf(out, "  %-12s %d\n", d, p.ByDimension[d])
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export your ratings to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, ok := current.session.Token()
		if !ok {
			return fmt.Errorf("%w: sign in first", domain.ErrUnauthorized)
		}
		res, err := current.api.Export(cmd.Context(), token)
		if err != nil {
			if isAuthError(err) {
				_ = current.session.Expire(cmd.Context())
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\nDownload (15 min): %s\n", res.Location, res.URL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rateCmd, progressCmd, exportCmd)
}
