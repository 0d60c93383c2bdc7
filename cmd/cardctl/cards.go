package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"challenge-cards/internal/catalog"
	"challenge-cards/internal/domain"
	"challenge-cards/internal/filter"
	"challenge-cards/internal/ratingsync"
)

var (
	filterState filter.State
	scorePolicy string
	thresholds  = map[domain.Dimension]*int{}
)

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "List cards matching the filters, with your ratings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := current.catalog()
		if err != nil {
			return err
		}

		state, err := stateFromFlags(cmd)
		if err != nil {
			return err
		}
		engine, err := engineFor(scorePolicy)
		if err != nil {
			return err
		}

		ratings := ratingsync.New(current.session, current.api, ratingsync.WithLogger(current.log))
		if err := ratings.Load(cmd.Context()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "could not load your ratings: %v\n", err)
		}

		visible := engine.Apply(cat.Cards, state)
		if len(visible) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No cards match your current filters")
			return nil
		}
		for _, v := range cat.Views(visible, ratings.Projection().Get) {
			printCard(cmd.OutOrStdout(), v)
		}
		return nil
	},
}

func stateFromFlags(cmd *cobra.Command) (filter.State, error) {
	state := filterState
	for _, d := range domain.Dimensions {
		name := strings.ToLower(string(d))
		if !cmd.Flags().Changed(name) {
			continue
		}
		v := *thresholds[d]
		if v < domain.MinRating || v > domain.MaxRating {
			return filter.State{}, fmt.Errorf("%w: --%s must be between %d and %d", domain.ErrValidation, name, domain.MinRating, domain.MaxRating)
		}
		switch d {
		case domain.DimensionSignificance:
			state.Significance = &v
		case domain.DimensionComplexity:
			state.Complexity = &v
		case domain.DimensionReadiness:
			state.Readiness = &v
		}
	}
	return state, nil
}

func engineFor(policy string) (*filter.Engine, error) {
	switch policy {
	case "", "exclude-equal":
		return filter.NewEngine(), nil
	case "at-least":
		return filter.NewEngine(filter.WithScorePolicy(filter.AtLeast)), nil
	case "at-most":
		return filter.NewEngine(filter.WithScorePolicy(filter.AtMost)), nil
	default:
		return nil, fmt.Errorf("%w: unknown score policy %q", domain.ErrValidation, policy)
	}
}

func stars(n int) string {
	return strings.Repeat("★", n) + strings.Repeat("☆", domain.MaxRating-n)
}

func printCard(w io.Writer, v catalog.CardView) {
	names := make([]string, len(v.Capabilities))
	for i, c := range v.Capabilities {
		names[i] = c.Name
	}
	fmt.Fprintf(w, "#%d %s [%s]\n", v.Card.Number, v.Card.Title, v.SectorClass)
	fmt.Fprintf(w, "    %s\n", v.Card.Description)
	if len(names) > 0 {
		fmt.Fprintf(w, "    capabilities: %s\n", strings.Join(names, ", "))
	}
	for _, d := range domain.Dimensions {
		fmt.Fprintf(w, "    %-12s %s  (card score %d)\n", d, stars(v.Ratings[d]), v.Card.Score(d))
	}
}

func init() {
	f := cardsCmd.Flags()
	f.StringSliceVar(&filterState.Sectors, "sector", nil, "sector text to match (repeatable, ORed)")
	f.StringSliceVar(&filterState.Capabilities, "capability", nil, "capability id to match (repeatable, ORed)")
	f.StringVar(&filterState.GrandChallenge, "grand-challenge", "", "grand challenge tag")
	f.StringVar(&filterState.Search, "search", "", "text to find in title or description")
	f.StringVar(&scorePolicy, "policy", "exclude-equal", "score filter policy: exclude-equal, at-least or at-most")
	for _, d := range domain.Dimensions {
		v := new(int)
		thresholds[d] = v
		f.IntVar(v, strings.ToLower(string(d)), 0, fmt.Sprintf("%s score filter (0-3)", d))
	}

	rootCmd.AddCommand(cardsCmd)
}
