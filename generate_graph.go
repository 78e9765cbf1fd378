//go:build ignore
// +build ignore

package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/tripfund-bot/internal/bot"
	"gitlab.com/yelinaung/tripfund-bot/internal/catalog"
	"gitlab.com/yelinaung/tripfund-bot/internal/finance"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

func main() {
	spec := models.TripSpecification{
		Destination:   "Japan",
		TravelerCount: 2,
		Days:          7,
		Cities:        []string{"Tokyo", "Kyoto"},
		Interests:     []string{models.InterestFood},
	}
	trip := finance.Estimate(spec, catalog.New(nil).Lookup(spec.Destination))
	gap := finance.Analyze(trip.EstimatedCost, decimal.NewFromInt(240000))

	write("trip_cost.png", func() ([]byte, error) { return bot.GenerateCostChart(trip) })
	write("trip_funding.png", func() ([]byte, error) { return bot.GenerateGapChart(gap) })
}

func write(name string, render func() ([]byte, error)) {
	data, err := render()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(name, data, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Created %s\n", name)
}
