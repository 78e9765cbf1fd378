package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-analyze/charts"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

var errNothingToChart = errors.New("nothing to chart")

// GenerateCostChart creates a pie chart of the trip's cost components.
// Returns PNG image as bytes.
func GenerateCostChart(trip models.TripDetails) ([]byte, error) {
	parts := []struct {
		name   string
		amount decimal.Decimal
	}{
		{"Flights", trip.Breakdown.Flights},
		{"Hotels", trip.Breakdown.Hotels},
		{"Activities", trip.Breakdown.Activities},
		{"Food", trip.Breakdown.Food},
		{"Visa", trip.Breakdown.Visa},
	}

	var values []float64
	var names []string
	for _, p := range parts {
		if !p.amount.IsPositive() {
			continue
		}
		values = append(values, p.amount.InexactFloat64())
		names = append(names, p.name)
	}

	return renderPie(values, names, fmt.Sprintf("%s trip: %s", trip.Destination, formatINR(trip.EstimatedCost)))
}

// GenerateGapChart creates a pie chart of what savings cover against the loan.
func GenerateGapChart(gap models.GapAnalysis) ([]byte, error) {
	var values []float64
	var names []string
	if gap.CoveredAmount.IsPositive() {
		values = append(values, gap.CoveredAmount.InexactFloat64())
		names = append(names, "Savings")
	}
	if gap.ShortfallAmount.IsPositive() {
		values = append(values, gap.ShortfallAmount.InexactFloat64())
		names = append(names, "Travel loan")
	}
	return renderPie(values, names, "How the trip is funded")
}

func renderPie(values []float64, names []string, title string) ([]byte, error) {
	if len(values) == 0 {
		return nil, errNothingToChart
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{
			Text: title,
		}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return buf, nil
}

// sendTripCharts uploads the cost and funding charts for the analyzed trip.
func (b *Bot) sendTripCharts(ctx context.Context, tg TelegramAPI, chatID int64, trip *models.TripDetails, gap *models.GapAnalysis) {
	if trip == nil || gap == nil {
		return
	}
	_, _ = tg.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: tgmodels.ChatActionUploadPhoto})

	outputs := []struct {
		filename string
		render   func() ([]byte, error)
	}{
		{"trip_cost.png", func() ([]byte, error) { return GenerateCostChart(*trip) }},
		{"trip_funding.png", func() ([]byte, error) { return GenerateGapChart(*gap) }},
	}
	for _, c := range outputs {
		data, err := c.render()
		if err != nil {
			logger.Log.Error().Err(err).Str("chart", c.filename).Msg("Failed to generate chart")
			continue
		}
		_, err = tg.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID: chatID,
			Photo: &tgmodels.InputFileUpload{
				Filename: c.filename,
				Data:     bytes.NewReader(data),
			},
		})
		if err != nil {
			logger.Log.Error().Err(err).Str("chart", c.filename).Msg("Failed to send chart")
		}
	}
}
