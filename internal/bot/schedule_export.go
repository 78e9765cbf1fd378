package bot

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	ics "github.com/arran4/golang-ical"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/tripfund-bot/internal/finance"
	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

type exportFormat string

const (
	exportCSV exportFormat = "csv"
	exportICS exportFormat = "ics"
)

const icsProductID = "-//TripFund//Repayment Schedule//EN"

// GenerateScheduleCSV writes the month-by-month repayment plan of a loan.
func GenerateScheduleCSV(acct *models.LoanAccount) ([]byte, error) {
	schedule := finance.Schedule(acct.Principal, acct.TenureMonths, acct.AnnualRatePercent, acct.DisbursedAt)
	if len(schedule) == 0 {
		return nil, fmt.Errorf("no repayment schedule for tenure %d", acct.TenureMonths)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"Installment", "Due Date", "EMI", "Principal", "Interest", "Balance", "Currency"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, inst := range schedule {
		row := []string{
			strconv.Itoa(inst.Number),
			inst.DueDate.Format("2006-01-02"),
			inst.EMI.StringFixed(0),
			inst.Principal.StringFixed(0),
			inst.Interest.StringFixed(0),
			inst.Balance.StringFixed(0),
			models.DefaultCurrency,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// GenerateScheduleICS writes one all-day calendar event per EMI due date.
func GenerateScheduleICS(acct *models.LoanAccount) ([]byte, error) {
	schedule := finance.Schedule(acct.Principal, acct.TenureMonths, acct.AnnualRatePercent, acct.DisbursedAt)
	if len(schedule) == 0 {
		return nil, fmt.Errorf("no repayment schedule for tenure %d", acct.TenureMonths)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)

	masked := logger.MaskAccountNumber(acct.AccountNumber)
	for _, inst := range schedule {
		event := cal.AddEvent(fmt.Sprintf("%s-emi-%d@tripfund", acct.JourneyID, inst.Number))
		event.SetDtStampTime(acct.DisbursedAt)
		event.SetAllDayStartAt(inst.DueDate)
		event.SetAllDayEndAt(inst.DueDate.AddDate(0, 0, 1))
		event.SetSummary(fmt.Sprintf("Travel loan EMI %d/%d: %s", inst.Number, len(schedule), formatINR(inst.EMI)))
		event.SetDescription(fmt.Sprintf("Loan %s for %s. Principal %s, interest %s, balance after payment %s.",
			masked, acct.Destination,
			formatINR(inst.Principal), formatINR(inst.Interest), formatINR(inst.Balance)))
	}

	return []byte(cal.Serialize()), nil
}

// sendSchedule uploads the repayment schedule in the given format.
func (b *Bot) sendSchedule(ctx context.Context, tg TelegramAPI, chatID int64, acct *models.LoanAccount, format exportFormat) {
	var (
		data    []byte
		err     error
		caption string
	)
	switch format {
	case exportICS:
		data, err = GenerateScheduleICS(acct)
		caption = "📅 Import this file to get a reminder before every EMI."
	default:
		data, err = GenerateScheduleCSV(acct)
		caption = fmt.Sprintf("📄 Repayment schedule: %d EMIs of %s", acct.TenureMonths, formatINR(acct.EMI))
	}
	if err != nil {
		logger.Log.Error().Err(err).Str("format", string(format)).Msg("Failed to generate repayment schedule")
		sendHTML(ctx, tg, chatID, "❌ Failed to generate your repayment schedule.")
		return
	}

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &tgmodels.InputFileUpload{
			Filename: scheduleFilename(acct, format),
			Data:     bytes.NewReader(data),
		},
		Caption: caption,
	})
	if err != nil {
		logger.Log.Error().Err(err).Str("format", string(format)).Msg("Failed to send repayment schedule")
	}
}

// scheduleFilename creates names like "emi_schedule_2026-03-01.csv".
func scheduleFilename(acct *models.LoanAccount, format exportFormat) string {
	return fmt.Sprintf("emi_schedule_%s.%s", acct.DisbursedAt.Format("2006-01-02"), format)
}
