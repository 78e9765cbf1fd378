package journey

import (
	"fmt"

	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

// AcceptTerms records acceptance of the loan terms and moves to e-sign.
func (j *Journey) AcceptTerms() error {
	return j.transition("accept terms", func() error {
		if err := j.readyCompliance(StepTerms); err != nil {
			return err
		}
		j.compliance.TermsAccepted = true
		j.complianceStep = StepAadhaar
		j.logState("Terms accepted")
		return nil
	})
}

// SendOTP starts the simulated e-sign: delivery, auto-fill, then verification, each after
// its own delay. The journey moves to the mandate step once verified. Other transitions
// are rejected with ErrBusy until then; Dismiss still works.
func (j *Journey) SendOTP() error {
	return j.transition("send otp", func() error {
		if err := j.readyCompliance(StepAadhaar); err != nil {
			return err
		}
		if j.compliance.OTPStage != models.OTPStageIdle {
			return fmt.Errorf("%w: otp already requested", ErrWrongPhase)
		}
		j.compliance.OTPStage = models.OTPStageSending
		j.logState("OTP requested")

		token := j.beginPending()
		j.schedule(token, j.policy.OTPDeliveryDelay, func() {
			j.compliance.OTPSent = true
			j.compliance.OTPStage = models.OTPStageAutofilling
			j.log.Debug().Msg("OTP delivered")

			j.schedule(token, j.policy.OTPAutofillDelay, func() {
				j.compliance.OTP = j.newOTP()
				j.compliance.OTPStage = models.OTPStageVerifying
				j.log.Debug().Msg("OTP auto-filled")

				j.schedule(token, j.policy.OTPVerifyDelay, func() {
					j.compliance.OTPVerified = true
					j.compliance.OTPStage = models.OTPStageVerified
					j.complianceStep = StepENach
					j.pending = 0
					j.logState("OTP verified")
				})
			})
		})
		return nil
	})
}

// ConfirmMandate authorizes auto-debit and disburses the loan.
func (j *Journey) ConfirmMandate() error {
	return j.transition("confirm mandate", func() error {
		if err := j.readyCompliance(StepENach); err != nil {
			return err
		}
		j.compliance.MandateConfirmed = true
		j.completeDisbursement()
		return nil
	})
}

// completeDisbursement is the terminal transition. Caller holds the lock.
func (j *Journey) completeDisbursement() {
	if j.accountNumber == "" {
		j.accountNumber = j.newAccountNumber()
	}
	j.disbursed = true
	j.enterPhase(PhaseDisbursement)
	j.cancel()

	event := models.CompletionEvent{
		JourneyID:         j.id,
		Principal:         j.offer.Principal,
		TenureMonths:      j.offer.TenureMonths,
		EMI:               j.terms.EMI,
		AnnualRatePercent: j.offer.AnnualRatePercent,
		AccountNumber:     j.accountNumber,
		Destination:       j.spec.Destination,
		DisbursedAt:       j.now(),
	}
	j.log.Info().
		Str("account", logger.MaskAccountNumber(j.accountNumber)).
		Str("principal", event.Principal.String()).
		Msg("Loan disbursed")

	if j.onComplete != nil {
		j.outbox = append(j.outbox, func() { j.onComplete(event) })
	}
}
