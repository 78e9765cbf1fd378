package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/tripfund-bot/internal/database"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

// ErrDuplicateAccount is returned when a journey's disbursement was already recorded.
var ErrDuplicateAccount = errors.New("loan account already recorded")

const loanAccountColumns = `id, user_id, account_number, journey_id, destination, principal, tenure_months, emi, annual_rate, disbursed_at`

// LoanAccountRepository records disbursed loans.
type LoanAccountRepository struct {
	db database.PGXDB
}

// NewLoanAccountRepository creates a new LoanAccountRepository.
func NewLoanAccountRepository(db database.PGXDB) *LoanAccountRepository {
	return &LoanAccountRepository{db: db}
}

// Create records a disbursement. A second record for the same journey or account number
// returns ErrDuplicateAccount.
func (r *LoanAccountRepository) Create(ctx context.Context, acct *models.LoanAccount) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO loan_accounts (user_id, account_number, journey_id, destination, principal, tenure_months, emi, annual_rate, disbursed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT DO NOTHING
		RETURNING id
	`, acct.UserID, acct.AccountNumber, acct.JourneyID, acct.Destination, acct.Principal,
		acct.TenureMonths, acct.EMI, acct.AnnualRatePercent, acct.DisbursedAt).Scan(&acct.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateAccount
	}
	if err != nil {
		return fmt.Errorf("failed to create loan account: %w", err)
	}
	return nil
}

// GetByAccountNumber returns the loan with the given account number.
func (r *LoanAccountRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*models.LoanAccount, error) {
	acct, err := scanLoanAccount(r.db.QueryRow(ctx, `
		SELECT `+loanAccountColumns+` FROM loan_accounts WHERE account_number = $1
	`, accountNumber))
	if err != nil {
		return nil, fmt.Errorf("failed to get loan account: %w", notFound(err))
	}
	return acct, nil
}

// LatestByUser returns userID's most recent disbursement.
func (r *LoanAccountRepository) LatestByUser(ctx context.Context, userID int64) (*models.LoanAccount, error) {
	acct, err := scanLoanAccount(r.db.QueryRow(ctx, `
		SELECT `+loanAccountColumns+` FROM loan_accounts
		WHERE user_id = $1
		ORDER BY disbursed_at DESC, id DESC
		LIMIT 1
	`, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get latest loan account: %w", notFound(err))
	}
	return acct, nil
}

// ListByUser returns userID's loans, newest first.
func (r *LoanAccountRepository) ListByUser(ctx context.Context, userID int64) ([]models.LoanAccount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+loanAccountColumns+` FROM loan_accounts
		WHERE user_id = $1
		ORDER BY disbursed_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query loan accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.LoanAccount
	for rows.Next() {
		acct, err := scanLoanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan account: %w", err)
		}
		accounts = append(accounts, *acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate loan accounts: %w", err)
	}
	return accounts, nil
}

func scanLoanAccount(row pgx.Row) (*models.LoanAccount, error) {
	var a models.LoanAccount
	err := row.Scan(&a.ID, &a.UserID, &a.AccountNumber, &a.JourneyID, &a.Destination,
		&a.Principal, &a.TenureMonths, &a.EMI, &a.AnnualRatePercent, &a.DisbursedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
