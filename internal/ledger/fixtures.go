package ledger

import (
	"time"

	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

// DevelopmentAccount is the balance the development server starts with.
var DevelopmentAccount = Account{
	AvailableBalance: 500_000,
	PendingBalance:   25_000,
	Currency:         dto.CurrencyGBP,
}

type fixture struct {
	id          string
	kind        dto.ActivityType
	amount      int64
	description string
}

var baseFixtures = []fixture{
	{"act_001", dto.ActivityDeposit, 150_000, "Payment from Customer ABC"},
	{"act_002", dto.ActivityPayout, -50_000, "Payout to Bank Account ****1234"},
	{"act_003", dto.ActivityDeposit, 230_000, "Payment from Customer XYZ"},
	{"act_004", dto.ActivityFee, -2_500, "Monthly service fee"},
	{"act_005", dto.ActivityPayout, -120_000, "Payout to Bank Account ****5678"},
	{"act_006", dto.ActivityDeposit, 80_000, "Payment from Customer DEF"},
	{"act_007", dto.ActivityRefund, -15_000, "Refund to Customer GHI"},
	{"act_008", dto.ActivityDeposit, 320_000, "Payment from Customer JKL"},
	{"act_009", dto.ActivityPayout, -75_000, "Payout to Bank Account ****9012"},
	{"act_010", dto.ActivityDeposit, 95_000, "Payment from Customer MNO"},
	{"act_011", dto.ActivityFee, -1_500, "Transaction fee"},
	{"act_012", dto.ActivityPayout, -30_000, "Payout to Bank Account ****3456"},
	{"act_013", dto.ActivityDeposit, 180_000, "Payment from Customer PQR"},
	{"act_014", dto.ActivityDeposit, 110_000, "Payment from Customer STU"},
	{"act_015", dto.ActivityPayout, -60_000, "Payout to Bank Account ****7890"},
}

// Fixtures returns the development activity feed: one settled entry per day
// going back from now.
func Fixtures(now time.Time, currency dto.Currency) []dto.ActivityItem {
	items := make([]dto.ActivityItem, 0, len(baseFixtures))
	for i, f := range baseFixtures {
		items = append(items, dto.ActivityItem{
			ID:          f.id,
			Type:        f.kind,
			Amount:      f.amount,
			Currency:    currency,
			Date:        now.Add(-time.Duration(i+1) * 24 * time.Hour).UTC(),
			Description: f.description,
			Status:      dto.ActivityCompleted,
		})
	}
	return items
}
