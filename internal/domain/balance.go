package domain

// Balance is the two-pool credit state of one account. Extra credits never
// expire but are spendable only while the subscription is active.
type Balance struct {
	AccountID           string
	SubscriptionCredits int
	ExtraCredits        int
	SubscriptionActive  bool
}

// Total returns the credits currently spendable.
func (b Balance) Total() int {
	if b.SubscriptionActive {
		return b.SubscriptionCredits + b.ExtraCredits
	}
	return b.SubscriptionCredits
}

// DeductReceipt records how a deduction was split across the two pools.
type DeductReceipt struct {
	Deducted         int
	FromSubscription int
	FromExtras       int
	NewBalance       Balance
}
