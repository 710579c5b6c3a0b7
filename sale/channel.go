package sale

import "fmt"

// =============================================================================
// CHANNEL & FEE
// =============================================================================

// Fee is a rational multiplier: an online sale of x cents is charged
// x * Numerator / Denominator.
type Fee struct {
	Numerator   int64
	Denominator int64
}

// NoFee charges the original price.
var NoFee = Fee{Numerator: 1, Denominator: 1}

func (f Fee) Valid() bool { return f.Numerator > 0 && f.Denominator > 0 }

func (f Fee) String() string { return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator) }

type ChannelKind int

const (
	ChannelOffline ChannelKind = iota
	ChannelOnline
)

func (k ChannelKind) String() string {
	if k == ChannelOnline {
		return "online"
	}
	return "offline"
}

// Channel is where a sale happened. Only online sales carry a fee.
type Channel struct {
	Kind ChannelKind
	Fee  Fee
}

func Online(fee Fee) Channel { return Channel{Kind: ChannelOnline, Fee: fee} }
func Offline() Channel       { return Channel{Kind: ChannelOffline} }

func (c Channel) IsOnline() bool { return c.Kind == ChannelOnline }

// ApplyFee returns what the buyer pays for a price of cents.
func (c Channel) ApplyFee(cents int64) int64 {
	if c.IsOnline() {
		return cents * c.Fee.Numerator / c.Fee.Denominator
	}
	return cents
}

// UndoFee returns the original price of a paid amount (integer division).
func (c Channel) UndoFee(cents int64) int64 {
	if c.IsOnline() {
		return cents * c.Fee.Denominator / c.Fee.Numerator
	}
	return cents
}
