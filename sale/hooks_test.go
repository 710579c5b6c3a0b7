package sale

// NewLedgerFrom exposes newLedgerFrom to the external tests.
var NewLedgerFrom = newLedgerFrom
