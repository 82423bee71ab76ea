package types //nolint:revive // types is a common Go package naming convention

// Version is the canonical project version.
// The decoder frame contract and the delivery notification payload share it.
const Version = "0.3.0"

// ContractVersion is stamped on outbound delivery notifications.
const ContractVersion = Version
