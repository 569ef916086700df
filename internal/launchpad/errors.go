package launchpad

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is a machine-readable rejection reason.
type Kind string

// Rejection kinds. Every failed precondition maps to exactly one of these.
const (
	KindNotAdmin         Kind = "NotAdmin"
	KindAddressZero      Kind = "AddressZero"
	KindOldAdmin         Kind = "OldAdmin"
	KindPaused           Kind = "Paused"
	KindNotPaused        Kind = "NotPaused"
	KindNotProjectOwner  Kind = "NotProjectOwner"
	KindInvalidProjectID Kind = "InvalidProjectID"

	// Listing
	KindTokenPriceZero           Kind = "TokenPriceMustBeGreaterThanZero"
	KindMinInvestmentZero        Kind = "MinimumInvestmentMustBeGreaterThanZero"
	KindMaxBelowMinInvestment    Kind = "MaxInvestmentMustBeGreaterOrEqualToMinInvestment"
	KindMaxCapBelowMaxInvestment Kind = "MaxCapMustBeGreaterOrEqualToMaxInvestment"
	KindEmptyAddress             Kind = "EmptyAddress"
	KindTokenAlreadyWhitelisted  Kind = "TokenAlreadyWhitelisted"
	KindUserAlreadyWhitelisted   Kind = "UserAlreadyWhitelisted"

	// Investing
	KindNotWhiteListed           Kind = "NotWhiteListed"
	KindContractNotFullyFunded   Kind = "ContractNotFullyFunded"
	KindProjectEnded             Kind = "ProjectEnded"
	KindProjectNotActive         Kind = "ProjectNotActive"
	KindInvestmentBelowMinimum   Kind = "InvestmentAmtBelowMinimum"
	KindInvestmentExceedsMaximum Kind = "InvestmentAmtExceedsMaximum"
	KindMaxCapExceeded           Kind = "MaxCapExceeded"

	// Settlement
	KindProjectStillInProgress Kind = "ProjectStillInProgress"
	KindAlreadyWithdrawn       Kind = "AlreadyWithdrawn"
	KindNothingToClaim         Kind = "NothingToClaim"
	KindAlreadySwept           Kind = "AlreadySwept"
)

// Error is a rejected ledger operation. Args holds the values that caused
// the rejection, keyed by argument name.
type Error struct {
	Kind Kind
	Op   string
	Args map[string]string
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(string(e.Kind))
	if len(e.Args) > 0 {
		keys := make([]string, 0, len(e.Args))
		for k := range e.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + e.Args[k]
		}
		sb.WriteString(" (")
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString(")")
	}
	return sb.String()
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotAdmin                 = &Error{Kind: KindNotAdmin}
	ErrAddressZero              = &Error{Kind: KindAddressZero}
	ErrOldAdmin                 = &Error{Kind: KindOldAdmin}
	ErrPaused                   = &Error{Kind: KindPaused}
	ErrNotPaused                = &Error{Kind: KindNotPaused}
	ErrNotProjectOwner          = &Error{Kind: KindNotProjectOwner}
	ErrInvalidProjectID         = &Error{Kind: KindInvalidProjectID}
	ErrTokenPriceZero           = &Error{Kind: KindTokenPriceZero}
	ErrMinInvestmentZero        = &Error{Kind: KindMinInvestmentZero}
	ErrMaxBelowMinInvestment    = &Error{Kind: KindMaxBelowMinInvestment}
	ErrMaxCapBelowMaxInvestment = &Error{Kind: KindMaxCapBelowMaxInvestment}
	ErrEmptyAddress             = &Error{Kind: KindEmptyAddress}
	ErrTokenAlreadyWhitelisted  = &Error{Kind: KindTokenAlreadyWhitelisted}
	ErrUserAlreadyWhitelisted   = &Error{Kind: KindUserAlreadyWhitelisted}
	ErrNotWhiteListed           = &Error{Kind: KindNotWhiteListed}
	ErrContractNotFullyFunded   = &Error{Kind: KindContractNotFullyFunded}
	ErrProjectEnded             = &Error{Kind: KindProjectEnded}
	ErrProjectNotActive         = &Error{Kind: KindProjectNotActive}
	ErrInvestmentBelowMinimum   = &Error{Kind: KindInvestmentBelowMinimum}
	ErrInvestmentExceedsMaximum = &Error{Kind: KindInvestmentExceedsMaximum}
	ErrMaxCapExceeded           = &Error{Kind: KindMaxCapExceeded}
	ErrProjectStillInProgress   = &Error{Kind: KindProjectStillInProgress}
	ErrAlreadyWithdrawn         = &Error{Kind: KindAlreadyWithdrawn}
	ErrNothingToClaim           = &Error{Kind: KindNothingToClaim}
	ErrAlreadySwept             = &Error{Kind: KindAlreadySwept}
)

// reject builds an *Error from alternating name/value pairs.
func reject(op string, kind Kind, kv ...any) *Error {
	e := &Error{Kind: kind, Op: op}
	if len(kv) > 0 {
		e.Args = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			e.Args[fmt.Sprint(kv[i])] = fmt.Sprint(kv[i+1])
		}
	}
	return e
}
