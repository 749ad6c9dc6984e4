package fomolt

// Custom error codes start at anchorErrorOffset and follow the program's
// error enum order.
const anchorErrorOffset = 6000

type programError struct {
	Name string
	Msg  string
}

var programErrors = []programError{
	{"GameNotActive", "Game round is not active"},
	{"GameStillActive", "Game round is still active"},
	{"TimerExpired", "Timer has expired"},
	{"TimerNotExpired", "Timer has not expired yet"},
	{"InsufficientFunds", "Insufficient funds for purchase"},
	{"NoKeysToBuy", "Must buy at least one key"},
	{"NothingToClaim", "Nothing to claim"},
	{"NotWinner", "Only the last buyer can claim the winner prize"},
	{"WinnerAlreadyClaimed", "Winner prize has already been claimed"},
	{"WinnerNotClaimed", "Winner has not claimed prize yet"},
	{"CannotReferSelf", "Cannot refer yourself"},
	{"ReferrerMismatch", "Referrer does not match stored referrer"},
	{"ReferrerNotRegistered", "Referrer is not registered in this round"},
	{"NoReferralEarnings", "No referral earnings to claim"},
	{"Unauthorized", "Unauthorized: admin only"},
	{"InvalidConfig", "Invalid configuration parameters"},
	{"Overflow", "Arithmetic overflow"},
	{"PlayerAlreadyRegistered", "Player is already registered in this round"},
	{"MustClaimPreviousRound", "Must claim previous round before joining a new one"},
	{"PlayerNotInRound", "Player is not in this round"},
}

// ErrorDecoder maps fomolt3d custom error codes to their names and
// messages. It satisfies txengine.ErrorDecoder.
type ErrorDecoder struct{}

func NewErrorDecoder() *ErrorDecoder { return &ErrorDecoder{} }

func (d *ErrorDecoder) Decode(code uint64) (string, bool) {
	if code < anchorErrorOffset || code >= anchorErrorOffset+uint64(len(programErrors)) {
		return "", false
	}
	entry := programErrors[code-anchorErrorOffset]
	return entry.Name + ": " + entry.Msg, true
}
