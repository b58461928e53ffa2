package lobby

// Variant identifies which poker game a Lobby plays.
type Variant int

const (
	NotSet Variant = iota
	FiveCardDraw
	SevenCardStud
	TexasHoldEm
)

func (v Variant) String() string {
	switch v {
	case FiveCardDraw:
		return "FIVE_CARD_DRAW"
	case SevenCardStud:
		return "SEVEN_CARD_STUD"
	case TexasHoldEm:
		return "TEXAS_HOLD_EM"
	default:
		return "NOT_SET"
	}
}

// MaxSeats returns the variant's fixed seat cap.
func (v Variant) MaxSeats() int {
	switch v {
	case FiveCardDraw:
		return 5
	case SevenCardStud:
		return 7
	case TexasHoldEm:
		return 10
	default:
		return 5
	}
}

// GameState is the per-round phase enum. Five Card Draw's first and
// second betting rounds, Stud's repeated rounds, and Hold'em's four
// streets are all represented by the single BettingRound value,
// distinguished at runtime by Lobby.BettingRoundCounter — letting every
// variant share one generic per-seat step function instead of each
// needing its own phase value per betting round.
type GameState int

const (
	Joinable GameState = iota
	GameLobbyFull
	StartOfRound
	Ante
	BringIn
	Blinds
	DealCards
	BettingRound
	Draw
	Showdown
	UpdateStore
)

func (g GameState) String() string {
	switch g {
	case Joinable:
		return "JOINABLE"
	case GameLobbyFull:
		return "GAME_LOBBY_FULL"
	case StartOfRound:
		return "START_OF_ROUND"
	case Ante:
		return "ANTE"
	case BringIn:
		return "BRING_IN"
	case Blinds:
		return "SMALL_AND_BIG_BLIND"
	case DealCards:
		return "DEAL_CARDS"
	case BettingRound:
		return "BETTING_ROUND"
	case Draw:
		return "DRAW"
	case Showdown:
		return "SHOWDOWN"
	case UpdateStore:
		return "UPDATE_STORE"
	default:
		return "UNKNOWN"
	}
}

// Game constants.
const (
	Ante10           = 10
	BringIn15        = 15
	SmallBlind5      = 5
	BigBlind10       = 10
	InitialWallet    = 1000
)
