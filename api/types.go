package api

import "github.com/linqining/deck-agent/codec"

// Endpoint paths. chi URL params are written in braces, e.g. {sessionID}.
const (
	PingEndpoint                  = "/ping"
	InitializeEndpoint            = "/deck/initialize"
	PlayersEndpoint               = "/deck/{sessionID}/players"
	AggregateKeyEndpoint          = "/deck/{sessionID}/aggregate-key"
	MaskEndpoint                  = "/deck/{sessionID}/mask"
	ShuffleEndpoint               = "/deck/{sessionID}/shuffle"
	VerifyShuffleEndpoint         = "/deck/{sessionID}/verify-shuffle"
	RevealTokenEndpoint           = "/deck/{sessionID}/players/{playerID}/reveal-token"
	RevealCardsEndpoint           = "/deck/{sessionID}/players/{playerID}/reveal-cards"
	ReceiveAndRevealTokenEndpoint = "/deck/{sessionID}/players/{playerID}/receive-and-reveal-token"
	PeekCardsEndpoint             = "/deck/{sessionID}/players/{playerID}/peek"
)

// --- Initialize ---

// InitializeResponse is returned by GET /deck/initialize. The coordinator
// draws the seed itself and reports it back as seed_hex so a caller wanting
// to reproduce Parameters elsewhere can do so deterministically.
type InitializeResponse struct {
	SessionID   string         `json:"session_id"`
	SeedHex     string         `json:"seed_hex"`
	Parameters  ParametersHex  `json:"parameters"`
	CardMapping map[string]int `json:"card_mapping"` // hex(plaintext) -> card index
}

type ParametersHex struct {
	G    string   `json:"g"`
	Grid []string `json:"grid"`
}

// --- Register player ---

type RegisterPlayerRequest struct {
	PlayerID string `json:"player_id"`
}

type RegisterPlayerResponse struct {
	PlayerID  string                     `json:"player_id"`
	PublicKey string                     `json:"public_key"`
	Proof     codec.KeyOwnershipProofHex `json:"proof"`
}

// --- Aggregate key ---

// AggregateKeyPlayer is one entry of the players[] array presented to
// aggregate-key: the public key and key-ownership proof a player produced
// when it registered, resubmitted here so the coordinator can verify every
// proof and fold the keys into the session's joint key in one call.
type AggregateKeyPlayer struct {
	PlayerID  string                     `json:"player_id"`
	PublicKey string                     `json:"public_key"`
	Proof     codec.KeyOwnershipProofHex `json:"proof"`
}

type AggregateKeyRequest struct {
	Players []AggregateKeyPlayer `json:"players"`
}

type AggregateKeyResponse struct {
	JointKey string `json:"joint_key"`
}

// --- Mask ---

type MaskResponse struct {
	Deck  []codec.MaskedCardHex    `json:"deck"`
	Proof []codec.PedersenProofHex `json:"proof"`
}

// --- Shuffle ---

type ShuffleResponse struct {
	Deck  []codec.MaskedCardHex `json:"deck"`
	Proof ShuffleProofHex       `json:"proof"`
}

type ShuffleRoundHex struct {
	Commitment   string                `json:"commitment"`
	Intermediate []codec.MaskedCardHex `json:"intermediate"`
	Bit          byte                  `json:"bit"`
	Perm         []int                 `json:"perm"`
	Remask       []string              `json:"remask"`
	Blinding     string                `json:"blinding"`
}

type ShuffleProofHex struct {
	Rounds []ShuffleRoundHex `json:"rounds"`
}

// --- Verify shuffle ---

type VerifyShuffleRequest struct {
	InputDeck  []codec.MaskedCardHex `json:"input_deck"`
	OutputDeck []codec.MaskedCardHex `json:"output_deck"`
	Proof      ShuffleProofHex       `json:"proof"`
}

type VerifyShuffleResponse struct {
	Valid bool `json:"valid"`
}

// --- Reveal token / reveal cards / receive-and-reveal ---

type RevealTokenRequest struct {
	CardIndices []int `json:"card_indices"`
}

type RevealTokenEntry struct {
	CardIndex int                  `json:"card_index"`
	Token     codec.RevealTokenHex `json:"token"`
	PublicKey string               `json:"public_key"`
}

type RevealTokenResponse struct {
	Tokens []RevealTokenEntry `json:"tokens"`
}

type ReceiveAndRevealTokenRequest struct {
	ReceivedCards []int `json:"received_cards"`
}

// --- Peek ---

type PeekCardsRequest struct {
	CardIndices  []int                          `json:"card_indices"`
	RevealTokens map[int][]codec.RevealTokenHex `json:"reveal_tokens"` // card_index -> tokens from every player
}

type PeekCardsResponse struct {
	Cards map[int]CardDTO `json:"cards"`
}

type CardDTO struct {
	Suit  string `json:"suit"`
	Value string `json:"value"`
}
