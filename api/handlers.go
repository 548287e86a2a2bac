package api

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linqining/deck-agent/cards"
	"github.com/linqining/deck-agent/codec"
	"github.com/linqining/deck-agent/log"
	"github.com/linqining/deck-agent/protocol"
	"github.com/linqining/deck-agent/session"
	"github.com/linqining/deck-agent/userdb"
)

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (a *API) sessionFromURL(r *http.Request) (*session.Session, *Error) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := a.sessions.Get(sessionID)
	if err != nil {
		e := ErrSessionNotFound.WithErr(err)
		return nil, &e
	}
	return sess, nil
}

// initialize handles GET /deck/initialize: draws a fresh random seed,
// deterministically derives Parameters from it (Setup), draws a fresh
// process-random card_mapping (Initialize), and creates a new session. The
// seed is reported back as seed_hex so a caller can reproduce Parameters
// independently later.
func (a *API) initialize(w http.ResponseWriter, r *http.Request) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		ErrGenericError.WithErr(err).Write(w)
		return
	}

	params := protocol.Setup(seed)
	mapping, err := protocol.Initialize()
	if err != nil {
		ErrGenericError.WithErr(err).Write(w)
		return
	}

	sess, err := a.sessions.Create(params, mapping)
	if err != nil {
		ErrGenericError.WithErr(err).Write(w)
		return
	}

	grid := make([]string, len(params.Grid))
	for i, g := range params.Grid {
		grid[i] = codec.EncodePoint(g)
	}
	cardMapping := make(map[string]int, len(mapping.ToCard))
	for k, v := range mapping.ToCard {
		cardMapping[codec.EncodeHex([]byte(k))] = v
	}

	httpWriteJSON(w, http.StatusCreated, InitializeResponse{
		SessionID: sess.ID,
		SeedHex:   codec.EncodeHex(seed[:]),
		Parameters: ParametersHex{
			G:    codec.EncodePoint(params.G),
			Grid: grid,
		},
		CardMapping: cardMapping,
	})
}

// registerPlayer handles POST /deck/{sessionID}/players: generates a fresh
// keypair + key-ownership proof for player_id and registers it in the
// session.
func (a *API) registerPlayer(w http.ResponseWriter, r *http.Request) {
	sess, apiErr := a.sessionFromURL(r)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}

	var req RegisterPlayerRequest
	if err := decodeBody(r, &req); err != nil {
		ErrSerializationError.WithErr(err).Write(w)
		return
	}
	if req.PlayerID == "" {
		ErrMissingFields.Withf("player_id is required").Write(w)
		return
	}

	key, err := protocol.GenerateKey(req.PlayerID)
	if err != nil {
		ErrGenericError.WithErr(err).Write(w)
		return
	}
	if _, err := sess.AddPlayer(key); err != nil {
		ErrGenericError.WithErr(err).Write(w)
		return
	}

	// Record the account behind this session's player in the out-of-core
	// user-account collaborator (spec.md §6's "connection URI and database
	// name for the user-account collaborator"). The crypto core above has
	// already succeeded regardless of this bookkeeping.
	account := userdb.User{
		UserID:     sess.ID + ":" + key.PlayerID,
		GameUserID: key.PlayerID,
		PublicKey:  codec.EncodePoint(key.PK),
	}
	if err := a.users.Create(r.Context(), account); err != nil {
		log.Warnw("failed to record user account", "session", sess.ID, "player_id", key.PlayerID, "error", err)
	}

	httpWriteJSON(w, http.StatusCreated, RegisterPlayerResponse{
		PlayerID:  key.PlayerID,
		PublicKey: codec.EncodePoint(key.PK),
		Proof:     codec.EncodeKeyOwnershipProof(key.Proof),
	})
}

// aggregateKey handles POST /deck/{sessionID}/aggregate-key: verifies every
// submitted player's key-ownership proof and folds their public keys into
// the session's joint key. The players[] array is grounded on
// original_source's ComputeAggregateKeyRequest: callers resubmit the
// player_id/public_key/proof every registered player received from
// registerPlayer, rather than the coordinator trusting its own session
// bookkeeping.
func (a *API) aggregateKey(w http.ResponseWriter, r *http.Request) {
	sess, apiErr := a.sessionFromURL(r)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}

	var req AggregateKeyRequest
	if err := decodeBody(r, &req); err != nil {
		ErrSerializationError.WithErr(err).Write(w)
		return
	}
	if len(req.Players) == 0 {
		ErrMissingFields.Withf("players is required").Write(w)
		return
	}

	players := make([]protocol.PlayerKey, len(req.Players))
	for i, p := range req.Players {
		if p.PlayerID == "" {
			ErrMissingFields.Withf("players[%d].player_id is required", i).Write(w)
			return
		}
		pk, err := codec.DecodePoint(p.PublicKey)
		if err != nil {
			ErrInvalidPublicKey.WithErr(err).Write(w)
			return
		}
		proof, err := codec.DecodeKeyOwnershipProof(p.Proof)
		if err != nil {
			ErrInvalidProof.WithErr(err).Write(w)
			return
		}
		players[i] = protocol.PlayerKey{PlayerID: p.PlayerID, PK: pk, Proof: proof}
	}

	jointKey, err := protocol.AggregateKey(players)
	if err != nil {
		ErrInvalidProof.WithErr(err).Write(w)
		return
	}
	sess.SetJointKey(jointKey)

	httpWriteJSON(w, http.StatusCreated, AggregateKeyResponse{JointKey: codec.EncodePoint(jointKey)})
}

// mask handles POST /deck/{sessionID}/mask: masks every card of the
// session's card_mapping under the joint key, producing the session's
// initial masked deck.
func (a *API) mask(w http.ResponseWriter, r *http.Request) {
	sess, apiErr := a.sessionFromURL(r)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}

	jointKey, ok := sess.JointKey()
	if !ok {
		ErrMissingFields.Withf("aggregate key has not been computed for this session").Write(w)
		return
	}

	var deck [protocol.DeckSize]protocol.MaskedCard
	proofs := make([]codec.PedersenProofHex, protocol.DeckSize)
	for i := range protocol.DeckSize {
		plaintext, err := sess.Mapping.Point(i)
		if err != nil {
			ErrGenericError.WithErr(err).Write(w)
			return
		}
		masked, proof, err := protocol.Mask(jointKey, plaintext)
		if err != nil {
			ErrGenericError.WithErr(err).Write(w)
			return
		}
		deck[i] = masked
		proofs[i] = codec.EncodeMaskingProof(proof)
	}
	sess.SetDeck(deck)

	httpWriteJSON(w, http.StatusCreated, MaskResponse{Deck: encodeDeck(deck), Proof: proofs})
}

// shuffle handles POST /deck/{sessionID}/shuffle: draws a fresh random
// permutation and remasking, shuffles the session's current deck under it,
// proves the shuffle, and replaces the session's deck with the result.
func (a *API) shuffle(w http.ResponseWriter, r *http.Request) {
	sess, apiErr := a.sessionFromURL(r)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	jointKey, ok := sess.JointKey()
	if !ok {
		ErrMissingFields.Withf("aggregate key has not been computed for this session").Write(w)
		return
	}

	perm, err := protocol.RandomPermutationForShuffle()
	if err != nil {
		ErrGenericError.WithErr(err).Write(w)
		return
	}
	remask, err := protocol.RandomRemaskVectorForShuffle()
	if err != nil {
		ErrGenericError.WithErr(err).Write(w)
		return
	}

	current := sess.CurrentDeck()
	shuffled, proof, err := protocol.Shuffle(sess.Params, jointKey, current, perm, remask)
	if err != nil {
		ErrGenericError.WithErr(err).Write(w)
		return
	}
	sess.SetDeck(shuffled)

	httpWriteJSON(w, http.StatusCreated, ShuffleResponse{
		Deck:  encodeDeck(shuffled),
		Proof: encodeShuffleProof(proof),
	})
}

// verifyShuffle handles POST /deck/{sessionID}/verify-shuffle: a pure check
// of whether output_deck is a valid shuffle of input_deck under the
// session's joint key. A rejected proof is answered with InvalidProof.
func (a *API) verifyShuffle(w http.ResponseWriter, r *http.Request) {
	sess, apiErr := a.sessionFromURL(r)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	jointKey, ok := sess.JointKey()
	if !ok {
		ErrMissingFields.Withf("aggregate key has not been computed for this session").Write(w)
		return
	}

	var req VerifyShuffleRequest
	if err := decodeBody(r, &req); err != nil {
		ErrSerializationError.WithErr(err).Write(w)
		return
	}

	d1, err := decodeDeck(req.InputDeck)
	if err != nil {
		ErrInvalidCard.WithErr(err).Write(w)
		return
	}
	d2, err := decodeDeck(req.OutputDeck)
	if err != nil {
		ErrInvalidCard.WithErr(err).Write(w)
		return
	}
	proof, err := decodeShuffleProof(req.Proof)
	if err != nil {
		ErrInvalidProof.WithErr(err).Write(w)
		return
	}

	valid, err := protocol.VerifyShuffle(sess.Params, jointKey, d1, d2, proof)
	if err != nil {
		ErrInvalidProof.WithErr(err).Write(w)
		return
	}
	if !valid {
		ErrInvalidProof.Withf("shuffle proof rejected").Write(w)
		return
	}

	httpWriteJSON(w, http.StatusOK, VerifyShuffleResponse{Valid: valid})
}

// revealToken handles POST /deck/{sessionID}/players/{playerID}/reveal-token:
// computes the calling player's partial decryption share for each requested
// card index in the current deck.
func (a *API) revealToken(w http.ResponseWriter, r *http.Request) {
	sess, apiErr := a.sessionFromURL(r)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	playerID := chi.URLParam(r, "playerID")
	player, ok := sess.Player(playerID)
	if !ok {
		ErrPlayerNotFound.Write(w)
		return
	}

	var req RevealTokenRequest
	if err := decodeBody(r, &req); err != nil {
		ErrSerializationError.WithErr(err).Write(w)
		return
	}
	if len(req.CardIndices) == 0 {
		ErrMissingFields.Withf("card_indices is required").Write(w)
		return
	}

	entries, apiErr := a.computeRevealTokens(sess, player, req.CardIndices)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	httpWriteJSON(w, http.StatusCreated, RevealTokenResponse{Tokens: entries})
}

// revealCards handles POST /deck/{sessionID}/players/{playerID}/reveal-cards:
// the supplemented endpoint from original_source's reveal_cards, computing
// reveal tokens for every card in the current deck in one call.
func (a *API) revealCards(w http.ResponseWriter, r *http.Request) {
	sess, apiErr := a.sessionFromURL(r)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	playerID := chi.URLParam(r, "playerID")
	player, ok := sess.Player(playerID)
	if !ok {
		ErrPlayerNotFound.Write(w)
		return
	}

	all := make([]int, protocol.DeckSize)
	for i := range all {
		all[i] = i
	}

	entries, apiErr := a.computeRevealTokens(sess, player, all)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	httpWriteJSON(w, http.StatusCreated, RevealTokenResponse{Tokens: entries})
}

// receiveAndRevealToken handles
// POST /deck/{sessionID}/players/{playerID}/receive-and-reveal-token: the
// supplemented endpoint from original_source's receive_and_reveal_token. It
// records received_cards against the player's held_cards bookkeeping and
// then behaves exactly like revealCards.
func (a *API) receiveAndRevealToken(w http.ResponseWriter, r *http.Request) {
	sess, apiErr := a.sessionFromURL(r)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	playerID := chi.URLParam(r, "playerID")
	player, ok := sess.Player(playerID)
	if !ok {
		ErrPlayerNotFound.Write(w)
		return
	}

	var req ReceiveAndRevealTokenRequest
	if err := decodeBody(r, &req); err != nil {
		ErrSerializationError.WithErr(err).Write(w)
		return
	}

	received := make([]cards.Card, 0, len(req.ReceivedCards))
	for _, idx := range req.ReceivedCards {
		c, err := cards.FromIndex(idx)
		if err != nil {
			ErrInvalidCard.WithErr(err).Write(w)
			return
		}
		received = append(received, c)
	}
	if err := sess.RecordHeldCards(playerID, received); err != nil {
		ErrGenericError.WithErr(err).Write(w)
		return
	}

	all := make([]int, protocol.DeckSize)
	for i := range all {
		all[i] = i
	}
	entries, apiErr := a.computeRevealTokens(sess, player, all)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	httpWriteJSON(w, http.StatusCreated, RevealTokenResponse{Tokens: entries})
}

func (a *API) computeRevealTokens(sess *session.Session, player *session.Player, indices []int) ([]RevealTokenEntry, *Error) {
	deck := sess.CurrentDeck()
	entries := make([]RevealTokenEntry, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= protocol.DeckSize {
			e := ErrInvalidCard.Withf("card index %d out of range", idx)
			return nil, &e
		}
		token, err := protocol.ComputeRevealToken(player.Key.PlayerID, player.Key.SK, deck[idx])
		if err != nil {
			e := ErrGenericError.WithErr(err)
			return nil, &e
		}
		entries = append(entries, RevealTokenEntry{
			CardIndex: idx,
			Token:     codec.EncodeRevealToken(token),
			PublicKey: codec.EncodePoint(player.Key.PK),
		})
	}
	return entries, nil
}

// peekCards handles POST /deck/{sessionID}/players/{playerID}/peek:
// combines the calling player's own reveal token with the supplied peer
// reveal tokens for each requested card and unmasks it via card_mapping.
func (a *API) peekCards(w http.ResponseWriter, r *http.Request) {
	sess, apiErr := a.sessionFromURL(r)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	playerID := chi.URLParam(r, "playerID")
	player, ok := sess.Player(playerID)
	if !ok {
		ErrPlayerNotFound.Write(w)
		return
	}

	var req PeekCardsRequest
	if err := decodeBody(r, &req); err != nil {
		ErrSerializationError.WithErr(err).Write(w)
		return
	}
	if len(req.CardIndices) == 0 {
		ErrMissingFields.Withf("card_indices is required").Write(w)
		return
	}

	deck := sess.CurrentDeck()
	result := make(map[int]CardDTO, len(req.CardIndices))
	for _, idx := range req.CardIndices {
		if idx < 0 || idx >= protocol.DeckSize {
			ErrInvalidCard.Withf("card index %d out of range", idx).Write(w)
			return
		}
		masked := deck[idx]

		own, err := protocol.ComputeRevealToken(player.Key.PlayerID, player.Key.SK, masked)
		if err != nil {
			ErrGenericError.WithErr(err).Write(w)
			return
		}

		tokens := []protocol.RevealToken{own}
		for _, th := range req.RevealTokens[idx] {
			t, err := codec.DecodeRevealToken(th)
			if err != nil {
				ErrInvalidRevealToken.WithErr(err).Write(w)
				return
			}
			peer, ok := sess.Player(t.PlayerID)
			if !ok {
				ErrInvalidRevealToken.Withf("unknown player_id %q in reveal token", t.PlayerID).Write(w)
				return
			}
			valid, err := protocol.VerifyRevealToken(peer.Key.PK, masked, t)
			if err != nil || !valid {
				ErrInvalidRevealToken.Withf("reveal token from %q failed verification", t.PlayerID).Write(w)
				return
			}
			tokens = append(tokens, t)
		}

		combined := protocol.CombineRevealTokens(tokens)
		cardIdx, err := protocol.Unmask(masked, combined, sess.Mapping)
		if err != nil {
			ErrInvalidCard.WithErr(err).Write(w)
			return
		}
		c, err := cards.FromIndex(cardIdx)
		if err != nil {
			ErrInvalidCard.WithErr(err).Write(w)
			return
		}
		result[idx] = CardDTO{Suit: c.Suit.String(), Value: c.Value.String()}
	}

	httpWriteJSON(w, http.StatusOK, PeekCardsResponse{Cards: result})
}

func encodeDeck(deck [protocol.DeckSize]protocol.MaskedCard) []codec.MaskedCardHex {
	out := make([]codec.MaskedCardHex, len(deck))
	for i, c := range deck {
		out[i] = codec.EncodeMaskedCard(c)
	}
	return out
}

func decodeDeck(in []codec.MaskedCardHex) ([protocol.DeckSize]protocol.MaskedCard, error) {
	var out [protocol.DeckSize]protocol.MaskedCard
	if len(in) != protocol.DeckSize {
		return out, fmt.Errorf("deck must have exactly %d cards, got %d", protocol.DeckSize, len(in))
	}
	for i, w := range in {
		c, err := codec.DecodeMaskedCard(w)
		if err != nil {
			return out, err
		}
		out[i] = c
	}
	return out, nil
}

func encodeShuffleProof(proof protocol.ShuffleProof) ShuffleProofHex {
	rounds := make([]ShuffleRoundHex, len(proof.Rounds))
	for i, round := range proof.Rounds {
		remask := make([]string, len(round.Remask))
		for j, s := range round.Remask {
			remask[j] = codec.EncodeScalar(s)
		}
		perm := make([]int, len(round.Perm))
		copy(perm, round.Perm[:])
		rounds[i] = ShuffleRoundHex{
			Commitment:   codec.EncodePoint(round.Commitment),
			Intermediate: encodeDeck(round.Intermediate),
			Bit:          round.Bit,
			Perm:         perm,
			Remask:       remask,
			Blinding:     codec.EncodeScalar(round.Blinding),
		}
	}
	return ShuffleProofHex{Rounds: rounds}
}

func decodeShuffleProof(w ShuffleProofHex) (protocol.ShuffleProof, error) {
	var proof protocol.ShuffleProof
	if len(w.Rounds) != len(proof.Rounds) {
		return proof, fmt.Errorf("shuffle proof must have exactly %d rounds, got %d", len(proof.Rounds), len(w.Rounds))
	}
	for i, rw := range w.Rounds {
		commitment, err := codec.DecodePoint(rw.Commitment)
		if err != nil {
			return proof, err
		}
		intermediate, err := decodeDeck(rw.Intermediate)
		if err != nil {
			return proof, err
		}
		blinding, err := codec.DecodeScalar(rw.Blinding)
		if err != nil {
			return proof, err
		}
		round := protocol.ShuffleRoundFromParts(commitment, intermediate, rw.Bit, rw.Perm, blinding)
		for j, rs := range rw.Remask {
			s, err := codec.DecodeScalar(rs)
			if err != nil {
				return proof, err
			}
			round.Remask[j] = s
		}
		proof.Rounds[i] = round
	}
	return proof, nil
}
