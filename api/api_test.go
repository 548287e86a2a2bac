package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/linqining/deck-agent/codec"
	"github.com/linqining/deck-agent/protocol"
)

func newTestAPI(c *qt.C) *API {
	a, err := New(context.Background(), &Config{Host: "127.0.0.1", Port: 0})
	c.Assert(err, qt.IsNil)
	return a
}

func doJSON(c *qt.C, a *API, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		c.Assert(json.NewEncoder(&buf).Encode(body), qt.IsNil)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](c *qt.C, rec *httptest.ResponseRecorder) T {
	var out T
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &out), qt.IsNil)
	return out
}

func initSession(c *qt.C, a *API) InitializeResponse {
	rec := doJSON(c, a, http.MethodGet, InitializeEndpoint, nil)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)
	resp := decodeJSON[InitializeResponse](c, rec)
	c.Assert(resp.SeedHex, qt.HasLen, 64)
	return resp
}

func registerPlayer(c *qt.C, a *API, sessionID, playerID string) RegisterPlayerResponse {
	path := "/deck/" + sessionID + "/players"
	rec := doJSON(c, a, http.MethodPost, path, RegisterPlayerRequest{PlayerID: playerID})
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)
	return decodeJSON[RegisterPlayerResponse](c, rec)
}

func aggregateKey(c *qt.C, a *API, sessionID string, players ...RegisterPlayerResponse) AggregateKeyResponse {
	req := AggregateKeyRequest{Players: make([]AggregateKeyPlayer, len(players))}
	for i, p := range players {
		req.Players[i] = AggregateKeyPlayer{PlayerID: p.PlayerID, PublicKey: p.PublicKey, Proof: p.Proof}
	}
	rec := doJSON(c, a, http.MethodPost, "/deck/"+sessionID+"/aggregate-key", req)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)
	return decodeJSON[AggregateKeyResponse](c, rec)
}

// TestHappyPathTwoPlayers exercises the full lifecycle with two players:
// initialize, register, aggregate key, mask, shuffle, verify-shuffle,
// reveal-token and peek.
func TestHappyPathTwoPlayers(t *testing.T) {
	c := qt.New(t)
	a := newTestAPI(c)

	initResp := initSession(c, a)
	sessionID := initResp.SessionID

	alice := registerPlayer(c, a, sessionID, "alice")
	bob := registerPlayer(c, a, sessionID, "bob")

	aggResp := aggregateKey(c, a, sessionID, alice, bob)

	maskRec := doJSON(c, a, http.MethodPost, "/deck/"+sessionID+"/mask", nil)
	c.Assert(maskRec.Code, qt.Equals, http.StatusCreated)
	maskResp := decodeJSON[MaskResponse](c, maskRec)
	c.Assert(maskResp.Deck, qt.HasLen, 52)
	c.Assert(maskResp.Proof, qt.HasLen, 52)

	// One of the per-card masking proofs verifies independently against the
	// joint key and the plaintext it claims to mask, exercising
	// protocol.VerifyMasking end-to-end through the HTTP surface.
	var plaintextHex string
	for hex, idx := range initResp.CardMapping {
		if idx == 0 {
			plaintextHex = hex
			break
		}
	}
	plaintextPoint, err := codec.DecodePoint(plaintextHex)
	c.Assert(err, qt.IsNil)
	jointKey, err := codec.DecodePoint(aggResp.JointKey)
	c.Assert(err, qt.IsNil)
	masked0, err := codec.DecodeMaskedCard(maskResp.Deck[0])
	c.Assert(err, qt.IsNil)
	proof0, err := codec.DecodeMaskingProof(maskResp.Proof[0])
	c.Assert(err, qt.IsNil)
	ok, err := protocol.VerifyMasking(jointKey, plaintextPoint, masked0, proof0)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	shuffleRec := doJSON(c, a, http.MethodPost, "/deck/"+sessionID+"/shuffle", nil)
	c.Assert(shuffleRec.Code, qt.Equals, http.StatusCreated)
	shuffleResp := decodeJSON[ShuffleResponse](c, shuffleRec)

	verifyRec := doJSON(c, a, http.MethodPost, "/deck/"+sessionID+"/verify-shuffle", VerifyShuffleRequest{
		InputDeck:  maskResp.Deck,
		OutputDeck: shuffleResp.Deck,
		Proof:      shuffleResp.Proof,
	})
	c.Assert(verifyRec.Code, qt.Equals, http.StatusOK)
	verifyResp := decodeJSON[VerifyShuffleResponse](c, verifyRec)
	c.Assert(verifyResp.Valid, qt.IsTrue)

	revealRec := doJSON(c, a, http.MethodPost, "/deck/"+sessionID+"/players/bob/reveal-token", RevealTokenRequest{CardIndices: []int{0}})
	c.Assert(revealRec.Code, qt.Equals, http.StatusCreated)
	revealResp := decodeJSON[RevealTokenResponse](c, revealRec)
	c.Assert(revealResp.Tokens, qt.HasLen, 1)

	peekRec := doJSON(c, a, http.MethodPost, "/deck/"+sessionID+"/players/alice/peek", PeekCardsRequest{
		CardIndices:  []int{0},
		RevealTokens: map[int][]codec.RevealTokenHex{0: {revealResp.Tokens[0].Token}},
	})
	c.Assert(peekRec.Code, qt.Equals, http.StatusOK)
	peekResp := decodeJSON[PeekCardsResponse](c, peekRec)
	c.Assert(peekResp.Cards, qt.HasLen, 1)
	c.Assert(peekResp.Cards[0].Suit, qt.Not(qt.Equals), "")
}

// TestInitializeGeneratesDistinctSessions covers GET /deck/initialize's
// server-drawn seed_hex: since the seed is no longer a client-supplied
// parameter, two calls must still produce independent sessions and seeds
// rather than ever colliding or repeating.
func TestInitializeGeneratesDistinctSessions(t *testing.T) {
	c := qt.New(t)
	a := newTestAPI(c)

	first := initSession(c, a)
	second := initSession(c, a)

	c.Assert(first.SessionID, qt.Not(qt.Equals), second.SessionID)
	c.Assert(first.SeedHex, qt.Not(qt.Equals), second.SeedHex)
}

// TestAggregateKeyRejectsTamperedProof covers the "tampered proof" ->
// InvalidProof scenario (spec.md §8: same proof resubmitted under a
// different player_id) by swapping a registered player's proof into another
// player's players[] entry in the actual aggregate-key HTTP request body.
func TestAggregateKeyRejectsTamperedProof(t *testing.T) {
	c := qt.New(t)
	a := newTestAPI(c)

	initResp := initSession(c, a)
	sessionID := initResp.SessionID

	alice := registerPlayer(c, a, sessionID, "alice")
	bob := registerPlayer(c, a, sessionID, "bob")
	bob.Proof = alice.Proof // tamper: bob presents alice's proof as his own

	req := AggregateKeyRequest{Players: []AggregateKeyPlayer{
		{PlayerID: alice.PlayerID, PublicKey: alice.PublicKey, Proof: alice.Proof},
		{PlayerID: bob.PlayerID, PublicKey: bob.PublicKey, Proof: bob.Proof},
	}}
	aggRec := doJSON(c, a, http.MethodPost, "/deck/"+sessionID+"/aggregate-key", req)
	c.Assert(aggRec.Code, qt.Equals, http.StatusBadRequest)
	errResp := decodeJSON[errorResponse](c, aggRec)
	c.Assert(errResp.Code, qt.Equals, ErrInvalidProof.Code)
}

// TestVerifyShuffleRejectsSwappedOutputCard covers the swapped shuffle
// output card -> InvalidProof scenario.
func TestVerifyShuffleRejectsSwappedOutputCard(t *testing.T) {
	c := qt.New(t)
	a := newTestAPI(c)

	initResp := initSession(c, a)
	sessionID := initResp.SessionID
	alice := registerPlayer(c, a, sessionID, "alice")
	aggregateKey(c, a, sessionID, alice)

	maskRec := doJSON(c, a, http.MethodPost, "/deck/"+sessionID+"/mask", nil)
	maskResp := decodeJSON[MaskResponse](c, maskRec)

	shuffleRec := doJSON(c, a, http.MethodPost, "/deck/"+sessionID+"/shuffle", nil)
	shuffleResp := decodeJSON[ShuffleResponse](c, shuffleRec)

	shuffleResp.Deck[0], shuffleResp.Deck[1] = shuffleResp.Deck[1], shuffleResp.Deck[0]

	verifyRec := doJSON(c, a, http.MethodPost, "/deck/"+sessionID+"/verify-shuffle", VerifyShuffleRequest{
		InputDeck:  maskResp.Deck,
		OutputDeck: shuffleResp.Deck,
		Proof:      shuffleResp.Proof,
	})
	c.Assert(verifyRec.Code, qt.Equals, http.StatusBadRequest)
	errResp := decodeJSON[errorResponse](c, verifyRec)
	c.Assert(errResp.Code, qt.Equals, ErrInvalidProof.Code)
}

// TestPeekCardsRejectsWrongKeyRevealToken covers the wrong-key reveal token
// -> InvalidRevealToken scenario.
func TestPeekCardsRejectsWrongKeyRevealToken(t *testing.T) {
	c := qt.New(t)
	a := newTestAPI(c)

	initResp := initSession(c, a)
	sessionID := initResp.SessionID
	alice := registerPlayer(c, a, sessionID, "alice")
	bob := registerPlayer(c, a, sessionID, "bob")
	aggregateKey(c, a, sessionID, alice, bob)
	doJSON(c, a, http.MethodPost, "/deck/"+sessionID+"/mask", nil)

	revealRec := doJSON(c, a, http.MethodPost, "/deck/"+sessionID+"/players/bob/reveal-token", RevealTokenRequest{CardIndices: []int{0}})
	revealResp := decodeJSON[RevealTokenResponse](c, revealRec)
	token := revealResp.Tokens[0].Token
	token.PlayerID = "alice" // claim it came from a different player than actually signed it

	peekRec := doJSON(c, a, http.MethodPost, "/deck/"+sessionID+"/players/alice/peek", PeekCardsRequest{
		CardIndices:  []int{0},
		RevealTokens: map[int][]codec.RevealTokenHex{0: {token}},
	})
	c.Assert(peekRec.Code, qt.Equals, http.StatusBadRequest)
	errResp := decodeJSON[errorResponse](c, peekRec)
	c.Assert(errResp.Code, qt.Equals, ErrInvalidRevealToken.Code)
}

// TestPeekCardsRejectsBogusCombinedToken covers the bogus reveal token ->
// InvalidCard on unmask scenario: a lone player peeking without ever
// supplying the full set of joint-key shares cannot recover a valid card.
func TestPeekCardsRejectsBogusCombinedToken(t *testing.T) {
	c := qt.New(t)
	a := newTestAPI(c)

	initResp := initSession(c, a)
	sessionID := initResp.SessionID
	alice := registerPlayer(c, a, sessionID, "alice")
	bob := registerPlayer(c, a, sessionID, "bob")
	aggregateKey(c, a, sessionID, alice, bob)
	doJSON(c, a, http.MethodPost, "/deck/"+sessionID+"/mask", nil)

	// alice peeks without ever collecting bob's reveal-token share: her own
	// share alone cannot decrypt under the two-player joint key.
	peekRec := doJSON(c, a, http.MethodPost, "/deck/"+sessionID+"/players/alice/peek", PeekCardsRequest{
		CardIndices:  []int{0},
		RevealTokens: map[int][]codec.RevealTokenHex{},
	})
	c.Assert(peekRec.Code, qt.Equals, http.StatusBadRequest)
	errResp := decodeJSON[errorResponse](c, peekRec)
	c.Assert(errResp.Code, qt.Equals, ErrInvalidCard.Code)
}

func TestPingEndpoint(t *testing.T) {
	c := qt.New(t)
	a := newTestAPI(c)

	rec := doJSON(c, a, http.MethodGet, PingEndpoint, nil)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
}
