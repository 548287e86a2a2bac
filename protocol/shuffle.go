package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/linqining/deck-agent/crypto/transcript"
	"github.com/linqining/deck-agent/curve"
)

// shuffleProofRounds is the number of cut-and-choose rounds the shuffle
// argument runs. Each round a cheating prover who does not know a valid
// permutation survives with probability 1/2, so 40 rounds gives soundness
// error 2^-40 — see SPEC_FULL.md §4.2 and DESIGN.md's Open Question entry
// for why this construction was chosen over a literal Bayer-Groth argument.
const shuffleProofRounds = 40

const shuffleDomain = "deck-agent/v1/shuffle-cut-and-choose"

// shuffleRound is one round of the cut-and-choose argument. Exactly one of
// the two possible openings ("D maps to Intermediate" or "Intermediate maps
// to D-prime") is populated, selected by the Fiat-Shamir challenge bit.
type shuffleRound struct {
	Commitment   curve.Point
	Intermediate [DeckSize]MaskedCard

	Bit      byte
	Perm     [DeckSize]int
	Remask   [DeckSize]curve.Scalar
	Blinding curve.Scalar
}

// ShuffleProof is a non-interactive cut-and-choose argument that D2 is a
// permutation and independent remasking of D1 under a fixed joint key.
type ShuffleProof struct {
	Rounds [shuffleProofRounds]shuffleRound
}

// Shuffle permutes and independently remasks every card in deck according to
// perm and remask (perm[j] is the output slot card j moves to), returning
// the shuffled deck together with a proof that the shuffle was honest.
//
// perm must be a permutation of [0, DeckSize) and is the caller's private
// witness: spec.md's design note on "cyclic structure" applies here — the
// permutation is never serialized on the wire, only the resulting deck and
// proof are.
func Shuffle(params Parameters, jointKey curve.Point, deck [DeckSize]MaskedCard, perm [DeckSize]int, remask [DeckSize]curve.Scalar) ([DeckSize]MaskedCard, ShuffleProof, error) {
	if err := validatePermutation(perm); err != nil {
		return [DeckSize]MaskedCard{}, ShuffleProof{}, fmt.Errorf("protocol: shuffle: %w", err)
	}

	shuffled := applyPermuteRemask(jointKey, deck, perm, remask)

	var proof ShuffleProof
	type secretHalf struct {
		perm     [DeckSize]int
		remask   [DeckSize]curve.Scalar
		blinding curve.Scalar
	}
	firstHalves := make([]secretHalf, shuffleProofRounds)
	secondHalves := make([]secretHalf, shuffleProofRounds)

	for r := range shuffleProofRounds {
		sigma, err := randomPermutation()
		if err != nil {
			return [DeckSize]MaskedCard{}, ShuffleProof{}, fmt.Errorf("protocol: shuffle: round %d: %w", r, err)
		}
		rho, err := randomRemaskVector()
		if err != nil {
			return [DeckSize]MaskedCard{}, ShuffleProof{}, fmt.Errorf("protocol: shuffle: round %d: %w", r, err)
		}
		blinding, err := curve.RandomScalar()
		if err != nil {
			return [DeckSize]MaskedCard{}, ShuffleProof{}, fmt.Errorf("protocol: shuffle: round %d: %w", r, err)
		}

		intermediate := applyPermuteRemask(jointKey, deck, sigma, rho)

		// sigma2 maps the intermediate deck to the final shuffled deck:
		// sigma2[k] = perm[sigma^-1[k]].
		invSigma := invertPermutation(sigma)
		var sigma2 [DeckSize]int
		var remask2 [DeckSize]curve.Scalar
		for k := range DeckSize {
			j := invSigma[k]
			sigma2[k] = perm[j]
			remask2[k] = remask[j].Sub(rho[j])
		}

		commitment, err := pedersenCommit(params, sigma, rho, blinding)
		if err != nil {
			return [DeckSize]MaskedCard{}, ShuffleProof{}, fmt.Errorf("protocol: shuffle: round %d: %w", r, err)
		}

		proof.Rounds[r] = shuffleRound{
			Commitment:   commitment,
			Intermediate: intermediate,
		}
		firstHalves[r] = secretHalf{perm: sigma, remask: rho, blinding: blinding}
		secondHalves[r] = secretHalf{perm: sigma2, remask: remask2}
	}

	bits, err := shuffleChallengeBits(params, jointKey, deck, shuffled, proof)
	if err != nil {
		return [DeckSize]MaskedCard{}, ShuffleProof{}, fmt.Errorf("protocol: shuffle: %w", err)
	}

	for r := range shuffleProofRounds {
		proof.Rounds[r].Bit = bits[r]
		if bits[r] == 0 {
			proof.Rounds[r].Perm = firstHalves[r].perm
			proof.Rounds[r].Remask = firstHalves[r].remask
			proof.Rounds[r].Blinding = firstHalves[r].blinding
		} else {
			proof.Rounds[r].Perm = secondHalves[r].perm
			proof.Rounds[r].Remask = secondHalves[r].remask
		}
	}

	return shuffled, proof, nil
}

// VerifyShuffle checks that d2 is a permutation and remasking of d1 under
// jointKey, per the proof produced by Shuffle. It is a pure function: same
// inputs always give the same verdict.
func VerifyShuffle(params Parameters, jointKey curve.Point, d1, d2 [DeckSize]MaskedCard, proof ShuffleProof) (bool, error) {
	bits, err := shuffleChallengeBits(params, jointKey, d1, d2, proof)
	if err != nil {
		return false, fmt.Errorf("protocol: verify shuffle: %w", err)
	}

	for r := range shuffleProofRounds {
		round := proof.Rounds[r]
		if round.Bit != bits[r] {
			return false, nil
		}
		if err := validatePermutation(round.Perm); err != nil {
			return false, nil
		}

		if round.Bit == 0 {
			commitment, err := pedersenCommit(params, round.Perm, round.Remask, round.Blinding)
			if err != nil {
				return false, fmt.Errorf("protocol: verify shuffle: round %d: %w", r, err)
			}
			if !commitment.Equal(round.Commitment) {
				return false, nil
			}
			recomputed := applyPermuteRemask(jointKey, d1, round.Perm, round.Remask)
			if !decksEqual(recomputed, round.Intermediate) {
				return false, nil
			}
		} else {
			recomputed := applyPermuteRemask(jointKey, round.Intermediate, round.Perm, round.Remask)
			if !decksEqual(recomputed, d2) {
				return false, nil
			}
		}
	}
	return true, nil
}

func shuffleChallengeBits(params Parameters, jointKey curve.Point, d1, d2 [DeckSize]MaskedCard, proof ShuffleProof) ([shuffleProofRounds]byte, error) {
	tr := transcript.New(shuffleDomain)
	tr.Append("G", params.G.Bytes())
	for i, g := range params.Grid {
		tr.Append(fmt.Sprintf("grid-%d", i), g.Bytes())
	}
	tr.Append("joint-key", jointKey.Bytes())
	for i, c := range d1 {
		tr.Append(fmt.Sprintf("d1-%d-c1", i), c.C1.Bytes())
		tr.Append(fmt.Sprintf("d1-%d-c2", i), c.C2.Bytes())
	}
	for i, c := range d2 {
		tr.Append(fmt.Sprintf("d2-%d-c1", i), c.C1.Bytes())
		tr.Append(fmt.Sprintf("d2-%d-c2", i), c.C2.Bytes())
	}
	for r, round := range proof.Rounds {
		tr.Append(fmt.Sprintf("commitment-%d", r), round.Commitment.Bytes())
		for i, c := range round.Intermediate {
			tr.Append(fmt.Sprintf("intermediate-%d-%d-c1", r, i), c.C1.Bytes())
			tr.Append(fmt.Sprintf("intermediate-%d-%d-c2", r, i), c.C2.Bytes())
		}
	}

	var bits [shuffleProofRounds]byte
	for r := range shuffleProofRounds {
		bit, err := tr.ChallengeBit(fmt.Sprintf("bit-%d", r))
		if err != nil {
			return bits, err
		}
		bits[r] = bit
	}
	return bits, nil
}

// pedersenCommit binds a round's (permutation, remasking) witness to a
// single group element using the Parameters' generator grid: each slot's
// permutation target and remasking factor are folded into one scalar via
// hashToScalar, then combined as a Pedersen vector commitment
// blinding*G + sum(Grid[i] * slotScalar(i)).
func pedersenCommit(params Parameters, perm [DeckSize]int, remask [DeckSize]curve.Scalar, blinding curve.Scalar) (curve.Point, error) {
	acc := curve.MulGenerator(blinding)
	for i := range DeckSize {
		var idxBuf [2]byte
		binary.LittleEndian.PutUint16(idxBuf[:], uint16(perm[i]))
		slotScalar, err := hashToScalar("deck-agent/v1/shuffle-pedersen-slot", idxBuf[:], remask[i].Bytes())
		if err != nil {
			return curve.Point{}, fmt.Errorf("pedersen commit: slot %d: %w", i, err)
		}
		acc = acc.Add(params.Grid[i].Mul(slotScalar))
	}
	return acc, nil
}

// applyPermuteRemask builds the deck where deck[j] moves to slot perm[j],
// independently remasked by remask[j] under jointKey.
func applyPermuteRemask(jointKey curve.Point, deck [DeckSize]MaskedCard, perm [DeckSize]int, remask [DeckSize]curve.Scalar) [DeckSize]MaskedCard {
	var out [DeckSize]MaskedCard
	for j := range DeckSize {
		out[perm[j]] = remaskWithFactor(jointKey, deck[j], remask[j])
	}
	return out
}

func decksEqual(a, b [DeckSize]MaskedCard) bool {
	for i := range a {
		if !a[i].C1.Equal(b[i].C1) || !a[i].C2.Equal(b[i].C2) {
			return false
		}
	}
	return true
}

func validatePermutation(perm [DeckSize]int) error {
	var seen [DeckSize]bool
	for _, p := range perm {
		if p < 0 || p >= DeckSize || seen[p] {
			return fmt.Errorf("not a valid permutation of %d elements", DeckSize)
		}
		seen[p] = true
	}
	return nil
}

func invertPermutation(perm [DeckSize]int) [DeckSize]int {
	var inv [DeckSize]int
	for j, p := range perm {
		inv[p] = j
	}
	return inv
}

// randomPermutation draws a uniformly random permutation of [0, DeckSize)
// via Fisher-Yates, using crypto/rand for each swap index.
func randomPermutation() ([DeckSize]int, error) {
	var perm [DeckSize]int
	for i := range perm {
		perm[i] = i
	}
	for i := DeckSize - 1; i > 0; i-- {
		jBig, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return [DeckSize]int{}, fmt.Errorf("random permutation: %w", err)
		}
		j := int(jBig.Int64())
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm, nil
}

func randomRemaskVector() ([DeckSize]curve.Scalar, error) {
	var out [DeckSize]curve.Scalar
	for i := range out {
		s, err := curve.RandomScalar()
		if err != nil {
			return [DeckSize]curve.Scalar{}, fmt.Errorf("random remask vector: %w", err)
		}
		out[i] = s
	}
	return out, nil
}

// RandomPermutationForShuffle draws a fresh uniformly random permutation of
// [0, DeckSize), for callers assembling the private witness passed to
// Shuffle (e.g. the api package's shuffle handler).
func RandomPermutationForShuffle() ([DeckSize]int, error) {
	return randomPermutation()
}

// RandomRemaskVectorForShuffle draws a fresh independent remasking vector,
// for callers assembling the private witness passed to Shuffle.
func RandomRemaskVectorForShuffle() ([DeckSize]curve.Scalar, error) {
	return randomRemaskVector()
}

// ShuffleRoundFromParts reconstructs one proof round from its wire-decoded
// fields. Used when deserializing a ShuffleProof received over HTTP; the
// Remask slice is filled in by the caller after construction since it is
// decoded element-by-element.
func ShuffleRoundFromParts(commitment curve.Point, intermediate [DeckSize]MaskedCard, bit byte, perm []int, blinding curve.Scalar) shuffleRound {
	var p [DeckSize]int
	copy(p[:], perm)
	return shuffleRound{Commitment: commitment, Intermediate: intermediate, Bit: bit, Perm: p, Blinding: blinding}
}
