package channelhandler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"potatochannel/internal/identity"
)

func newMirroredPair(t *testing.T) (*Handler, *Handler) {
	t.Helper()
	aliceSeed := [32]byte{1}
	bobSeed := [32]byte{2}
	aliceKeys, err := identity.FromSeed(aliceSeed)
	require.NoError(t, err)
	bobKeys, err := identity.FromSeed(bobSeed)
	require.NoError(t, err)

	alice, err := New(aliceKeys.Channel, aliceKeys.Unroll, InitData{
		TheirChannelPublicKey: bobKeys.Channel.Public,
		TheirUnrollPublicKey:  bobKeys.Unroll.Public,
		MyContribution:        100,
		TheirContribution:     100,
	})
	require.NoError(t, err)
	bob, err := New(bobKeys.Channel, bobKeys.Unroll, InitData{
		TheirChannelPublicKey: aliceKeys.Channel.Public,
		TheirUnrollPublicKey:  aliceKeys.Unroll.Public,
		MyContribution:        100,
		TheirContribution:     100,
	})
	require.NoError(t, err)
	return alice, bob
}

func TestNilExchangeBothDirections(t *testing.T) {
	alice, bob := newMirroredPair(t)

	// Alice sends the first Nil; bob receives and applies it.
	aliceSigs, err := alice.SendEmptyPotato()
	require.NoError(t, err)
	_, err = bob.ReceivedEmptyPotato(SignaturePair{Mine: aliceSigs.Mine, Their: aliceSigs.Their})
	require.NoError(t, err)

	// Bob replies with his own Nil (StepD/StepF's asymmetric second round
	// trip); alice applies it.
	bobSigs, err := bob.SendEmptyPotato()
	require.NoError(t, err)
	_, err = alice.ReceivedEmptyPotato(SignaturePair{Mine: bobSigs.Mine, Their: bobSigs.Their})
	require.NoError(t, err)
}

func TestReceivedEmptyPotatoRejectsTamperedSignature(t *testing.T) {
	alice, bob := newMirroredPair(t)
	sigs, err := alice.SendEmptyPotato()
	require.NoError(t, err)

	sigs.Mine.S = sigs.Their.S // corrupt the signature scalar
	_, err = bob.ReceivedEmptyPotato(sigs)
	require.Error(t, err)
}

func TestMoveExchangeCarriesGameIDAndPayload(t *testing.T) {
	alice, bob := newMirroredPair(t)

	// Establish a shared starting sequence via one Nil exchange so both
	// sides have applied one state transition before the move.
	sigs, err := alice.SendEmptyPotato()
	require.NoError(t, err)
	_, err = bob.ReceivedEmptyPotato(sigs)
	require.NoError(t, err)

	gameID := [32]byte{0xAB}
	move := []byte("raise to 40")

	bob2, err := bob.SendEmptyPotato()
	require.NoError(t, err)
	_, err = alice.ReceivedEmptyPotato(bob2)
	require.NoError(t, err)

	moveSigs, err := alice.SendPotatoMove(gameID, move)
	require.NoError(t, err)
	err = bob.ReceivedPotatoMove(gameID, move, moveSigs)
	require.NoError(t, err)

	// A different move payload must not verify against the same signature.
	err = bob.ReceivedPotatoMove(gameID, []byte("different move"), moveSigs)
	require.Error(t, err)
}

func TestStateDigestIsSymmetric(t *testing.T) {
	alice, bob := newMirroredPair(t)
	require.Equal(t, alice.stateDigest("nil"), bob.stateDigest("nil"), "both sides must sign the same transition digest regardless of local/remote key ordering")
}

func TestCleanShutdownRoundTrip(t *testing.T) {
	alice, bob := newMirroredPair(t)
	aggsig, err := alice.SendPotatoCleanShutdown()
	require.NoError(t, err)
	require.NoError(t, bob.ReceivedPotatoCleanShutdown(aggsig))
}

func TestReceivedPotatoCleanShutdownRejectsTamperedAggsig(t *testing.T) {
	alice, bob := newMirroredPair(t)
	aggsig, err := alice.SendPotatoCleanShutdown()
	require.NoError(t, err)
	aggsig[len(aggsig)-1] ^= 0xFF
	err = bob.ReceivedPotatoCleanShutdown(aggsig)
	require.Error(t, err)
}

func TestStateChannelCoinAgreesOnAmount(t *testing.T) {
	alice, bob := newMirroredPair(t)
	_, aliceAmount := alice.StateChannelCoin()
	_, bobAmount := bob.StateChannelCoin()
	require.Equal(t, aliceAmount, bobAmount)
	require.Equal(t, uint64(200), aliceAmount)
}
