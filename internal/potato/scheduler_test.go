package potato

import (
	"testing"

	"github.com/stretchr/testify/require"

	"potatochannel/internal/gameid"
	"potatochannel/internal/wire"
)

func TestDrainPriorityOrder(t *testing.T) {
	s := NewScheduler(true)
	s.EnqueueAccept(AcceptIntent{GameID: gameid.GameID{1}})
	s.EnqueueMove(MoveIntent{GameID: gameid.GameID{2}, Payload: []byte("m")})
	s.EnqueueStartGames([]wire.GameStart{{GameType: []byte("g")}})
	s.EnqueueShutdown()

	a1 := s.Drain()
	require.Equal(t, ActionStartGames, a1.Kind)

	a2 := s.Drain()
	require.Equal(t, ActionMove, a2.Kind)

	a3 := s.Drain()
	require.Equal(t, ActionAccept, a3.Kind)

	a4 := s.Drain()
	require.Equal(t, ActionShutdown, a4.Kind)

	require.True(t, s.Empty())
}

func TestEnqueueWhileHoldingPotatoNeedsNoRequest(t *testing.T) {
	s := NewScheduler(true)
	needsRequest := s.EnqueueMove(MoveIntent{GameID: gameid.GameID{1}})
	require.False(t, needsRequest)
}

// TestRequestPotatoSuppressesDuplicates reproduces scenario S3's shape at
// the scheduler layer: a single outstanding request, no automatic retry.
func TestRequestPotatoSuppressesDuplicates(t *testing.T) {
	s := NewScheduler(false)
	first := s.EnqueueMove(MoveIntent{GameID: gameid.GameID{1}})
	require.True(t, first, "first intent while not holding the potato must request it")

	second := s.EnqueueAccept(AcceptIntent{GameID: gameid.GameID{2}})
	require.False(t, second, "a second intent must not send a duplicate RequestPotato")

	s.MarkReceived()
	third := s.EnqueueShutdown()
	require.False(t, third, "already holding the potato, no request needed")
}

func TestFIFOOrderWithinKind(t *testing.T) {
	s := NewScheduler(true)
	s.EnqueueMove(MoveIntent{GameID: gameid.GameID{1}, Payload: []byte("a")})
	s.EnqueueMove(MoveIntent{GameID: gameid.GameID{2}, Payload: []byte("b")})

	first := s.Drain()
	require.Equal(t, gameid.GameID{1}, first.Move.GameID)
	second := s.Drain()
	require.Equal(t, gameid.GameID{2}, second.Move.GameID)
}

func TestStartGamesQueueRequestsPotatoWhenBatchesRemain(t *testing.T) {
	s := NewScheduler(true)
	s.EnqueueStartGames([]wire.GameStart{{GameType: []byte("a")}})
	s.EnqueueStartGames([]wire.GameStart{{GameType: []byte("b")}})

	first := s.Drain()
	require.Equal(t, ActionStartGames, first.Kind)
	require.True(t, first.AlsoRequestPotato, "queue remains non-empty, must also send RequestPotato")
}

// TestMoveQueueRequestsPotatoWhenBatchesRemain reproduces the case where two
// intents are enqueued while the potato is held elsewhere: the second
// Enqueue is suppressed by potatoRequestPending, so once the first intent
// drains, Drain itself must ask for the potato back or the second is
// stranded forever.
func TestMoveQueueRequestsPotatoWhenBatchesRemain(t *testing.T) {
	s := NewScheduler(false)
	s.EnqueueMove(MoveIntent{GameID: gameid.GameID{1}})
	s.EnqueueMove(MoveIntent{GameID: gameid.GameID{2}})

	s.MarkReceived()
	first := s.Drain()
	require.Equal(t, ActionMove, first.Kind)
	require.Equal(t, gameid.GameID{1}, first.Move.GameID)
	require.True(t, first.AlsoRequestPotato, "second queued move must not be stranded")

	s.MarkSent()
	s.MarkReceived()
	second := s.Drain()
	require.Equal(t, ActionMove, second.Kind)
	require.Equal(t, gameid.GameID{2}, second.Move.GameID)
	require.False(t, second.AlsoRequestPotato)
}

func TestShutdownQueuedBehindMoveRequestsPotatoWhenMoveDrains(t *testing.T) {
	s := NewScheduler(true)
	s.EnqueueMove(MoveIntent{GameID: gameid.GameID{1}})
	s.EnqueueShutdown()

	moveAction := s.Drain()
	require.Equal(t, ActionMove, moveAction.Kind)
	require.True(t, moveAction.AlsoRequestPotato, "shutdown must not be stranded behind the move")
}
