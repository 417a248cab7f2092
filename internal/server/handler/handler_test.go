package handler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hualuoo/lightcycle/internal/apperrors"
	"github.com/hualuoo/lightcycle/internal/config"
	"github.com/hualuoo/lightcycle/internal/game/session"
	"github.com/hualuoo/lightcycle/internal/protocol"
	"github.com/hualuoo/lightcycle/internal/server/storage"
	"github.com/hualuoo/lightcycle/internal/testutil"
)

// fastGame is a game config with clocks short enough for tests
func fastGame() config.GameConfig {
	return config.GameConfig{
		GridSize:        10,
		TickIntervalMs:  10,
		CountdownFrom:   1,
		CountdownStepMs: 10,
		KickTimeout:     30,
	}
}

func newTestHandler(t *testing.T, game config.GameConfig) (*Handler, *testutil.StubServer, *storage.RedisStore) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	store := storage.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	stub := testutil.NewStubServer()
	h := NewHandler(Deps{
		Server:   stub,
		Registry: session.NewRegistry(),
		Store:    store,
		Game:     game,
	})
	return h, stub, store
}

// connect registers an account and a stub client for it
func connect(t *testing.T, h *Handler, stub *testutil.StubServer, store *storage.RedisStore, username string) *testutil.SimpleClient {
	t.Helper()

	_, _, err := store.EnsureAccount(context.Background(), username, "secret")
	require.NoError(t, err)
	return stub.Connect(username)
}

// createLobby drives createGame and returns the new session
func createLobby(t *testing.T, h *Handler, client *testutil.SimpleClient, maxPlayers int) *session.Session {
	t.Helper()

	h.Handle(client, protocol.MustNewMessage(protocol.MsgCreateGame, protocol.CreateGamePayload{
		CreatorName: client.Username,
		GameName:    "arena",
		MaxPlayers:  maxPlayers,
	}))

	sessions := h.Registry().Snapshot()
	require.Len(t, sessions, 1)
	return sessions[0]
}

func responseOf(t *testing.T, msg *protocol.Message) protocol.Response {
	t.Helper()

	resp, err := protocol.ParsePayload[protocol.Response](msg)
	require.NoError(t, err)
	return *resp
}

func TestHandler_ConnectionPlayer(t *testing.T) {
	t.Parallel()

	h, stub, _ := newTestHandler(t, fastGame())

	// First login creates the account and registers the connection
	client := testutil.NewSimpleClient("")
	h.Handle(client, protocol.MustNewMessage(protocol.MsgConnectionPlayer, protocol.ConnectionPlayerPayload{
		Username: "alice",
		Password: "secret",
	}))

	resp := responseOf(t, client.LastMessage())
	assert.True(t, resp.Valid)
	assert.Equal(t, "alice", client.GetUsername())
	assert.NotNil(t, stub.GetClientByUsername("alice"))

	// Wrong password on an existing account is refused
	intruder := testutil.NewSimpleClient("")
	h.Handle(intruder, protocol.MustNewMessage(protocol.MsgConnectionPlayer, protocol.ConnectionPlayerPayload{
		Username: "alice",
		Password: "wrong",
	}))

	resp = responseOf(t, intruder.LastMessage())
	assert.False(t, resp.Valid)
	assert.Equal(t, apperrors.ErrBadCredentials.Reason, resp.Reason)
	assert.Equal(t, "", intruder.GetUsername())

	// Missing fields are rejected outright
	empty := testutil.NewSimpleClient("")
	h.Handle(empty, protocol.MustNewMessage(protocol.MsgConnectionPlayer, protocol.ConnectionPlayerPayload{
		Username: "bob",
	}))
	resp = responseOf(t, empty.LastMessage())
	assert.False(t, resp.Valid)
}

func TestHandler_CreateGame(t *testing.T) {
	t.Parallel()

	h, stub, store := newTestHandler(t, fastGame())
	alice := connect(t, h, stub, store, "alice")
	observer := connect(t, h, stub, store, "bob")

	sess := createLobby(t, h, alice, 2)
	assert.Equal(t, session.StatusLobby, sess.Status())
	assert.True(t, sess.HasPlayer("alice"))

	// Everyone online hears about the new lobby
	created := observer.MessagesOfType(protocol.MsgCreateGameResponse)
	require.Len(t, created, 1)
	payload, err := protocol.ParsePayload[protocol.CreateGameResponsePayload](created[0])
	require.NoError(t, err)
	assert.True(t, payload.Valid)
	assert.Equal(t, sess.ID, payload.GameID)
	assert.Equal(t, "alice", payload.CreatorName)

	// The creator also receives the occupied colors
	colors := alice.MessagesOfType(protocol.MsgUpdateColor)
	require.NotEmpty(t, colors)

	// Bad player limits are rejected
	h.Handle(alice, protocol.MustNewMessage(protocol.MsgCreateGame, protocol.CreateGamePayload{
		CreatorName: "alice",
		GameName:    "arena",
		MaxPlayers:  7,
	}))
	resp := responseOf(t, alice.LastMessage())
	assert.False(t, resp.Valid)
	assert.Equal(t, 1, h.Registry().Len())
}

func TestHandler_CreateGame_MigratesFromPreviousLobby(t *testing.T) {
	t.Parallel()

	h, stub, store := newTestHandler(t, fastGame())
	alice := connect(t, h, stub, store, "alice")

	first := createLobby(t, h, alice, 2)

	// Creating a second lobby silently detaches alice from the first,
	// which empties and prunes it
	h.Handle(alice, protocol.MustNewMessage(protocol.MsgCreateGame, protocol.CreateGamePayload{
		CreatorName: "alice",
		GameName:    "arena-2",
		MaxPlayers:  2,
	}))

	assert.Equal(t, 1, h.Registry().Len())
	assert.Nil(t, h.Registry().Get(first.ID))
}

func TestHandler_JoinGame_ValidationOrder(t *testing.T) {
	t.Parallel()

	h, stub, store := newTestHandler(t, fastGame())
	alice := connect(t, h, stub, store, "alice")
	bob := connect(t, h, stub, store, "bob")

	sess := createLobby(t, h, alice, 2)

	// Unknown game comes first
	h.Handle(bob, protocol.MustNewMessage(protocol.MsgJoinGame, protocol.JoinGamePayload{
		Username: "bob",
		GameID:   "missing",
	}))
	resp := responseOf(t, bob.LastMessage())
	assert.False(t, resp.Valid)
	assert.Equal(t, apperrors.ErrGameNotFound.Reason, resp.Reason)

	// Unknown account is refused before any roster change
	stranger := testutil.NewSimpleClient("mallory")
	stub.RegisterClient("mallory", stranger)
	h.Handle(stranger, protocol.MustNewMessage(protocol.MsgJoinGame, protocol.JoinGamePayload{
		Username: "mallory",
		GameID:   sess.ID,
	}))
	resp = responseOf(t, stranger.LastMessage())
	assert.False(t, resp.Valid)
	assert.Equal(t, apperrors.ErrPlayerNotFound.Reason, resp.Reason)

	// Happy path
	h.Handle(bob, protocol.MustNewMessage(protocol.MsgJoinGame, protocol.JoinGamePayload{
		Username: "bob",
		GameID:   sess.ID,
	}))
	assert.True(t, sess.HasPlayer("bob"))

	joined := alice.MessagesOfType(protocol.MsgJoinGameResponse)
	require.NotEmpty(t, joined)
	joinPayload, err := protocol.ParsePayload[protocol.JoinGameSuccessPayload](joined[len(joined)-1])
	require.NoError(t, err)
	assert.Equal(t, "bob", joinPayload.NewPlayerUsername)
	assert.True(t, joinPayload.Valid)

	// Joining twice is refused
	h.Handle(bob, protocol.MustNewMessage(protocol.MsgJoinGame, protocol.JoinGamePayload{
		Username: "bob",
		GameID:   sess.ID,
	}))
	resp = responseOf(t, bob.LastMessage())
	assert.False(t, resp.Valid)
	assert.Equal(t, apperrors.ErrAlreadyInGame.Reason, resp.Reason)

	// A full lobby refuses further joins
	carol := connect(t, h, stub, store, "carol")
	h.Handle(carol, protocol.MustNewMessage(protocol.MsgJoinGame, protocol.JoinGamePayload{
		Username: "carol",
		GameID:   sess.ID,
	}))
	resp = responseOf(t, carol.LastMessage())
	assert.False(t, resp.Valid)
	assert.Equal(t, apperrors.ErrGameFull.Reason, resp.Reason)
}

func TestHandler_GetAllLobbies(t *testing.T) {
	t.Parallel()

	h, stub, store := newTestHandler(t, fastGame())
	alice := connect(t, h, stub, store, "alice")

	sess := createLobby(t, h, alice, 2)

	h.Handle(alice, protocol.MustNewMessage(protocol.MsgGetAllLobbies, nil))
	msgs := alice.MessagesOfType(protocol.MsgGetAllLobbiesResponse)
	require.Len(t, msgs, 1)

	payload, err := protocol.ParsePayload[protocol.GetAllLobbiesResponsePayload](msgs[0])
	require.NoError(t, err)
	require.Len(t, payload.Lobbies, 1)
	assert.Equal(t, sess.ID, payload.Lobbies[0].GameID)
	assert.Equal(t, "arena", payload.Lobbies[0].GameName)
	assert.Equal(t, 2, payload.Lobbies[0].MaxPlayers)
	assert.Equal(t, 1, payload.Lobbies[0].CurrentPlayers)

	// Ended sessions drop off the list
	sess.End("alice", false)
	h.Handle(alice, protocol.MustNewMessage(protocol.MsgGetAllLobbies, nil))
	msgs = alice.MessagesOfType(protocol.MsgGetAllLobbiesResponse)
	require.Len(t, msgs, 2)
	payload, err = protocol.ParsePayload[protocol.GetAllLobbiesResponsePayload](msgs[1])
	require.NoError(t, err)
	assert.Empty(t, payload.Lobbies)
}

func TestHandler_LeaveLobby(t *testing.T) {
	t.Parallel()

	h, stub, store := newTestHandler(t, fastGame())
	alice := connect(t, h, stub, store, "alice")
	bob := connect(t, h, stub, store, "bob")

	sess := createLobby(t, h, alice, 2)
	h.Handle(bob, protocol.MustNewMessage(protocol.MsgJoinGame, protocol.JoinGamePayload{
		Username: "bob",
		GameID:   sess.ID,
	}))

	h.Handle(bob, protocol.MustNewMessage(protocol.MsgLeaveLobby, protocol.LeaveLobbyPayload{
		Username: "bob",
		GameID:   sess.ID,
	}))

	leaves := bob.MessagesOfType(protocol.MsgLeaveLobbyResponse)
	require.Len(t, leaves, 1)
	assert.True(t, responseOf(t, leaves[0]).Valid)
	assert.False(t, sess.HasPlayer("bob"))
	assert.NotNil(t, h.Registry().Get(sess.ID))

	// Leaving a game you are not in is refused
	h.Handle(bob, protocol.MustNewMessage(protocol.MsgLeaveLobby, protocol.LeaveLobbyPayload{
		Username: "bob",
		GameID:   sess.ID,
	}))
	resp := responseOf(t, bob.LastMessage())
	assert.False(t, resp.Valid)
	assert.Equal(t, apperrors.ErrPlayerNotInGame.Reason, resp.Reason)

	// The last player leaving prunes the session
	h.Handle(alice, protocol.MustNewMessage(protocol.MsgLeaveLobby, protocol.LeaveLobbyPayload{
		Username: "alice",
		GameID:   sess.ID,
	}))
	assert.Nil(t, h.Registry().Get(sess.ID))
}

func TestHandler_ChangeColor(t *testing.T) {
	t.Parallel()

	h, stub, store := newTestHandler(t, fastGame())
	alice := connect(t, h, stub, store, "alice")
	bob := connect(t, h, stub, store, "bob")

	sess := createLobby(t, h, alice, 2)
	h.Handle(bob, protocol.MustNewMessage(protocol.MsgJoinGame, protocol.JoinGamePayload{
		Username: "bob",
		GameID:   sess.ID,
	}))

	h.Handle(alice, protocol.MustNewMessage(protocol.MsgChangeColor, protocol.ChangeColorPayload{
		Username: "alice",
		GameID:   sess.ID,
		Color:    "#123abc",
	}))
	resp := responseOf(t, alice.MessagesOfType(protocol.MsgChangeColorResponse)[0])
	assert.True(t, resp.Valid)
	assert.Equal(t, "#123abc", sess.PlayerColor("alice"))

	// Picking a taken color fails and triggers a color resync
	before := len(bob.MessagesOfType(protocol.MsgUpdateColor))
	h.Handle(bob, protocol.MustNewMessage(protocol.MsgChangeColor, protocol.ChangeColorPayload{
		Username: "bob",
		GameID:   sess.ID,
		Color:    "#123abc",
	}))
	resp = responseOf(t, bob.MessagesOfType(protocol.MsgChangeColorResponse)[0])
	assert.False(t, resp.Valid)
	assert.Equal(t, apperrors.ErrColorTaken.Reason, resp.Reason)
	assert.Greater(t, len(bob.MessagesOfType(protocol.MsgUpdateColor)), before)
}

// readyBoth readies a two-player lobby and waits for the game to start
func readyBoth(t *testing.T, h *Handler, sess *session.Session, alice, bob *testutil.SimpleClient) {
	t.Helper()

	h.Handle(alice, protocol.MustNewMessage(protocol.MsgPlayerReady, protocol.PlayerReadyPayload{
		Username: "alice",
		GameID:   sess.ID,
	}))
	h.Handle(bob, protocol.MustNewMessage(protocol.MsgPlayerReady, protocol.PlayerReadyPayload{
		Username: "bob",
		GameID:   sess.ID,
	}))

	require.Eventually(t, func() bool {
		return len(alice.MessagesOfType(protocol.MsgGameStart)) > 0
	}, 2*time.Second, 5*time.Millisecond, "game did not start")
}

func TestHandler_ReadyCountdownAndFullGame(t *testing.T) {
	t.Parallel()

	h, stub, store := newTestHandler(t, fastGame())
	alice := connect(t, h, stub, store, "alice")
	bob := connect(t, h, stub, store, "bob")

	sess := createLobby(t, h, alice, 2)
	h.Handle(bob, protocol.MustNewMessage(protocol.MsgJoinGame, protocol.JoinGamePayload{
		Username: "bob",
		GameID:   sess.ID,
	}))

	// Readying with a short roster confirms but starts nothing
	h.Handle(alice, protocol.MustNewMessage(protocol.MsgPlayerReady, protocol.PlayerReadyPayload{
		Username: "alice",
		GameID:   sess.ID,
	}))
	assert.Equal(t, session.StatusLobby, sess.Status())

	// Repeat ready is silent
	before := len(alice.MessagesOfType(protocol.MsgPlayerReadyResponse))
	h.Handle(alice, protocol.MustNewMessage(protocol.MsgPlayerReady, protocol.PlayerReadyPayload{
		Username: "alice",
		GameID:   sess.ID,
	}))
	assert.Equal(t, before, len(alice.MessagesOfType(protocol.MsgPlayerReadyResponse)))

	// The last ready kicks off the countdown
	h.Handle(bob, protocol.MustNewMessage(protocol.MsgPlayerReady, protocol.PlayerReadyPayload{
		Username: "bob",
		GameID:   sess.ID,
	}))

	require.Eventually(t, func() bool {
		return len(alice.MessagesOfType(protocol.MsgGameStart)) > 0
	}, 2*time.Second, 5*time.Millisecond, "game did not start")

	// Countdown counts down to zero before the start signal
	counts := alice.MessagesOfType(protocol.MsgCountdown)
	require.Len(t, counts, 2)
	first, err := protocol.ParsePayload[protocol.CountdownPayload](counts[0])
	require.NoError(t, err)
	last, err := protocol.ParsePayload[protocol.CountdownPayload](counts[1])
	require.NoError(t, err)
	assert.Equal(t, 1, first.Count)
	assert.Equal(t, 0, last.Count)

	// On a 10x10 grid the two head-to-head players run into each other's
	// trails on the same tick, so the game ends in a tie
	require.Eventually(t, func() bool {
		return len(alice.MessagesOfType(protocol.MsgEndGame)) > 0
	}, 2*time.Second, 5*time.Millisecond, "game did not end")

	endPayload, err := protocol.ParsePayload[protocol.EndGamePayload](alice.MessagesOfType(protocol.MsgEndGame)[0])
	require.NoError(t, err)
	assert.True(t, endPayload.Valid)
	assert.True(t, endPayload.Tie)
	assert.Equal(t, "", endPayload.WinnerName)
	assert.Equal(t, session.StatusEnded, sess.Status())

	// Movement updates were broadcast along the way
	assert.NotEmpty(t, alice.MessagesOfType(protocol.MsgUpdateAllPlayerMovements))

	// A tie counts as a loss for everyone
	ctx := context.Background()
	for _, name := range []string{"alice", "bob"} {
		stats, err := store.GetStats(ctx, name)
		require.NoError(t, err)
		require.NotNil(t, stats)
		assert.Equal(t, 0, stats.Wins, name)
		assert.Equal(t, 1, stats.Losses, name)
	}

	// The game record is persisted
	rec, err := store.LoadGameRecord(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Tie)
	assert.ElementsMatch(t, []string{"alice", "bob"}, rec.Players)
}

func TestHandler_PlayerMovement(t *testing.T) {
	t.Parallel()

	h, stub, store := newTestHandler(t, fastGame())
	alice := connect(t, h, stub, store, "alice")

	sess := createLobby(t, h, alice, 2)

	// Direction intent is stored even in the lobby; it is only consumed
	// by the simulation once the game runs
	h.Handle(alice, protocol.MustNewMessage(protocol.MsgPlayerMovement, protocol.PlayerMovementPayload{
		Username:  "alice",
		GameID:    sess.ID,
		Direction: "down",
	}))
	assert.Empty(t, alice.MessagesOfType(protocol.MsgPlayerMovementResponse))

	// Unknown game is refused
	h.Handle(alice, protocol.MustNewMessage(protocol.MsgPlayerMovement, protocol.PlayerMovementPayload{
		Username:  "alice",
		GameID:    "missing",
		Direction: "down",
	}))
	resp := responseOf(t, alice.LastMessage())
	assert.False(t, resp.Valid)
	assert.Equal(t, apperrors.ErrGameNotFound.Reason, resp.Reason)
}

func TestHandler_RestartGame(t *testing.T) {
	t.Parallel()

	h, stub, store := newTestHandler(t, fastGame())
	alice := connect(t, h, stub, store, "alice")
	bob := connect(t, h, stub, store, "bob")

	old := createLobby(t, h, alice, 2)
	h.Handle(bob, protocol.MustNewMessage(protocol.MsgJoinGame, protocol.JoinGamePayload{
		Username: "bob",
		GameID:   old.ID,
	}))

	// Restarting a game still in the lobby is refused
	h.Handle(alice, protocol.MustNewMessage(protocol.MsgRestartGame, protocol.RestartGamePayload{
		Username: "alice",
		GameID:   old.ID,
	}))
	resp := responseOf(t, alice.LastMessage())
	assert.False(t, resp.Valid)
	assert.Equal(t, apperrors.ErrGameNotEnded.Reason, resp.Reason)

	aliceColor := old.PlayerColor("alice")
	old.End("bob", false)

	h.Handle(alice, protocol.MustNewMessage(protocol.MsgRestartGame, protocol.RestartGamePayload{
		Username: "alice",
		GameID:   old.ID,
	}))

	// A fresh lobby exists with the same name and limit, seeded with the
	// requester and their previous color
	var fresh *session.Session
	for _, s := range h.Registry().Snapshot() {
		if s.ID != old.ID {
			fresh = s
		}
	}
	require.NotNil(t, fresh)
	assert.Equal(t, old.Name, fresh.Name)
	assert.Equal(t, old.MaxPlayers, fresh.MaxPlayers)
	assert.Equal(t, session.StatusLobby, fresh.Status())
	assert.True(t, fresh.HasPlayer("alice"))
	assert.Equal(t, aliceColor, fresh.PlayerColor("alice"))

	// The requester left the old roster; bob was invited to follow
	assert.False(t, old.HasPlayer("alice"))
	assert.True(t, old.HasPlayer("bob"))

	invites := bob.MessagesOfType(protocol.MsgRestartGameResponse)
	require.NotEmpty(t, invites)
	invite, err := protocol.ParsePayload[protocol.RestartGameResponsePayload](invites[len(invites)-1])
	require.NoError(t, err)
	assert.True(t, invite.Valid)
	assert.Equal(t, fresh.ID, invite.GameID)
	assert.Equal(t, "alice", invite.RestartName)
}

func TestHandler_Disconnect(t *testing.T) {
	t.Parallel()

	// A large grid keeps the simulation running long enough for the
	// disconnect to decide the game
	game := fastGame()
	game.GridSize = 100

	h, stub, store := newTestHandler(t, game)
	alice := connect(t, h, stub, store, "alice")
	bob := connect(t, h, stub, store, "bob")

	sess := createLobby(t, h, alice, 2)
	h.Handle(bob, protocol.MustNewMessage(protocol.MsgJoinGame, protocol.JoinGamePayload{
		Username: "bob",
		GameID:   sess.ID,
	}))
	readyBoth(t, h, sess, alice, bob)

	h.HandleDisconnect(alice)

	// The survivors hear about the drop, then win by default
	require.Eventually(t, func() bool {
		return len(bob.MessagesOfType(protocol.MsgEndGame)) > 0
	}, 2*time.Second, 5*time.Millisecond, "game did not end after disconnect")

	assert.NotEmpty(t, bob.MessagesOfType(protocol.MsgPlayerDisconnected))

	endPayload, err := protocol.ParsePayload[protocol.EndGamePayload](bob.MessagesOfType(protocol.MsgEndGame)[0])
	require.NoError(t, err)
	assert.Equal(t, "bob", endPayload.WinnerName)
	assert.False(t, endPayload.Tie)

	stats, err := store.GetStats(context.Background(), "bob")
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Wins)
}

func TestHandler_Disconnect_StaleConnectionDoesNotEvict(t *testing.T) {
	t.Parallel()

	h, stub, store := newTestHandler(t, fastGame())
	stale := connect(t, h, stub, store, "alice")

	sess := createLobby(t, h, stale, 2)

	// A reconnect under the same username replaces the registry entry;
	// the stale connection's exit must not touch the session
	successor := testutil.NewSimpleClient("alice")
	stub.RegisterClient("alice", successor)

	h.HandleDisconnect(stale)

	assert.True(t, sess.HasPlayer("alice"))
	assert.NotNil(t, h.Registry().Get(sess.ID))

	// The live connection's disconnect still takes effect
	h.HandleDisconnect(successor)
	assert.Nil(t, h.Registry().Get(sess.ID))
}

func TestHandler_EndGame_PersistsAndBroadcastsOnce(t *testing.T) {
	t.Parallel()

	h, stub, store := newTestHandler(t, fastGame())
	alice := connect(t, h, stub, store, "alice")
	bob := connect(t, h, stub, store, "bob")

	sess := createLobby(t, h, alice, 2)
	h.Handle(bob, protocol.MustNewMessage(protocol.MsgJoinGame, protocol.JoinGamePayload{
		Username: "bob",
		GameID:   sess.ID,
	}))

	_, _, err := sess.SetReady("alice")
	require.NoError(t, err)
	_, _, err = sess.SetReady("bob")
	require.NoError(t, err)
	require.NoError(t, sess.BeginCountdown())
	require.NoError(t, sess.StartRunning())

	// The tick loop and the disconnect path can both conclude the same
	// game; only the first conclusion may persist and broadcast
	h.endGame(sess, "alice", false)
	h.endGame(sess, "alice", false)

	ctx := context.Background()
	stats, err := store.GetStats(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 0, stats.Losses)

	stats, err = store.GetStats(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 0, stats.Wins)
	assert.Equal(t, 1, stats.Losses)

	assert.Len(t, alice.MessagesOfType(protocol.MsgEndGame), 1)
	assert.Len(t, bob.MessagesOfType(protocol.MsgEndGame), 1)
}

func TestHandler_GameStartsWithinZeroInterval(t *testing.T) {
	t.Parallel()

	// With one countdown step of 200ms the start signal must arrive in
	// the same interval as the zero broadcast, not one step later
	game := fastGame()
	game.GridSize = 100
	game.CountdownStepMs = 200

	h, stub, store := newTestHandler(t, game)
	alice := connect(t, h, stub, store, "alice")
	bob := connect(t, h, stub, store, "bob")

	sess := createLobby(t, h, alice, 2)
	h.Handle(bob, protocol.MustNewMessage(protocol.MsgJoinGame, protocol.JoinGamePayload{
		Username: "bob",
		GameID:   sess.ID,
	}))

	h.Handle(alice, protocol.MustNewMessage(protocol.MsgPlayerReady, protocol.PlayerReadyPayload{
		Username: "alice",
		GameID:   sess.ID,
	}))
	started := time.Now()
	h.Handle(bob, protocol.MustNewMessage(protocol.MsgPlayerReady, protocol.PlayerReadyPayload{
		Username: "bob",
		GameID:   sess.ID,
	}))

	require.Eventually(t, func() bool {
		return len(alice.MessagesOfType(protocol.MsgGameStart)) > 0
	}, 2*time.Second, 5*time.Millisecond, "game did not start")

	// One sleep between 1 and 0, none after: well under two full steps
	assert.Less(t, time.Since(started), 360*time.Millisecond)
}

func TestHandler_Disconnect_FromLobby(t *testing.T) {
	t.Parallel()

	h, stub, store := newTestHandler(t, fastGame())
	alice := connect(t, h, stub, store, "alice")

	sess := createLobby(t, h, alice, 2)

	h.HandleDisconnect(alice)

	// The lobby empties and is pruned
	assert.Nil(t, h.Registry().Get(sess.ID))

	// Disconnecting an unauthenticated client is a no-op
	h.HandleDisconnect(testutil.NewSimpleClient(""))
}

func TestHandler_GetLeaderboard(t *testing.T) {
	t.Parallel()

	h, stub, store := newTestHandler(t, fastGame())
	alice := connect(t, h, stub, store, "alice")

	ctx := context.Background()
	require.NoError(t, store.RecordResult(ctx, "alice", true))

	h.Handle(alice, protocol.MustNewMessage(protocol.MsgGetLeaderboard, nil))

	msgs := alice.MessagesOfType(protocol.MsgGetLeaderboardResponse)
	require.Len(t, msgs, 1)
	payload, err := protocol.ParsePayload[protocol.GetLeaderboardResponsePayload](msgs[0])
	require.NoError(t, err)
	assert.True(t, payload.Valid)
	require.Len(t, payload.Players, 1)
	assert.Equal(t, "alice", payload.Players[0].Username)
	assert.Equal(t, 1, payload.Players[0].Wins)
}

func TestHandler_RejectUsesSingleResponse(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestHandler(t, fastGame())

	// An invalid createGame produces exactly one rejection message
	mc := new(testutil.MockClient)
	mc.On("SendMessage", mock.MatchedBy(func(msg *protocol.Message) bool {
		return msg.Type == protocol.MsgCreateGameResponse
	})).Once()

	h.Handle(mc, protocol.MustNewMessage(protocol.MsgCreateGame, protocol.CreateGamePayload{
		CreatorName: "alice",
	}))

	mc.AssertExpectations(t)
	assert.Equal(t, 0, h.Registry().Len())
}

func TestHandler_UnknownMessage(t *testing.T) {
	t.Parallel()

	h, stub, store := newTestHandler(t, fastGame())
	alice := connect(t, h, stub, store, "alice")

	// Unknown types are logged and dropped, never answered
	h.Handle(alice, protocol.MustNewMessage(protocol.MessageType("teleport"), nil))
	assert.Empty(t, alice.Messages())
}
