package lobby

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bubble/internal/dependencies/mocks"
	"github.com/mcoot/bubble/internal/model"
	"github.com/mcoot/bubble/internal/storage"
	"github.com/mcoot/bubble/internal/storage/memory"
	"github.com/mcoot/bubble/internal/testutil"
)

// slowPlayerReads widens the window between reading a player and writing it
type slowPlayerReads struct {
	*memory.Storage
}

func (s slowPlayerReads) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	p, err := s.Storage.GetPlayer(ctx, id)
	time.Sleep(5 * time.Millisecond)
	return p, err
}

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	cfg := DefaultConfig()
	cfg.ScanPageSize = 2
	s.controller = NewController(s.storage, s.clock, s.random, testutil.NopLogger(), cfg)
	s.ctx = context.Background()

	users := []model.PlayerID{"alice", "bob", "carol", "owner"}
	for i := range 10 {
		users = append(users,
			model.PlayerID(fmt.Sprintf("p%d", i)),
			model.PlayerID(fmt.Sprintf("u%d", i)),
			model.PlayerID(fmt.Sprintf("late-%d", i)),
			model.PlayerID(fmt.Sprintf("owner-%d", i)),
			model.PlayerID(fmt.Sprintf("joiner-%d", i)),
		)
	}
	for _, id := range users {
		s.Require().NoError(s.storage.CreatePlayer(s.ctx, &model.Player{ID: id}))
	}
}

func (s *ControllerSuite) activeGame(id model.PlayerID) model.GameID {
	p, err := s.storage.GetPlayer(s.ctx, id)
	s.Require().NoError(err)
	return p.ActiveGame
}

// unfinishedMemberships counts the unfinished games each player belongs to
func (s *ControllerSuite) unfinishedMemberships() map[model.PlayerID]int {
	games, err := storage.ScanAllGames(s.ctx, s.storage, storage.GameFilter{}, 0)
	s.Require().NoError(err)
	memberships := map[model.PlayerID]int{}
	for _, g := range games {
		if !g.IsActive() {
			continue
		}
		for _, name := range g.PlayerNames {
			memberships[name]++
		}
	}
	return memberships
}

func (s *ControllerSuite) createGame(owner model.PlayerID) *model.Game {
	game, err := s.controller.CreateGame(s.ctx, owner)
	s.Require().NoError(err)
	return game
}

func (s *ControllerSuite) assertConsistent(id model.GameID) {
	game, err := s.storage.GetGame(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(len(game.PlayerNames), game.Players)
}

// CreateGame tests

func (s *ControllerSuite) TestCreateGameSucceeds() {
	s.random.QueueID("game-1")

	game, err := s.controller.CreateGame(s.ctx, "alice")
	s.Require().NoError(err)

	s.Equal(model.GameID("game-1"), game.ID)
	s.Equal(model.GameStatusWaiting, game.Status)
	s.Equal(1, game.Players)
	s.Equal([]model.PlayerID{"alice"}, game.PlayerNames)
	s.Equal(0, game.Turn)
	s.Equal(0, game.Year)
	s.Equal(0, game.MapSize)
	s.True(game.Map.IsEmpty())
	s.False(game.ActionDone)
}

func (s *ControllerSuite) TestCreateGameIsPersisted() {
	game := s.createGame("alice")

	stored, err := s.storage.GetGame(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Equal(game.PlayerNames, stored.PlayerNames)
	s.Equal(s.clock.Now(), stored.CreatedAt)
}

func (s *ControllerSuite) TestCreateGameWhileInGameFails() {
	s.createGame("alice")

	_, err := s.controller.CreateGame(s.ctx, "alice")
	s.ErrorIs(err, model.ErrAlreadyInGame)
}

func (s *ControllerSuite) TestCreateGameClaimsPlayer() {
	s.random.QueueID("game-1")
	s.createGame("alice")
	s.Equal(model.GameID("game-1"), s.activeGame("alice"))
}

func (s *ControllerSuite) TestCreateGameUnknownPlayer() {
	_, err := s.controller.CreateGame(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	games, _ := storage.ScanAllGames(s.ctx, s.storage, storage.GameFilter{}, 0)
	s.Empty(games)
}

func (s *ControllerSuite) TestConcurrentCreatesBySameUser() {
	controller := NewController(slowPlayerReads{s.storage}, s.clock, s.random, testutil.NopLogger(), DefaultConfig())

	const attempts = 6
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := controller.CreateGame(context.Background(), "alice")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
		} else {
			s.ErrorIs(err, model.ErrAlreadyInGame)
		}
	}
	s.Equal(1, created)
	s.Equal(1, s.unfinishedMemberships()["alice"])
}

func (s *ControllerSuite) TestConcurrentCreateAndJoinBySameUser() {
	controller := NewController(slowPlayerReads{s.storage}, s.clock, s.random, testutil.NopLogger(), DefaultConfig())
	bobGame := s.createGame("bob")
	carolGame := s.createGame("carol")

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	run := func(op func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- op()
		}()
	}
	run(func() error {
		_, err := controller.CreateGame(context.Background(), "alice")
		return err
	})
	run(func() error {
		_, err := controller.JoinGame(context.Background(), "alice", bobGame.ID)
		return err
	})
	run(func() error {
		_, err := controller.JoinGame(context.Background(), "alice", carolGame.ID)
		return err
	})
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, model.ErrAlreadyInGame)
		}
	}
	s.Equal(1, succeeded)
	s.Equal(1, s.unfinishedMemberships()["alice"])
}

func (s *ControllerSuite) TestCreateGameAfterFinishedGameSucceeds() {
	game := s.createGame("alice")
	stored, _ := s.storage.GetGame(s.ctx, game.ID)
	stored.Status = model.GameStatusFinished
	s.Require().NoError(s.storage.UpdateGame(s.ctx, stored))

	_, err := s.controller.CreateGame(s.ctx, "alice")
	s.NoError(err)
}

// DeleteGame tests

func (s *ControllerSuite) TestDeleteGameRoundTrip() {
	game := s.createGame("alice")

	s.Require().NoError(s.controller.DeleteGame(s.ctx, "alice", game.ID))

	_, err := s.storage.GetGame(s.ctx, game.ID)
	s.ErrorIs(err, model.ErrGameNotFound)

	// No dangling membership: alice can create again
	_, err = s.controller.CreateGame(s.ctx, "alice")
	s.NoError(err)
}

func (s *ControllerSuite) TestDeleteGameNotOwner() {
	game := s.createGame("alice")
	_, err := s.controller.JoinGame(s.ctx, "bob", game.ID)
	s.Require().NoError(err)

	err = s.controller.DeleteGame(s.ctx, "bob", game.ID)
	s.ErrorIs(err, model.ErrNotOwner)

	_, err = s.storage.GetGame(s.ctx, game.ID)
	s.NoError(err)
}

func (s *ControllerSuite) TestDeleteGameNotFound() {
	err := s.controller.DeleteGame(s.ctx, "alice", "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ControllerSuite) TestDeletePlayingGame() {
	game := s.createGame("alice")
	stored, _ := s.storage.GetGame(s.ctx, game.ID)
	stored.Status = model.GameStatusPlaying
	s.Require().NoError(s.storage.UpdateGame(s.ctx, stored))

	s.NoError(s.controller.DeleteGame(s.ctx, "alice", game.ID))
}

// JoinGame tests

func (s *ControllerSuite) TestJoinGameSucceeds() {
	game := s.createGame("alice")

	joined, err := s.controller.JoinGame(s.ctx, "bob", game.ID)
	s.Require().NoError(err)
	s.Equal(2, joined.Players)
	s.Equal([]model.PlayerID{"alice", "bob"}, joined.PlayerNames)
	s.assertConsistent(game.ID)
}

func (s *ControllerSuite) TestJoinGameAlreadyInAnotherGame() {
	game := s.createGame("alice")
	s.createGame("bob")

	_, err := s.controller.JoinGame(s.ctx, "bob", game.ID)
	s.ErrorIs(err, model.ErrAlreadyInGame)
}

func (s *ControllerSuite) TestJoinGameTwice() {
	game := s.createGame("alice")

	_, err := s.controller.JoinGame(s.ctx, "alice", game.ID)
	s.ErrorIs(err, model.ErrAlreadyInGame)
}

func (s *ControllerSuite) TestJoinGameNotFound() {
	_, err := s.controller.JoinGame(s.ctx, "bob", "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ControllerSuite) TestJoinGameNotWaiting() {
	game := s.createGame("alice")
	stored, _ := s.storage.GetGame(s.ctx, game.ID)
	stored.Status = model.GameStatusPlaying
	s.Require().NoError(s.storage.UpdateGame(s.ctx, stored))

	_, err := s.controller.JoinGame(s.ctx, "bob", game.ID)
	s.ErrorIs(err, model.ErrNotWaiting)
}

func (s *ControllerSuite) TestJoinFullGameAlwaysFails() {
	game := s.createGame("p0")
	for i := 1; i < model.MaxPlayers; i++ {
		_, err := s.controller.JoinGame(s.ctx, model.PlayerID(fmt.Sprintf("p%d", i)), game.ID)
		s.Require().NoError(err)
	}

	for _, user := range []model.PlayerID{"late-1", "late-2", "late-3"} {
		_, err := s.controller.JoinGame(s.ctx, user, game.ID)
		s.ErrorIs(err, model.ErrGameFull)
	}

	stored, _ := s.storage.GetGame(s.ctx, game.ID)
	s.Equal(model.MaxPlayers, stored.Players)
	s.assertConsistent(game.ID)
}

func (s *ControllerSuite) TestConcurrentJoinsNeverOverfill() {
	game := s.createGame("owner")

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := range 10 {
		wg.Add(1)
		go func(user model.PlayerID) {
			defer wg.Done()
			_, err := s.controller.JoinGame(context.Background(), user, game.ID)
			errs <- err
		}(model.PlayerID(fmt.Sprintf("joiner-%d", i)))
	}
	wg.Wait()
	close(errs)

	joined := 0
	for err := range errs {
		if err == nil {
			joined++
		}
	}
	s.Equal(model.MaxPlayers-1, joined)

	stored, _ := s.storage.GetGame(s.ctx, game.ID)
	s.Equal(model.MaxPlayers, stored.Players)
	s.assertConsistent(game.ID)
}

// LeaveGame tests

func (s *ControllerSuite) TestLeaveGameTransfersOwnership() {
	game := s.createGame("alice")
	_, err := s.controller.JoinGame(s.ctx, "bob", game.ID)
	s.Require().NoError(err)

	left, err := s.controller.LeaveGame(s.ctx, "alice", game.ID)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("bob"), left.Owner())
	s.Equal(1, left.Players)
	s.assertConsistent(game.ID)
}

func (s *ControllerSuite) TestLeaveGameLastPlayerDeletes() {
	game := s.createGame("alice")

	left, err := s.controller.LeaveGame(s.ctx, "alice", game.ID)
	s.Require().NoError(err)
	s.Nil(left)

	_, err = s.storage.GetGame(s.ctx, game.ID)
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ControllerSuite) TestLeaveGameTwiceIsNotMember() {
	game := s.createGame("alice")
	_, err := s.controller.JoinGame(s.ctx, "bob", game.ID)
	s.Require().NoError(err)

	_, err = s.controller.LeaveGame(s.ctx, "bob", game.ID)
	s.Require().NoError(err)
	before, _ := s.storage.GetGame(s.ctx, game.ID)

	_, err = s.controller.LeaveGame(s.ctx, "bob", game.ID)
	s.ErrorIs(err, model.ErrNotMember)

	after, _ := s.storage.GetGame(s.ctx, game.ID)
	s.Equal(before.Version, after.Version)
	s.Equal(before.PlayerNames, after.PlayerNames)
}

func (s *ControllerSuite) TestLeaveGameNotFound() {
	_, err := s.controller.LeaveGame(s.ctx, "alice", "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ControllerSuite) TestLeavePlayingGameKeepsRotation() {
	game := s.createGame("alice")
	_, _ = s.controller.JoinGame(s.ctx, "bob", game.ID)
	_, _ = s.controller.JoinGame(s.ctx, "carol", game.ID)

	stored, _ := s.storage.GetGame(s.ctx, game.ID)
	stored.Status = model.GameStatusPlaying
	stored.CurrentPlayer = 2
	s.Require().NoError(s.storage.UpdateGame(s.ctx, stored))

	left, err := s.controller.LeaveGame(s.ctx, "alice", game.ID)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("carol"), left.CurrentPlayerID())
}

func (s *ControllerSuite) TestLeaveLastInRotationStartsNextTurn() {
	game := s.createGame("alice")
	_, _ = s.controller.JoinGame(s.ctx, "bob", game.ID)
	_, _ = s.controller.JoinGame(s.ctx, "carol", game.ID)

	stored, _ := s.storage.GetGame(s.ctx, game.ID)
	stored.Status = model.GameStatusPlaying
	stored.Turn = 1
	stored.Year = 1950
	stored.CurrentPlayer = 2
	stored.ActionDone = true
	s.Require().NoError(s.storage.UpdateGame(s.ctx, stored))

	left, err := s.controller.LeaveGame(s.ctx, "carol", game.ID)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice"), left.CurrentPlayerID())
	s.Equal(2, left.Turn)
	s.False(left.ActionDone)
}

func (s *ControllerSuite) TestLeaveReleasesClaim() {
	game := s.createGame("alice")
	_, err := s.controller.JoinGame(s.ctx, "bob", game.ID)
	s.Require().NoError(err)
	s.Equal(game.ID, s.activeGame("bob"))

	_, err = s.controller.LeaveGame(s.ctx, "bob", game.ID)
	s.Require().NoError(err)
	s.Empty(s.activeGame("bob"))

	_, err = s.controller.LeaveGame(s.ctx, "alice", game.ID)
	s.Require().NoError(err)
	s.Empty(s.activeGame("alice"))
}

func (s *ControllerSuite) TestDeleteGameReleasesMembers() {
	game := s.createGame("alice")
	_, err := s.controller.JoinGame(s.ctx, "bob", game.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.controller.DeleteGame(s.ctx, "alice", game.ID))
	s.Empty(s.activeGame("alice"))
	s.Empty(s.activeGame("bob"))
}

func (s *ControllerSuite) TestStaleClaimDoesNotBlock() {
	bob, _ := s.storage.GetPlayer(s.ctx, "bob")
	bob.ActiveGame = "vanished"
	s.Require().NoError(s.storage.UpdatePlayer(s.ctx, bob))

	game := s.createGame("alice")
	_, err := s.controller.JoinGame(s.ctx, "bob", game.ID)
	s.NoError(err)
	s.Equal(game.ID, s.activeGame("bob"))
}

// ListAvailable tests

func (s *ControllerSuite) TestListAvailable() {
	open := s.createGame("alice")

	full := s.createGame("p0")
	for i := 1; i < model.MaxPlayers; i++ {
		_, err := s.controller.JoinGame(s.ctx, model.PlayerID(fmt.Sprintf("p%d", i)), full.ID)
		s.Require().NoError(err)
	}

	playing := s.createGame("carol")
	stored, _ := s.storage.GetGame(s.ctx, playing.ID)
	stored.Status = model.GameStatusPlaying
	s.Require().NoError(s.storage.UpdateGame(s.ctx, stored))

	games, err := s.controller.ListAvailable(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(games, 1)
	s.Equal(open.ID, games[0].ID)
}

func (s *ControllerSuite) TestListAvailableMergesPages() {
	for i := range 5 {
		s.createGame(model.PlayerID(fmt.Sprintf("owner-%d", i)))
	}

	games, err := s.controller.ListAvailable(s.ctx)
	s.Require().NoError(err)
	s.Len(games, 5)
}

func (s *ControllerSuite) TestListAvailableEmpty() {
	games, err := s.controller.ListAvailable(s.ctx)
	s.Require().NoError(err)
	s.Empty(games)
}

// GetStatus tests

func (s *ControllerSuite) TestGetStatus() {
	game := s.createGame("alice")
	_, err := s.controller.JoinGame(s.ctx, "bob", game.ID)
	s.Require().NoError(err)
	bob, _ := s.storage.GetPlayer(s.ctx, "bob")
	bob.Money = 4
	s.Require().NoError(s.storage.UpdatePlayer(s.ctx, bob))

	status, err := s.controller.GetStatus(s.ctx, "bob", game.ID)
	s.Require().NoError(err)
	s.Equal(game.ID, status.Game.ID)
	s.Require().Len(status.Players, 2)
	s.Equal(model.PlayerID("alice"), status.Players[0].ID)
	s.Equal(int64(4), status.Players[1].Money)
}

func (s *ControllerSuite) TestGetStatusNotMember() {
	game := s.createGame("alice")

	_, err := s.controller.GetStatus(s.ctx, "mallory", game.ID)
	s.ErrorIs(err, model.ErrNotMember)
}

// Properties

func (s *ControllerSuite) TestRandomInterleavingsKeepInvariants() {
	users := []model.PlayerID{"u0", "u1", "u2", "u3", "u4", "u5"}
	rng := rand.New(rand.NewPCG(1, 2))

	for range 300 {
		user := users[rng.IntN(len(users))]
		games, err := storage.ScanAllGames(s.ctx, s.storage, storage.GameFilter{}, 0)
		s.Require().NoError(err)

		switch rng.IntN(3) {
		case 0:
			_, _ = s.controller.CreateGame(s.ctx, user)
		case 1:
			if len(games) > 0 {
				_, _ = s.controller.JoinGame(s.ctx, user, games[rng.IntN(len(games))].ID)
			}
		case 2:
			if len(games) > 0 {
				_, _ = s.controller.LeaveGame(s.ctx, user, games[rng.IntN(len(games))].ID)
			}
		}

		games, err = storage.ScanAllGames(s.ctx, s.storage, storage.GameFilter{}, 0)
		s.Require().NoError(err)
		for _, g := range games {
			s.Equal(len(g.PlayerNames), g.Players)
			s.LessOrEqual(g.Players, model.MaxPlayers)
			s.GreaterOrEqual(g.Players, 1)
		}
		for user, n := range s.unfinishedMemberships() {
			s.LessOrEqual(n, 1, "user %s in %d games", user, n)
		}
	}
}
