// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bubble/internal/model"
	"github.com/mcoot/bubble/internal/storage"
)

// Suite runs the storage contract against a backend. Embed it in a backend
// test suite and set NewStorage before SetupTest runs.
type Suite struct {
	suite.Suite

	NewStorage func() storage.Storage

	Store storage.Storage
	Ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set")
	s.Store = s.NewStorage()
	s.Ctx = context.Background()
}

func newPlayer(id model.PlayerID) *model.Player {
	return &model.Player{
		ID:             id,
		PasswordHash:   "hash",
		LastConnection: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newGame(id model.GameID, owner model.PlayerID) *model.Game {
	g := &model.Game{
		ID:          id,
		Status:      model.GameStatusWaiting,
		PlayerNames: []model.PlayerID{},
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	g.AddPlayer(owner)
	return g
}

// Player tests

func (s *Suite) TestCreateAndGetPlayer() {
	player := newPlayer("alice")
	player.Money = 500

	s.Require().NoError(s.Store.CreatePlayer(s.Ctx, player))
	s.Equal(int64(1), player.Version)

	got, err := s.Store.GetPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice"), got.ID)
	s.Equal("hash", got.PasswordHash)
	s.Equal(int64(500), got.Money)
	s.Equal(int64(1), got.Version)
	s.True(player.LastConnection.Equal(got.LastConnection))
}

func (s *Suite) TestCreatePlayerTwice() {
	s.Require().NoError(s.Store.CreatePlayer(s.Ctx, newPlayer("alice")))
	err := s.Store.CreatePlayer(s.Ctx, newPlayer("alice"))
	s.ErrorIs(err, model.ErrPlayerExists)
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Store.GetPlayer(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestUpdatePlayerBumpsVersion() {
	player := newPlayer("alice")
	s.Require().NoError(s.Store.CreatePlayer(s.Ctx, player))

	player.Money = 42
	s.Require().NoError(s.Store.UpdatePlayer(s.Ctx, player))
	s.Equal(int64(2), player.Version)

	got, err := s.Store.GetPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(42), got.Money)
	s.Equal(int64(2), got.Version)
}

func (s *Suite) TestUpdatePlayerStaleVersion() {
	s.Require().NoError(s.Store.CreatePlayer(s.Ctx, newPlayer("alice")))

	first, err := s.Store.GetPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	second, err := s.Store.GetPlayer(s.Ctx, "alice")
	s.Require().NoError(err)

	first.Money = 1
	s.Require().NoError(s.Store.UpdatePlayer(s.Ctx, first))

	second.Money = 2
	err = s.Store.UpdatePlayer(s.Ctx, second)
	s.ErrorIs(err, model.ErrVersionConflict)

	got, err := s.Store.GetPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(1), got.Money)
}

func (s *Suite) TestUpdatePlayerNotFound() {
	player := newPlayer("ghost")
	player.Version = 1
	err := s.Store.UpdatePlayer(s.Ctx, player)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Game tests

func (s *Suite) TestCreateAndGetGame() {
	game := newGame("g1", "alice")
	game.Status = model.GameStatusPlaying
	game.Year = 1950
	game.MapSize = 3
	game.Map = model.NewMap(3)
	game.Map.Build(model.Coordinates{X: 1, Y: 2}, model.BuildingPark, 2, "alice")

	s.Require().NoError(s.Store.CreateGame(s.Ctx, game))
	s.Equal(int64(1), game.Version)

	got, err := s.Store.GetGame(s.Ctx, "g1")
	s.Require().NoError(err)
	s.Equal(model.GameStatusPlaying, got.Status)
	s.Equal([]model.PlayerID{"alice"}, got.PlayerNames)
	s.Equal(1, got.Players)
	s.Equal(1950, got.Year)
	s.Equal(3, got.Map.Size())

	cell := got.Map.Get(model.Coordinates{X: 1, Y: 2})
	s.True(cell.IsOwnedBy("alice"))
	s.Equal(2, cell.CurrentLevel())
	s.True(got.Map.Get(model.Coordinates{X: 0, Y: 0}).IsEmpty())
}

func (s *Suite) TestCreateGameTwice() {
	s.Require().NoError(s.Store.CreateGame(s.Ctx, newGame("g1", "alice")))
	err := s.Store.CreateGame(s.Ctx, newGame("g1", "bob"))
	s.ErrorIs(err, model.ErrGameExists)
}

func (s *Suite) TestGetGameNotFound() {
	_, err := s.Store.GetGame(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestGetGameReturnsCopy() {
	s.Require().NoError(s.Store.CreateGame(s.Ctx, newGame("g1", "alice")))

	got, err := s.Store.GetGame(s.Ctx, "g1")
	s.Require().NoError(err)
	got.AddPlayer("mallory")

	again, err := s.Store.GetGame(s.Ctx, "g1")
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"alice"}, again.PlayerNames)
}

func (s *Suite) TestUpdateGameStaleVersion() {
	s.Require().NoError(s.Store.CreateGame(s.Ctx, newGame("g1", "alice")))

	first, _ := s.Store.GetGame(s.Ctx, "g1")
	second, _ := s.Store.GetGame(s.Ctx, "g1")

	first.AddPlayer("bob")
	s.Require().NoError(s.Store.UpdateGame(s.Ctx, first))
	s.Equal(int64(2), first.Version)

	second.AddPlayer("carol")
	s.ErrorIs(s.Store.UpdateGame(s.Ctx, second), model.ErrVersionConflict)

	got, err := s.Store.GetGame(s.Ctx, "g1")
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"alice", "bob"}, got.PlayerNames)
}

func (s *Suite) TestDeleteGame() {
	game := newGame("g1", "alice")
	s.Require().NoError(s.Store.CreateGame(s.Ctx, game))

	s.Require().NoError(s.Store.DeleteGame(s.Ctx, game))

	_, err := s.Store.GetGame(s.Ctx, "g1")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestDeleteGameStaleVersion() {
	game := newGame("g1", "alice")
	s.Require().NoError(s.Store.CreateGame(s.Ctx, game))

	stale := game.Clone()
	game.AddPlayer("bob")
	s.Require().NoError(s.Store.UpdateGame(s.Ctx, game))

	s.ErrorIs(s.Store.DeleteGame(s.Ctx, stale), model.ErrVersionConflict)

	_, err := s.Store.GetGame(s.Ctx, "g1")
	s.NoError(err)
}

func (s *Suite) TestDeleteGameNotFound() {
	game := newGame("missing", "alice")
	game.Version = 1
	s.ErrorIs(s.Store.DeleteGame(s.Ctx, game), model.ErrGameNotFound)
}

// Scan tests

func (s *Suite) TestScanGamesPaginates() {
	for i := range 7 {
		s.Require().NoError(s.Store.CreateGame(s.Ctx, newGame(model.GameID(fmt.Sprintf("g%d", i)), "alice")))
	}

	all, err := storage.ScanAllGames(s.Ctx, s.Store, storage.GameFilter{}, 2)
	s.Require().NoError(err)

	seen := map[model.GameID]bool{}
	for _, g := range all {
		seen[g.ID] = true
	}
	s.Len(seen, 7)
}

func (s *Suite) TestScanGamesFilters() {
	waiting := newGame("waiting", "alice")
	s.Require().NoError(s.Store.CreateGame(s.Ctx, waiting))

	full := newGame("full", "bob")
	full.AddPlayer("b2")
	full.AddPlayer("b3")
	full.AddPlayer("b4")
	s.Require().NoError(s.Store.CreateGame(s.Ctx, full))

	playing := newGame("playing", "carol")
	playing.Status = model.GameStatusPlaying
	s.Require().NoError(s.Store.CreateGame(s.Ctx, playing))

	finished := newGame("finished", "alice")
	finished.Status = model.GameStatusFinished
	s.Require().NoError(s.Store.CreateGame(s.Ctx, finished))

	available, err := storage.ScanAllGames(s.Ctx, s.Store, storage.AvailableGamesFilter(), 1)
	s.Require().NoError(err)
	s.Require().Len(available, 1)
	s.Equal(model.GameID("waiting"), available[0].ID)

	activeAlice := storage.GameFilter{Member: "alice", ExcludeStatuses: []model.GameStatus{model.GameStatusFinished}}
	mine, err := storage.ScanAllGames(s.Ctx, s.Store, activeAlice, 0)
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal(model.GameID("waiting"), mine[0].ID)
}

func (s *Suite) TestScanGamesEmpty() {
	page, err := s.Store.ScanGames(s.Ctx, storage.GameFilter{}, "", 10)
	s.Require().NoError(err)
	s.Empty(page.Games)
	s.Empty(page.NextCursor)
}

// Atomic game + player writes

func (s *Suite) TestUpdateGameAndPlayer() {
	player := newPlayer("alice")
	s.Require().NoError(s.Store.CreatePlayer(s.Ctx, player))
	game := newGame("g1", "alice")
	s.Require().NoError(s.Store.CreateGame(s.Ctx, game))

	game.Turn = 2
	player.Money = 7
	s.Require().NoError(s.Store.UpdateGameAndPlayer(s.Ctx, game, player))
	s.Equal(int64(2), game.Version)
	s.Equal(int64(2), player.Version)

	gotGame, err := s.Store.GetGame(s.Ctx, "g1")
	s.Require().NoError(err)
	s.Equal(2, gotGame.Turn)
	gotPlayer, err := s.Store.GetPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(7), gotPlayer.Money)
}

func (s *Suite) TestUpdateGameAndPlayerWritesNothingOnConflict() {
	player := newPlayer("alice")
	s.Require().NoError(s.Store.CreatePlayer(s.Ctx, player))
	game := newGame("g1", "alice")
	s.Require().NoError(s.Store.CreateGame(s.Ctx, game))

	// Someone else moves the player forward
	other, _ := s.Store.GetPlayer(s.Ctx, "alice")
	other.Money = 99
	s.Require().NoError(s.Store.UpdatePlayer(s.Ctx, other))

	game.Turn = 5
	player.Money = 1
	err := s.Store.UpdateGameAndPlayer(s.Ctx, game, player)
	s.ErrorIs(err, model.ErrVersionConflict)

	gotGame, _ := s.Store.GetGame(s.Ctx, "g1")
	s.Equal(0, gotGame.Turn)
	s.Equal(int64(1), gotGame.Version)
	gotPlayer, _ := s.Store.GetPlayer(s.Ctx, "alice")
	s.Equal(int64(99), gotPlayer.Money)
}

func (s *Suite) TestCreateGameAndPlayer() {
	player := newPlayer("alice")
	s.Require().NoError(s.Store.CreatePlayer(s.Ctx, player))

	game := newGame("g1", "alice")
	player.ActiveGame = "g1"
	s.Require().NoError(s.Store.CreateGameAndPlayer(s.Ctx, game, player))
	s.Equal(int64(1), game.Version)
	s.Equal(int64(2), player.Version)

	gotGame, err := s.Store.GetGame(s.Ctx, "g1")
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"alice"}, gotGame.PlayerNames)
	gotPlayer, err := s.Store.GetPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.GameID("g1"), gotPlayer.ActiveGame)
	s.Equal(int64(2), gotPlayer.Version)
}

func (s *Suite) TestCreateGameAndPlayerWritesNothingOnConflict() {
	player := newPlayer("alice")
	s.Require().NoError(s.Store.CreatePlayer(s.Ctx, player))
	stale := player.Clone()
	player.ActiveGame = "g1"
	s.Require().NoError(s.Store.CreateGameAndPlayer(s.Ctx, newGame("g1", "alice"), player))

	stale.ActiveGame = "g2"
	err := s.Store.CreateGameAndPlayer(s.Ctx, newGame("g2", "alice"), stale)
	s.ErrorIs(err, model.ErrVersionConflict)
	_, err = s.Store.GetGame(s.Ctx, "g2")
	s.ErrorIs(err, model.ErrGameNotFound)

	// An existing game id is rejected before the player is touched
	err = s.Store.CreateGameAndPlayer(s.Ctx, newGame("g1", "alice"), player)
	s.ErrorIs(err, model.ErrGameExists)
	gotPlayer, _ := s.Store.GetPlayer(s.Ctx, "alice")
	s.Equal(model.GameID("g1"), gotPlayer.ActiveGame)
	s.Equal(int64(2), gotPlayer.Version)

	err = s.Store.CreateGameAndPlayer(s.Ctx, newGame("g3", "ghost"), newPlayer("ghost"))
	s.ErrorIs(err, model.ErrPlayerNotFound)
	_, err = s.Store.GetGame(s.Ctx, "g3")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestConcurrentUpdatesOnlyOneWins() {
	s.Require().NoError(s.Store.CreateGame(s.Ctx, newGame("g1", "alice")))

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)
	snapshots := make([]*model.Game, writers)
	for i := range writers {
		g, err := s.Store.GetGame(s.Ctx, "g1")
		s.Require().NoError(err)
		snapshots[i] = g
	}

	for i := range writers {
		wg.Add(1)
		go func(g *model.Game) {
			defer wg.Done()
			g.Turn++
			results <- s.Store.UpdateGame(context.Background(), g)
		}(snapshots[i])
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else {
			s.ErrorIs(err, model.ErrVersionConflict)
		}
	}
	s.Equal(1, wins)
}
