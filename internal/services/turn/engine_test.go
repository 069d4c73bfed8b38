package turn

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bubble/internal/dependencies/mocks"
	"github.com/mcoot/bubble/internal/model"
	"github.com/mcoot/bubble/internal/storage"
	"github.com/mcoot/bubble/internal/storage/memory"
	"github.com/mcoot/bubble/internal/testutil"
)

type EngineSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	params  model.GameParams
	engine  *Engine
	ctx     context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.params = model.DefaultGameParams()
	s.engine = NewEngine(s.storage, s.clock, testutil.NopLogger(), s.params, storage.DefaultRetryConfig())
	s.ctx = context.Background()

	for _, id := range []model.PlayerID{"alice", "bob"} {
		s.Require().NoError(s.storage.CreatePlayer(s.ctx, &model.Player{ID: id, Money: s.params.InitialMoney}))
	}
	s.Require().NoError(s.storage.CreateGame(s.ctx, &model.Game{
		ID:          "g1",
		Status:      model.GameStatusPlaying,
		Players:     2,
		PlayerNames: []model.PlayerID{"alice", "bob"},
		Turn:        1,
		Year:        s.params.StartYear,
		MapSize:     6,
		Map:         model.NewMap(6),
	}))
}

func (s *EngineSuite) play(user model.PlayerID, action model.Action) (*Result, error) {
	return s.engine.Play(s.ctx, user, "g1", action)
}

func (s *EngineSuite) TestBuildPersistsGameAndPlayer() {
	result, err := s.play("alice", model.BuildAction{At: model.Coordinates{X: 1, Y: 1}, Type: model.BuildingPark, Level: 1})
	s.Require().NoError(err)
	s.True(result.Game.ActionDone)

	game, _ := s.storage.GetGame(s.ctx, "g1")
	s.True(game.Map.Get(model.Coordinates{X: 1, Y: 1}).IsOwnedBy("alice"))
	s.Equal(s.clock.Now(), game.UpdatedAt)

	alice, _ := s.storage.GetPlayer(s.ctx, "alice")
	s.Equal(s.params.InitialMoney-500, alice.Money)
	s.Equal(int64(1), alice.AccumulatedPoints)
}

func (s *EngineSuite) TestBuildOnOccupiedCellLeavesStateUnchanged() {
	_, err := s.play("alice", model.BuildAction{At: model.Coordinates{X: 2, Y: 3}, Type: model.BuildingPark, Level: 1})
	s.Require().NoError(err)
	_, err = s.play("alice", model.PassAction{})
	s.Require().NoError(err)

	gameBefore, _ := s.storage.GetGame(s.ctx, "g1")
	bobBefore, _ := s.storage.GetPlayer(s.ctx, "bob")

	_, err = s.play("bob", model.BuildAction{At: model.Coordinates{X: 2, Y: 3}, Type: model.BuildingResidential, Level: 1})
	s.ErrorIs(err, model.ErrCellOccupied)

	gameAfter, _ := s.storage.GetGame(s.ctx, "g1")
	bobAfter, _ := s.storage.GetPlayer(s.ctx, "bob")
	s.Equal(gameBefore.Map, gameAfter.Map)
	s.Equal(gameBefore.Version, gameAfter.Version)
	s.Equal(bobBefore.Money, bobAfter.Money)
}

func (s *EngineSuite) TestOutOfTurn() {
	_, err := s.play("bob", model.PassAction{})
	s.ErrorIs(err, model.ErrNotPlayerTurn)
}

func (s *EngineSuite) TestNotMember() {
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, &model.Player{ID: "mallory"}))
	_, err := s.play("mallory", model.PassAction{})
	s.ErrorIs(err, model.ErrNotMember)
}

func (s *EngineSuite) TestGameNotFound() {
	_, err := s.engine.Play(s.ctx, "alice", "missing", model.PassAction{})
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *EngineSuite) TestGameNotPlaying() {
	game, _ := s.storage.GetGame(s.ctx, "g1")
	game.Status = model.GameStatusWaiting
	s.Require().NoError(s.storage.UpdateGame(s.ctx, game))

	_, err := s.play("alice", model.PassAction{})
	s.ErrorIs(err, model.ErrNotPlaying)
}

func (s *EngineSuite) TestMemberWithoutPlayerRecord() {
	game, _ := s.storage.GetGame(s.ctx, "g1")
	game.AddPlayer("ghost")
	game.CurrentPlayer = 2
	s.Require().NoError(s.storage.UpdateGame(s.ctx, game))

	_, err := s.play("ghost", model.PassAction{})
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *EngineSuite) TestFullRotation() {
	_, err := s.play("alice", model.PassAction{})
	s.Require().NoError(err)
	result, err := s.play("bob", model.PassAction{})
	s.Require().NoError(err)

	s.Equal(2, result.Game.Turn)
	s.Equal(model.PlayerID("alice"), result.Game.CurrentPlayerID())
}

func (s *EngineSuite) TestLoanThenBuildInSameTurn() {
	_, err := s.play("alice", model.AskLoanAction{Amount: 5000})
	s.Require().NoError(err)

	result, err := s.play("alice", model.BuildAction{At: model.Coordinates{X: 0, Y: 0}, Type: model.BuildingIndustrial, Level: 3})
	s.Require().NoError(err)
	s.Equal(s.params.InitialMoney+5000-3*2500, result.Player.Money)
	s.Equal(int64(5000), result.Player.Debt)

	_, err = s.play("alice", model.DestroyAction{At: model.Coordinates{X: 0, Y: 0}})
	s.ErrorIs(err, model.ErrActionAlreadyDone)
}

func (s *EngineSuite) TestPlayRequestChecksMembershipBeforeFields() {
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, &model.Player{ID: "mallory"}))

	_, err := s.engine.PlayRequest(s.ctx, "mallory", "g1", url.Values{"action": {"BUILD"}})
	s.ErrorIs(err, model.ErrNotMember)

	_, err = s.engine.PlayRequest(s.ctx, "alice", "g1", url.Values{"action": {"BUILD"}})
	var missing *model.MissingFieldError
	s.Require().ErrorAs(err, &missing)
	s.Equal("coordinates", missing.Field)
}

func (s *EngineSuite) TestPlayRequestReportsParsedAction() {
	result, err := s.engine.PlayRequest(s.ctx, "alice", "g1", url.Values{"action": {"ASK_LOAN"}, "amount": {"250"}})
	s.Require().NoError(err)
	s.Equal(model.AskLoanAction{Amount: 250}, result.Action)
	s.Equal(int64(250), result.Player.Debt)
}

func (s *EngineSuite) TestFinishingGameReleasesClaims() {
	for _, id := range []model.PlayerID{"alice", "bob"} {
		p, _ := s.storage.GetPlayer(s.ctx, id)
		p.ActiveGame = "g1"
		s.Require().NoError(s.storage.UpdatePlayer(s.ctx, p))
	}
	game, _ := s.storage.GetGame(s.ctx, "g1")
	game.Turn = s.params.TurnsPerYear
	game.Year = s.params.StartYear + s.params.YearsPerGame - 1
	game.CurrentPlayer = 1
	s.Require().NoError(s.storage.UpdateGame(s.ctx, game))

	result, err := s.play("bob", model.PassAction{})
	s.Require().NoError(err)
	s.Equal(model.GameStatusFinished, result.Game.Status)
	s.Empty(result.Player.ActiveGame)

	for _, id := range []model.PlayerID{"alice", "bob"} {
		p, _ := s.storage.GetPlayer(s.ctx, id)
		s.Empty(p.ActiveGame, "player %s", id)
	}
}
