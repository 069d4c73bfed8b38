package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bubble/internal/model"
	"github.com/mcoot/bubble/internal/storage"
	"github.com/mcoot/bubble/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	storage *Storage
	path    string
}

func TestStorageSuite(t *testing.T) {
	s := new(StorageSuite)
	s.NewStorage = func() storage.Storage {
		s.path = filepath.Join(s.T().TempDir(), "bubble.db")
		store, err := Open(context.Background(), s.path)
		s.Require().NoError(err)
		s.storage = store
		return store
	}
	suite.Run(t, s)
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}

func (s *StorageSuite) TestReopenKeepsDataAndSkipsAppliedMigrations() {
	s.Require().NoError(s.Store.CreatePlayer(s.Ctx, &model.Player{ID: "alice", Money: 5}))
	s.Require().NoError(s.storage.Close())

	reopened, err := Open(s.Ctx, s.path)
	s.Require().NoError(err)
	s.storage = reopened

	got, err := reopened.GetPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(5), got.Money)

	var applied int
	s.Require().NoError(reopened.sqlDB.QueryRowContext(s.Ctx,
		"SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	s.Equal(1, applied)
}

func (s *StorageSuite) TestStatusColumnTracksDocument() {
	game := &model.Game{ID: "g1", Status: model.GameStatusWaiting}
	s.Require().NoError(s.Store.CreateGame(s.Ctx, game))

	game.Status = model.GameStatusPlaying
	s.Require().NoError(s.Store.UpdateGame(s.Ctx, game))

	var status string
	s.Require().NoError(s.storage.sqlDB.QueryRowContext(s.Ctx,
		"SELECT status FROM games WHERE game_id = ?", "g1").Scan(&status))
	s.Equal(string(model.GameStatusPlaying), status)
}

func (s *StorageSuite) TestCorruptRecord() {
	_, err := s.storage.sqlDB.ExecContext(s.Ctx,
		`INSERT INTO games (game_id, status, players, version, data) VALUES ('bad', 'WAITING', 0, 1, '{nope')`)
	s.Require().NoError(err)

	_, err = s.Store.GetGame(s.Ctx, "bad")
	s.ErrorIs(err, model.ErrCorruptRecord)
}

func (s *StorageSuite) TestOpenRequiresPath() {
	_, err := Open(s.Ctx, "  ")
	s.Error(err)
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id INTEGER);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (id INTEGER);\n", extractUpMigration(content))
	assert.Equal(t, "SELECT 1;", extractUpMigration("SELECT 1;"))
}
