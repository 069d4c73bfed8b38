package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/bubble/internal/config"
	"github.com/mcoot/bubble/internal/dependencies/mocks"
	"github.com/mcoot/bubble/internal/model"
	"github.com/mcoot/bubble/internal/storage/memory"
	"github.com/mcoot/bubble/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Raw is the unbounded backing store, for seeding and inspection
	Raw *memory.Storage

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithParams(model.DefaultGameParams())
}

// NewTestAppWithParams creates a test App with custom game rules
func NewTestAppWithParams(params model.GameParams) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, mockClock, mockRandom, params, Config{BcryptCost: bcrypt.MinCost}, testutil.NopLogger())
	app.StorageType = config.StorageTypeMemory

	return &TestApp{
		App:        app,
		Raw:        store,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
