package model

// ActionKind names a turn action on the wire
type ActionKind string

const (
	ActionPass    ActionKind = "PASS"
	ActionAskLoan ActionKind = "ASK_LOAN"
	ActionPayLoan ActionKind = "PAY_LOAN"
	ActionDestroy ActionKind = "DESTROY"
	ActionUpgrade ActionKind = "UPGRADE"
	ActionBuild   ActionKind = "BUILD"
)

// Action is one move submitted by the player whose turn it is.
// The set of implementations is closed: PassAction, AskLoanAction,
// PayLoanAction, DestroyAction, UpgradeAction and BuildAction.
type Action interface {
	Kind() ActionKind
	isAction()
}

// PassAction ends the acting player's turn
type PassAction struct{}

// AskLoanAction borrows money
type AskLoanAction struct {
	Amount int64
}

// PayLoanAction repays debt
type PayLoanAction struct {
	Amount int64
}

// DestroyAction clears an owned cell
type DestroyAction struct {
	At Coordinates
}

// UpgradeAction raises the level of an owned building
type UpgradeAction struct {
	At    Coordinates
	Level int
}

// BuildAction places a new building on an empty cell
type BuildAction struct {
	At    Coordinates
	Type  BuildingType
	Level int
}

func (PassAction) Kind() ActionKind    { return ActionPass }
func (AskLoanAction) Kind() ActionKind { return ActionAskLoan }
func (PayLoanAction) Kind() ActionKind { return ActionPayLoan }
func (DestroyAction) Kind() ActionKind { return ActionDestroy }
func (UpgradeAction) Kind() ActionKind { return ActionUpgrade }
func (BuildAction) Kind() ActionKind   { return ActionBuild }

func (PassAction) isAction()    {}
func (AskLoanAction) isAction() {}
func (PayLoanAction) isAction() {}
func (DestroyAction) isAction() {}
func (UpgradeAction) isAction() {}
func (BuildAction) isAction()   {}

// IsMapAction returns true for actions that change the map
func IsMapAction(a Action) bool {
	switch a.(type) {
	case DestroyAction, UpgradeAction, BuildAction:
		return true
	default:
		return false
	}
}
