package turn

import (
	"fmt"
	"math"

	"github.com/mcoot/bubble/internal/model"
)

// apply executes an action against in-memory copies of the game and the
// acting player. On error the copies may be partially modified and must be
// discarded.
func apply(g *model.Game, p *model.Player, action model.Action, params model.GameParams) error {
	if model.IsMapAction(action) && g.ActionDone {
		return model.ErrActionAlreadyDone
	}

	var err error
	switch a := action.(type) {
	case model.PassAction:
		g.AdvancePlayer(params)
	case model.AskLoanAction:
		err = askLoan(p, a.Amount)
	case model.PayLoanAction:
		err = payLoan(p, a.Amount)
	case model.DestroyAction:
		err = destroy(g, p, a.At)
	case model.UpgradeAction:
		err = upgrade(g, p, a.At, a.Level, params)
	case model.BuildAction:
		err = build(g, p, a.At, a.Type, a.Level, params)
	default:
		return fmt.Errorf("%w: %T", model.ErrUnknownAction, action)
	}
	if err != nil {
		return err
	}

	if model.IsMapAction(action) {
		g.ActionDone = true
	}
	return nil
}

func askLoan(p *model.Player, amount int64) error {
	if amount <= 0 {
		return model.ErrInvalidAmount
	}
	if amount > math.MaxInt64-p.Debt || amount > math.MaxInt64-p.Money {
		return fmt.Errorf("%w: %d would overflow the balance", model.ErrInvalidAmount, amount)
	}
	p.Debt += amount
	p.Money += amount
	return nil
}

// payLoan repays up to amount, never more than the outstanding debt
func payLoan(p *model.Player, amount int64) error {
	if amount <= 0 {
		return model.ErrInvalidAmount
	}
	if p.Money < amount {
		return model.ErrInsufficientFunds
	}
	paid := min(amount, p.Debt)
	p.Money -= paid
	p.Debt -= paid
	return nil
}

func destroy(g *model.Game, p *model.Player, at model.Coordinates) error {
	if !g.Map.InBounds(at) {
		return model.ErrOutOfBounds
	}
	if !g.Map.Get(at).IsOwnedBy(p.ID) {
		return model.ErrNotCellOwner
	}
	g.Map.Clear(at)
	return nil
}

func upgrade(g *model.Game, p *model.Player, at model.Coordinates, level int, params model.GameParams) error {
	if !g.Map.InBounds(at) {
		return model.ErrOutOfBounds
	}
	cell := g.Map.Get(at)
	if !cell.IsOwnedBy(p.ID) {
		return model.ErrNotCellOwner
	}
	current := cell.CurrentLevel()
	if level <= current || level > params.MaxLevel {
		return fmt.Errorf("%w: %d (current %d, max %d)", model.ErrInvalidLevel, level, current, params.MaxLevel)
	}

	delta := level - current
	if err := spend(p, params.LevelCost(*cell.Type, delta)); err != nil {
		return err
	}
	g.Map.SetLevel(at, level)
	p.AccumulatedPoints += int64(delta)
	return nil
}

func build(g *model.Game, p *model.Player, at model.Coordinates, bt model.BuildingType, level int, params model.GameParams) error {
	if !g.Map.InBounds(at) {
		return model.ErrOutOfBounds
	}
	if !g.Map.Get(at).IsEmpty() {
		return model.ErrCellOccupied
	}
	if level < 1 || level > params.MaxLevel {
		return fmt.Errorf("%w: %d (max %d)", model.ErrInvalidLevel, level, params.MaxLevel)
	}

	if err := spend(p, params.LevelCost(bt, level)); err != nil {
		return err
	}
	g.Map.Build(at, bt, level, p.ID)
	p.AccumulatedPoints += int64(level)
	return nil
}

func spend(p *model.Player, cost int64) error {
	if p.Money < cost {
		return fmt.Errorf("%w: need %d, have %d", model.ErrInsufficientFunds, cost, p.Money)
	}
	p.Money -= cost
	return nil
}
