package turn

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mcoot/bubble/internal/model"
)

// Request field names
const (
	FieldAction      = "action"
	FieldAmount      = "amount"
	FieldCoordinates = "coordinates"
	FieldType        = "type"
	FieldLevel       = "level"
)

// actionAliases maps legacy client spellings onto action kinds
var actionAliases = map[string]model.ActionKind{
	"ASK_LOAD": model.ActionAskLoan,
}

// ParseAction builds an action from flat request values. Fields are checked
// in declaration order and the first absent one is reported before any value
// is interpreted.
func ParseAction(values url.Values) (model.Action, error) {
	raw, err := fields(values, FieldAction)
	if err != nil {
		return nil, err
	}

	kind := model.ActionKind(strings.ToUpper(raw[0]))
	if alias, ok := actionAliases[string(kind)]; ok {
		kind = alias
	}

	switch kind {
	case model.ActionPass:
		return model.PassAction{}, nil

	case model.ActionAskLoan, model.ActionPayLoan:
		raw, err := fields(values, FieldAmount)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(raw[0])
		if err != nil {
			return nil, err
		}
		if kind == model.ActionAskLoan {
			return model.AskLoanAction{Amount: amount}, nil
		}
		return model.PayLoanAction{Amount: amount}, nil

	case model.ActionDestroy:
		raw, err := fields(values, FieldCoordinates)
		if err != nil {
			return nil, err
		}
		at, err := model.ParseCoordinates(raw[0])
		if err != nil {
			return nil, err
		}
		return model.DestroyAction{At: at}, nil

	case model.ActionUpgrade:
		raw, err := fields(values, FieldCoordinates, FieldLevel)
		if err != nil {
			return nil, err
		}
		at, err := model.ParseCoordinates(raw[0])
		if err != nil {
			return nil, err
		}
		level, err := parseLevel(raw[1])
		if err != nil {
			return nil, err
		}
		return model.UpgradeAction{At: at, Level: level}, nil

	case model.ActionBuild:
		raw, err := fields(values, FieldCoordinates, FieldType, FieldLevel)
		if err != nil {
			return nil, err
		}
		at, err := model.ParseCoordinates(raw[0])
		if err != nil {
			return nil, err
		}
		bt, err := model.ParseBuildingType(raw[1])
		if err != nil {
			return nil, err
		}
		level, err := parseLevel(raw[2])
		if err != nil {
			return nil, err
		}
		return model.BuildAction{At: at, Type: bt, Level: level}, nil
	}

	return nil, fmt.Errorf("%w: %q", model.ErrUnknownAction, raw[0])
}

// fields returns the named values in order, failing on the first one absent
func fields(values url.Values, names ...string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if !values.Has(name) {
			return nil, model.MissingField(name)
		}
		v := strings.TrimSpace(values.Get(name))
		if v == "" {
			return nil, model.EmptyField(name)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseAmount(raw string) (int64, error) {
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || amount <= 0 {
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidAmount, raw)
	}
	return amount, nil
}

func parseLevel(raw string) (int, error) {
	level, err := strconv.Atoi(raw)
	if err != nil || level < 1 {
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidLevel, raw)
	}
	return level, nil
}
