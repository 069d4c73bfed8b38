package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Turn actions",
	}

	cmd.AddCommand(newPlayActionCmd("pass <game_id>", "End your turn", "PASS"))
	cmd.AddCommand(newPlayActionCmd("ask-loan <game_id> <amount>", "Borrow money", "ASK_LOAN", "amount"))
	cmd.AddCommand(newPlayActionCmd("pay-loan <game_id> <amount>", "Repay debt", "PAY_LOAN", "amount"))
	cmd.AddCommand(newPlayActionCmd("destroy <game_id> <x,y>", "Demolish one of your buildings", "DESTROY", "coordinates"))
	cmd.AddCommand(newPlayActionCmd("upgrade <game_id> <x,y> <level>", "Raise one of your buildings to a level", "UPGRADE", "coordinates", "level"))
	cmd.AddCommand(newPlayActionCmd("build <game_id> <x,y> <type> <level>", "Build on an empty cell", "BUILD", "coordinates", "type", "level"))

	return cmd
}

// newPlayActionCmd maps positional arguments after the game id onto the
// named query fields of the action
func newPlayActionCmd(use, short, action string, fields ...string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1 + len(fields)),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{"action": {action}}
			for i, field := range fields {
				params.Set(field, args[i+1])
			}

			var result PlayResult
			if err := client.Post(gamePath(args[0], "play"), params, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
