package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/cellflow/pkg/cellflow/event"
)

// ruleView is the JSON form of a forward rule.
type ruleView struct {
	Source    string   `json:"source"`
	Target    string   `json:"target"`
	Types     []string `json:"types"`
	Transform bool     `json:"transform"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the default bridge forwarding rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules := event.DefaultRules()
			views := make([]ruleView, 0, len(rules))
			for _, r := range rules {
				views = append(views, ruleView{
					Source:    r.Source,
					Target:    r.Target,
					Types:     r.Types,
					Transform: r.Transform != nil,
				})
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(views, func(w io.Writer) {
				for _, r := range rules {
					fmt.Fprintln(w, r.String())
				}
			})
		},
	}
}
