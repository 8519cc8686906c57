package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/folio/internal/tui"
)

// NewTUICommand creates the tui command.
func NewTUICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Edit holdings in the terminal",
		Long: `Open the holdings sheet as a full-screen terminal application.

Cells are edited in place with the same input rules as the web sheet.
Press ? for the key bindings.`,
		Example: `  folio tui
  folio tui --api-url http://nas.local:8000 --base`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			policy, err := cc.Cfg.Sheet.Policy()
			if err != nil {
				return err
			}
			layout, err := loadLayout(cc.Cfg)
			if err != nil {
				return err
			}
			client, err := newClient(cc.Cfg, cc.Logger)
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), tui.Config{
				Backend: client,
				Policy:  policy,
				Layout:  layout,
				Base:    cc.Cfg.Sheet.BaseCurrency,
				Logger:  cc.Logger,
			})
		},
	}

	return cmd
}
