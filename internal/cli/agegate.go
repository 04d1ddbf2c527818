package cli

import (
	"github.com/spf13/cobra"
)

func newAgeGateCommand(get func() *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "age-gate",
		Short: "Adult content acknowledgement",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show whether the 18+ notice was accepted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				e := get()
				verified := e.session.AgeVerified()
				return e.fields(map[string]bool{"ageVerified": verified}, "Age verified", yesNo(verified))
			},
		},
		&cobra.Command{
			Use:   "accept",
			Short: "Confirm you are 18 or older",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				e := get()
				if err := e.session.AcknowledgeAge(); err != nil {
					return err
				}
				e.message("age verified")
				return nil
			},
		},
	)
	return cmd
}
