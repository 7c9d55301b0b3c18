package cli

import (
	"github.com/spf13/cobra"

	"github.com/clipforge/clipforge/internal/video"
)

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List available vendor profiles",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, p := range video.Profiles() {
				if r := p.TimestampRect; r != nil {
					cmd.Printf("%s\ttimestamp at (%.0f%%, %.0f%%) size (%.0f%%, %.0f%%)\n",
						p.ID, r.X, r.Y, r.W, r.H)
				} else {
					cmd.Println(p.ID)
				}
			}
		},
	}
}
