package main

import (
	"github.com/spf13/cobra"
)

func runCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the live fatigue monitor",
		Long:  "Capture frames from the camera, track fatigue signals and serve the control API, event stream and metrics.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(c.settings, c.logger)
			if err != nil {
				return err
			}
			return svc.run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.String("listen", "", "HTTP listen address")
	flags.Int("camera", 0, "Camera device index")
	flags.Int("fps", 0, "Capture rate in frames per second")
	mustBind(c.v, "server.listen", flags.Lookup("listen"))
	mustBind(c.v, "camera.device", flags.Lookup("camera"))
	mustBind(c.v, "camera.fps", flags.Lookup("fps"))

	return cmd
}
