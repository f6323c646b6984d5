package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mpv-chat-remote/config"
	"mpv-chat-remote/mpv"
)

var (
	socketPath string
	ipcTimeout time.Duration

	getCmd = &cobra.Command{
		Use:   "get <property>",
		Short: "Print a property of the running player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			newLogger("warn")
			raw, err := playerClient().GetProperty(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(raw) == 0 {
				raw = json.RawMessage("null")
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}

	sendCmd = &cobra.Command{
		Use:   "send <arg>...",
		Short: "Send a raw command array to the player",
		Long: `Send a raw command array to the player and print the reply.
Each argument that parses as JSON is sent as that value, anything else as a string:

  mpv-remote send set_property pause true`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			newLogger("warn")
			reply, err := playerClient().SendCommand(cmd.Context(), commandArgs(args)...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
)

func init() {
	for _, c := range []*cobra.Command{getCmd, sendCmd} {
		c.Flags().StringVar(&socketPath, "socket", config.Getenv("MPV_SOCKET", mpv.DefaultSocketPath), "mpv IPC socket path")
		c.Flags().DurationVar(&ipcTimeout, "timeout", 5*time.Second, "request timeout (0 waits forever)")
	}
}

func playerClient() *mpv.Client {
	return mpv.NewClient(mpv.NewSocketTransport(socketPath, ipcTimeout))
}

func commandArgs(args []string) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		var v any
		if err := json.Unmarshal([]byte(a), &v); err == nil {
			out = append(out, v)
			continue
		}
		out = append(out, a)
	}
	return out
}
