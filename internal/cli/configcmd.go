package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigOptions holds flags for the config command.
type ConfigOptions struct {
	*RootOptions
	Write string
}

// ConfigWritten reports where config --write saved the file.
type ConfigWritten struct {
	Path string `json:"path"`
}

func (w ConfigWritten) String() string {
	return fmt.Sprintf("wrote %s", w.Path)
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration in effect after applying flags to the config
file. Text output is TOML; --format json wraps the same values in the
usual JSON envelope. With --write, save it as TOML to a file instead.

Examples:
  qexpr config
  qexpr --format json config
  qexpr --verbose config --write qexpr.toml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)

			if opts.Write != "" {
				if err := opts.Config.Save(opts.Write); err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write config", err)
				}
				return formatter.Success(ConfigWritten{Path: opts.Write})
			}

			if formatter.Format == "json" {
				return formatter.Success(opts.Config)
			}

			data, err := opts.Config.Encode()
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeEncodeFailed, "failed to encode config", err)
			}
			_, err = formatter.Writer.Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.Write, "write", "", "write the configuration to this file")

	return cmd
}
