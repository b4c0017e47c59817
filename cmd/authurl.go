/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"

	"github.com/blacktop/postkit/internal/config"
	"github.com/blacktop/postkit/internal/oauth"
	"github.com/blacktop/postkit/internal/publish"
	"github.com/spf13/cobra"
)

func newAuthURLCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "auth-url <platform>",
		Short:     "Print the OAuth authorization URL for a platform",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(publish.LinkedIn), string(publish.Facebook), string(publish.Instagram)},
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := publish.ParsePlatform(args[0])
			if err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			authURL, err := buildExchanger(cfg).AuthCodeURL(platform, oauth.NewState())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), authURL)
			return nil
		},
	}
}
