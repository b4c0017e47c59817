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
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blacktop/postkit/internal/config"
	"github.com/blacktop/postkit/internal/logutil"
	"github.com/blacktop/postkit/internal/publish"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	captionFlag  string
	hashtagsFlag []string
	imageURL     string
	targetsFlag  []string
	userFlag     string
	batchFile    string
	simulate     bool
	maxAttempts  int
	configPath   string
	verbose      bool
)

const defaultUser = "default"

// Execute runs the root command.
func Execute() error {
	return newRootCommand().Execute()
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "postkit [caption]",
		Short: "Publish generated posts to social networks",
		Long: "postkit publishes platform-specific post drafts to LinkedIn, Facebook, Instagram, " +
			"Mastodon and Bluesky, one platform at a time with retries. Provide a caption as an " +
			"argument, with --caption, on stdin, or a whole batch with --file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logutil.SetVerbose(verbose)
		},
		RunE: runRoot,
		Example: `  postkit --caption "We're hiring!" --hashtag "#jobs" --target linkedin
  postkit "Launch day" --image-url https://example.com/shot.png --target facebook --target instagram
  postkit --file posts.yaml --user acme
  echo "Release shipped" | postkit --target all --simulate`,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a postkit.yaml config file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Enable debug logging")

	cmd.Flags().StringVarP(&captionFlag, "caption", "m", "", "Caption text to post")
	cmd.Flags().StringSliceVar(&hashtagsFlag, "hashtag", nil, "Hashtags to append (repeatable)")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "Public URL of an image to attach")
	cmd.Flags().StringSliceVarP(&targetsFlag, "target", "t", nil, "Platforms to post to ("+strings.Join(platformNames(), ", ")+", or all)")
	cmd.Flags().StringVarP(&userFlag, "user", "u", defaultUser, "User whose stored credentials are used")
	cmd.Flags().StringVarP(&batchFile, "file", "f", "", "YAML file with a batch of posts")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "Demo mode: report success without calling any API")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Publish attempts per platform (default from config)")
	cmd.Flags().SortFlags = false

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newAuthURLCommand())
	cmd.AddCommand(newCompletionCommand())

	return cmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if strings.EqualFold(cfg.LogLevel, "debug") {
		logutil.SetVerbose(true)
	}

	targets, err := normalizeTargets(targetsFlag)
	if err != nil {
		return err
	}

	req := publish.Request{
		UserID:    userFlag,
		Platforms: targets,
	}

	if batchFile != "" {
		if captionFlag != "" || len(args) > 0 {
			return errors.New("provide either a caption or --file, not both")
		}
		batch, err := loadBatch(batchFile)
		if err != nil {
			return err
		}
		req.Posts = batch.Posts
		if batch.User != "" && !cmd.Flags().Changed("user") {
			req.UserID = batch.User
		}
	} else {
		caption, err := resolveCaption(cmd, args)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			return errors.New("no targets selected")
		}
		req.Posts = []publish.Post{{
			Caption:  caption,
			Hashtags: normalizeHashtags(hashtagsFlag),
			ImageURL: strings.TrimSpace(imageURL),
		}}
	}

	if maxAttempts > 0 {
		cfg.Publish.MaxAttempts = maxAttempts
	}

	progress := publish.WithObserver(publish.WriterObserver{Out: cmd.OutOrStdout()})

	var orc *publish.Orchestrator
	if simulate {
		fmt.Fprintln(cmd.OutOrStdout(), "[simulate] no API calls will be made")
		orc = publish.NewSimulation(progress)
	} else {
		built, closeStore, err := buildOrchestrator(ctx, cfg, progress)
		if err != nil {
			return err
		}
		defer closeStore()
		orc = built
	}

	report := orc.Run(ctx, req)
	return summarize(cmd.OutOrStdout(), report)
}

func summarize(out io.Writer, report publish.Report) error {
	if len(report.Results) == 0 {
		return errors.New("no posts matched the selected targets")
	}
	for _, res := range report.Failed() {
		fmt.Fprintf(out, "  %s: %s\n", res.Platform, res.Error)
	}
	return report.Err()
}

func resolveCaption(cmd *cobra.Command, args []string) (string, error) {
	var caption string

	if captionFlag != "" {
		caption = captionFlag
	}

	if len(args) > 0 {
		if caption != "" {
			return "", errors.New("provide the caption either as an argument or with --caption, not both")
		}
		caption = strings.Join(args, " ")
	}

	if caption != "" {
		return strings.TrimSpace(caption), nil
	}

	stdin := cmd.InOrStdin()
	if file, ok := stdin.(*os.File); ok && !term.IsTerminal(int(file.Fd())) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		caption = strings.TrimSpace(string(data))
	}

	if caption == "" {
		return "", errors.New("caption is required")
	}

	return caption, nil
}

func platformNames() []string {
	names := make([]string, 0, len(publish.Platforms))
	for _, p := range publish.Platforms {
		names = append(names, string(p))
	}
	return names
}

func normalizeTargets(values []string) ([]publish.Platform, error) {
	result := make([]publish.Platform, 0, len(values))
	seen := map[publish.Platform]struct{}{}
	for _, raw := range values {
		raw = strings.TrimSpace(strings.ToLower(raw))
		if raw == "" {
			continue
		}
		if raw == "all" {
			return append([]publish.Platform(nil), publish.Platforms...), nil
		}
		p, err := publish.ParsePlatform(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		result = append(result, p)
	}

	return result, nil
}

func normalizeHashtags(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if !strings.HasPrefix(v, "#") {
			v = "#" + v
		}
		out = append(out, v)
	}
	return out
}
