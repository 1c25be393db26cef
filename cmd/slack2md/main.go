// Command slack2md exports a Slack conversation to a Markdown document.
//
// The channel may be given as an ID or as a Slack archive URL.  Credentials
// are taken from SLACK_TOKEN and SLACK_COOKIE, or from a .env file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/rusq/fsadapter"
	"github.com/schollz/progressbar/v3"

	"github.com/s2md/slack2md"
	"github.com/s2md/slack2md/auth"
	"github.com/s2md/slack2md/internal/frontmatter"
	"github.com/s2md/slack2md/internal/store"
	"github.com/s2md/slack2md/internal/structures"
)

var (
	lastN     = flag.Int("n", 0, "export only the last `N` messages")
	fromDate  = flag.String("from", "", "oldest message date, `YYYY-MM-DD`")
	toDate    = flag.String("to", "", "latest message date, `YYYY-MM-DD`")
	reactions = flag.Bool("reactions", true, "include reactions")
	files     = flag.Bool("files", true, "include file references")
	threads   = flag.Bool("threads", true, "include thread replies")
	withFM    = flag.Bool("frontmatter", true, "prepend YAML frontmatter")
	tmplFile  = flag.String("templates", "", "frontmatter template store `file`")
	output    = flag.String("o", "-", "output `file`, \"-\" for stdout")
	envFile   = flag.String("env", "", ".env `file` with SLACK_TOKEN and SLACK_COOKIE")
	cacheDir  = flag.String("cache-dir", defCacheDir(), "user cache `directory`, empty to disable")
	verbose   = flag.Bool("v", false, "verbose output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <channel ID or URL>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	lvl := slog.LevelInfo
	if *verbose {
		lvl = slog.LevelDebug
	}
	lg := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(lg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, lg, flag.Arg(0)); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error: "+err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *slog.Logger, channelArg string) error {
	if channelArg == "" {
		flag.Usage()
		return errors.New("channel argument is required")
	}
	channelID, err := structures.ParseChannelArg(channelArg)
	if err != nil {
		return err
	}

	prov, err := provider()
	if err != nil {
		return err
	}
	scope, err := scope()
	if err != nil {
		return err
	}

	opts := []slack2md.Option{slack2md.WithLogger(lg)}
	if *cacheDir != "" {
		st, err := store.NewFile(*cacheDir)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		opts = append(opts, slack2md.WithStore(st))
	}
	if *tmplFile != "" {
		ts, err := frontmatter.Load(*tmplFile)
		if err != nil {
			return err
		}
		opts = append(opts, slack2md.WithTemplates(ts))
	}

	sess, err := slack2md.New(prov, opts...)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("starting"),
		progressbar.OptionSpinnerType(8),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Finish()

	res, err := sess.Export(ctx, slack2md.Request{
		ChannelID:          channelID,
		Scope:              scope,
		IncludeReactions:   *reactions,
		IncludeFiles:       *files,
		IncludeThreads:     *threads,
		IncludeFrontmatter: *withFM,
		OnProgress: func(p slack2md.Progress) {
			if p.Total > 0 {
				bar.ChangeMax(p.Total)
				bar.Set(p.Current)
			}
			bar.Describe(p.Phase)
		},
	})
	if err != nil {
		return err
	}
	bar.Clear()

	if err := write(*output, res.Markdown); err != nil {
		return err
	}
	lg.Info("export complete", "messages", res.MessageCount, "output", *output)
	return nil
}

// provider builds the auth provider from the .env file or the
// environment.
func provider() (auth.Provider, error) {
	if *envFile != "" {
		token, cookie, err := auth.ParseDotEnv(*envFile)
		if err != nil {
			return nil, err
		}
		return auth.NewValueAuth(token, cookie)
	}
	return auth.NewEnvAuth()
}

// scope derives the export scope from the -n/-from/-to flags.
func scope() (slack2md.Scope, error) {
	if *lastN > 0 {
		return slack2md.LastN(*lastN), nil
	}
	if *fromDate == "" && *toDate == "" {
		return slack2md.All(), nil
	}
	oldest, err := parseDate(*fromDate, time.Time{})
	if err != nil {
		return slack2md.Scope{}, fmt.Errorf("-from: %w", err)
	}
	latest, err := parseDate(*toDate, time.Now())
	if err != nil {
		return slack2md.Scope{}, fmt.Errorf("-to: %w", err)
	}
	// make the -to day inclusive
	if *toDate != "" {
		latest = latest.AddDate(0, 0, 1).Add(-time.Second)
	}
	return slack2md.Between(oldest, latest), nil
}

func parseDate(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	return time.Parse("2006-01-02", s)
}

func write(path, markdown string) error {
	if path == "-" {
		_, err := fmt.Println(markdown)
		return err
	}
	fsa, err := fsadapter.New(filepath.Dir(path))
	if err != nil {
		return err
	}
	defer fsa.Close()
	f, err := fsa.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(markdown))
	return err
}

func defCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "slack2md")
}
