package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/r3labs/diff/v3"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	mcedia "github.com/tobyprime/Mcedia-sub001"
	"github.com/tobyprime/Mcedia-sub001/async"
	"github.com/tobyprime/Mcedia-sub001/internal/cache"
	"github.com/tobyprime/Mcedia-sub001/resolvers"
)

const probeBytes = 8 << 20

func main() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := config.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &cli.App{
		Name:  "mcedia",
		Usage: "resolve media page URLs into playable streams",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "allow-direct",
				Usage: "also accept plain media file URLs",
			},
			&cli.StringFlag{
				Name:  "cookie",
				Usage: "auth cookie passed through to platforms",
			},
			&cli.IntFlag{
				Name:  "quality",
				Value: mcedia.DefaultConfig.QualityCeiling,
				Usage: "quality ceiling (platform quality id scale)",
			},
			&cli.StringFlag{
				Name:  "cache",
				Usage: "cache resolved media in `FILE`",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "resolve",
				Usage:     "resolve one or more URLs and print the stream info",
				ArgsUsage: "URL...",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return fmt.Errorf("no URLs given")
					}
					return withPipeline(c, func(pipeline *mcedia.Pipeline, store *cache.Cache) error {
						for _, rawURL := range c.Args().Slice() {
							info, err := resolveOne(ctx, pipeline, rawURL)
							if err != nil {
								return err
							}
							printInfo(info)
							if store != nil {
								if err := store.Put(rawURL, info); err != nil {
									zap.S().Warnf("failed to cache result: %v", err)
								}
								if err := store.AppendHistory(rawURL, info); err != nil {
									zap.S().Warnf("failed to record history: %v", err)
								}
							}
						}
						return nil
					})
				},
			},
			{
				Name:      "probe",
				Usage:     "resolve a URL and fetch the start of the stream to verify it plays",
				ArgsUsage: "URL",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected exactly one URL")
					}
					return withPipeline(c, func(pipeline *mcedia.Pipeline, _ *cache.Cache) error {
						info, err := resolveOne(ctx, pipeline, c.Args().First())
						if err != nil {
							return err
						}
						return probe(ctx, info)
					})
				},
			},
			{
				Name:  "settings",
				Usage: "list the available settings and their defaults",
				Action: func(c *cli.Context) error {
					cfg := buildConfig(c)
					for _, s := range mcedia.Settings() {
						fmt.Printf("%-32s %s\n", s.Name, s.Get(&cfg))
					}
					return nil
				},
			},
			{
				Name:  "history",
				Usage: "show recently resolved media (requires --cache)",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: func(c *cli.Context) error {
					if c.String("cache") == "" {
						return fmt.Errorf("history requires --cache")
					}
					store, err := cache.Open(c.String("cache"))
					if err != nil {
						return err
					}
					defer store.Close()
					entries, err := store.History(c.Int("limit"))
					if err != nil {
						return err
					}
					for _, e := range entries {
						fmt.Printf("%s  %-12s %s  %s\n", e.WatchedAt.Format(time.DateTime), e.Platform, e.Title, e.URL)
					}
					return nil
				},
			},
		},
		HideHelpCommand: true,
	}

	result := async.Run(func() error { return app.RunContext(ctx, os.Args) })

	select {
	case err = <-result:
		if err != nil {
			logger.Fatal(err.Error())
		}
	case <-ctx.Done():
		stop()
		err = <-result
		if err != nil {
			logger.Fatal(err.Error())
		}
	}
}

func buildConfig(c *cli.Context) mcedia.Config {
	cfg := mcedia.DefaultConfig
	cfg.AllowDirectLinks = c.Bool("allow-direct")
	cfg.Cookie = c.String("cookie")
	cfg.QualityCeiling = c.Int("quality")
	return cfg
}

func withPipeline(c *cli.Context, f func(*mcedia.Pipeline, *cache.Cache) error) error {
	pipeline := resolvers.NewPipeline(mcedia.StaticConfig(buildConfig(c)))
	defer pipeline.Close()

	var store *cache.Cache
	if path := c.String("cache"); path != "" {
		var err error
		if store, err = cache.Open(path); err != nil {
			return err
		}
		defer store.Close()
	}
	return f(pipeline, store)
}

// playSnapshot is the externally visible state of a resolution, used to log state changes as
// diffs rather than full dumps.
type playSnapshot struct {
	Status   string
	Title    string
	Platform string
}

func resolveOne(ctx context.Context, pipeline *mcedia.Pipeline, rawURL string) (*mcedia.MediaInfo, error) {
	logger := zap.S()
	logger.Infof("Resolving %s", rawURL)

	play := pipeline.Resolve(rawURL)
	defer play.Close()
	statusSub := play.SubscribeStatus()
	defer statusSub.Close()

	old := playSnapshot{}
	for {
		select {
		case status, ok := <-statusSub.Receive():
			if !ok {
				return nil, fmt.Errorf("resolution aborted")
			}
			snapshot := playSnapshot{Status: status}
			if info := play.Info(); info != nil {
				snapshot.Title = info.Title
				snapshot.Platform = info.Platform
			}
			changes, err := diff.Diff(old, snapshot)
			if err != nil {
				logger.Errorf("failed to diff resolution state: %v", err)
			} else {
				for _, change := range changes {
					logger.Debugf("%v: %#v -> %#v", change.Path, change.From, change.To)
				}
			}
			old = snapshot
			if !play.Loading() {
				if info := play.Info(); info != nil {
					return info, nil
				}
				return nil, fmt.Errorf("resolution failed: %s", status)
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func printInfo(info *mcedia.MediaInfo) {
	fmt.Printf("%s [%s]\n", info.Title, info.Platform)
	if info.Author != "" {
		fmt.Printf("  author:  %s\n", info.Author)
	}
	if info.MultiPart {
		fmt.Printf("  part:    %d %s\n", info.PartNumber, info.PartName)
	}
	fmt.Printf("  stream:  %s\n", info.StreamURL)
	if info.AudioURL != "" {
		fmt.Printf("  audio:   %s\n", info.AudioURL)
	}
	if info.CurrentQuality != nil {
		fmt.Printf("  quality: %s\n", info.CurrentQuality.Label)
	}
	if info.Live {
		fmt.Printf("  live stream\n")
	}
}

// probe downloads the first few megabytes of the stream with the resolved headers, which catches
// streams that resolve but reject playback (referer checks, expired tokens).
func probe(ctx context.Context, info *mcedia.MediaInfo) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.StreamURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range info.Headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("probe failed: HTTP %d", resp.StatusCode)
	}

	bar := progressbar.DefaultBytes(min64(resp.ContentLength, probeBytes), "probing")
	_, err = io.Copy(io.MultiWriter(io.Discard, bar), io.LimitReader(resp.Body, probeBytes))
	if err != nil {
		return fmt.Errorf("probe read failed: %w", err)
	}
	zap.S().Infof("Stream responds correctly")
	return nil
}

func min64(a, b int64) int64 {
	if a >= 0 && a < b {
		return a
	}
	return b
}
