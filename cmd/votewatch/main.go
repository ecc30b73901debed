package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"votewatch/internal/collect"
	"votewatch/internal/config"
	"votewatch/internal/deliver"
	"votewatch/internal/history"
	"votewatch/internal/pipeline"
	"votewatch/internal/publish"
	"votewatch/internal/publish/queue"
	"votewatch/internal/registry"
	"votewatch/internal/scrape"
)

const usage = `usage: votewatch <command> [flags]

commands:
  run              collect votes, persist the daily snapshot, deliver the report
  add-question     register a new tracked question
  publish-article  publish curated articles to the cloud backend
  enqueue-draft    convert a markdown article and stage it as a CMS draft
  flush-drafts     upload pending CMS drafts
  og-image         print a page's social preview image URL
`

func main() {
	// Local .env keeps tokens out of the config file.
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(ctx, os.Args[2:])
	case "add-question":
		err = addQuestionCmd(os.Args[2:])
	case "publish-article":
		err = publishArticleCmd(ctx, os.Args[2:])
	case "enqueue-draft":
		err = enqueueDraftCmd(ctx, os.Args[2:])
	case "flush-drafts":
		err = flushDraftsCmd(ctx, os.Args[2:])
	case "og-image":
		err = ogImageCmd(ctx, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func loadConfig(fs *flag.FlagSet, args []string) (config.Config, *flag.FlagSet, error) {
	cfgPath := fs.String("config", "votewatch.yaml", "path to config file")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, fs, nil
}

func runCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "compute and persist, skip report delivery")
	cfg, _, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	deps := pipeline.Deps{
		Registry:  registry.New(cfg.QuestionsPath()),
		History:   history.New(cfg.HistoryPath()),
		Collector: newCollector(cfg.Collector),
		Logger:    slog.Default(),
	}
	if !*dryRun && cfg.Telegram.Enabled {
		if err := cfg.ValidateDelivery(); err != nil {
			return err
		}
		deps.Sender = deliver.NewTelegram(deliver.TelegramConfig{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
		})
	}

	res, err := pipeline.Run(ctx, deps)
	if err != nil {
		return err
	}

	fmt.Println(res.Report)
	if *dryRun {
		slog.Info("dry run: delivery skipped")
	}
	if res.DeliveryErr != nil {
		// Stats are safe on disk; a failed send is reported, not fatal.
		slog.Warn("report not delivered", "error", res.DeliveryErr)
	}
	return nil
}

func newCollector(cfg config.CollectorConfig) collect.Collector {
	switch cfg.Mode {
	case config.ModeBrowser:
		return collect.NewBrowser(collect.BrowserConfig{
			StatsURL:  cfg.StatsURL,
			RemoteURL: cfg.BrowserURL,
		})
	case config.ModeFile:
		return &collect.File{Path: cfg.ReadingsFile}
	default:
		return collect.NewFunction(collect.FunctionConfig{
			URL:     cfg.FunctionURL,
			Timeout: cfg.Timeout,
		})
	}
}

func addQuestionCmd(args []string) error {
	fs := flag.NewFlagSet("add-question", flag.ExitOnError)
	cfg, fs, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return fmt.Errorf("usage: votewatch add-question [-config path] <id> <text>")
	}
	id, text := rest[0], rest[1]

	reg := registry.New(cfg.QuestionsPath())
	if err := reg.Add(id, text); err != nil {
		if errors.Is(err, registry.ErrDuplicate) {
			slog.Info("question already exists", "id", id)
			return nil
		}
		return err
	}
	slog.Info("question added", "id", id)
	return nil
}

func publishArticleCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("publish-article", flag.ExitOnError)
	date := fs.String("date", time.Now().Format("2006-01-02"), "publication date")
	file := fs.String("file", "", "radar items JSON file")
	cfg, _, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("usage: votewatch publish-article -date YYYY-MM-DD -file items.json")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read items: %w", err)
	}
	var items []publish.RadarItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("parse items: %w", err)
	}

	articles := make([]publish.Article, 0, len(items))
	for _, item := range items {
		articles = append(articles, publish.ConvertArticle(item))
	}

	p := publish.NewCloudBase(publish.CloudBaseConfig{URL: cfg.CloudBase.URL, APIKey: cfg.CloudBase.APIKey})
	inserted, err := p.Publish(ctx, *date, articles)
	if err != nil {
		return err
	}
	slog.Info("articles published", "date", *date, "inserted", inserted)
	return nil
}

func enqueueDraftCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("enqueue-draft", flag.ExitOnError)
	file := fs.String("file", "", "markdown article file")
	title := fs.String("title", "", "article title (default: first heading)")
	author := fs.String("author", "", "article author")
	digest := fs.String("digest", "", "article digest")
	sourceURL := fs.String("source-url", "", "original article URL")
	voteURL := fs.String("vote-url", "", "vote page URL for the call-to-action block")
	voteQuestion := fs.String("vote-question", "", "vote question for the call-to-action block")
	cfg, _, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("usage: votewatch enqueue-draft -file article.md [flags]")
	}

	md, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read article: %w", err)
	}

	var vote *publish.VoteBlock
	if *voteURL != "" && *voteQuestion != "" {
		vote = &publish.VoteBlock{URL: *voteURL, Question: *voteQuestion}
	}
	body := publish.MarkdownToHTML(string(md), vote)

	q, err := queue.Open(cfg.DraftQueuePath())
	if err != nil {
		return err
	}
	defer q.Close()

	if *title == "" {
		*title = publish.Title(string(md))
	}

	id, err := q.Enqueue(ctx, queue.Draft{
		Title:       *title,
		Author:      *author,
		Digest:      *digest,
		ContentHTML: publish.WrapArticle(body),
		SourceURL:   *sourceURL,
	})
	if err != nil {
		return err
	}
	slog.Info("draft staged", "id", id)
	return nil
}

func flushDraftsCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("flush-drafts", flag.ExitOnError)
	cfg, _, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	q, err := queue.Open(cfg.DraftQueuePath())
	if err != nil {
		return err
	}
	defer q.Close()

	pending, err := q.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		slog.Info("no pending drafts")
		return nil
	}

	w := publish.NewWeChat(publish.WeChatConfig{AppID: cfg.WeChat.AppID, AppSecret: cfg.WeChat.AppSecret})
	for _, d := range pending {
		var thumbID string
		if d.ThumbPath != "" {
			img, err := os.ReadFile(d.ThumbPath)
			if err != nil {
				return fmt.Errorf("read cover %s: %w", d.ThumbPath, err)
			}
			thumbID, err = w.UploadImage(ctx, "cover.png", img)
			if err != nil {
				return fmt.Errorf("upload cover for %s: %w", d.ID, err)
			}
		}
		mediaID, err := w.AddDraft(ctx, []publish.Draft{{
			Title:     d.Title,
			Author:    d.Author,
			Digest:    d.Digest,
			Content:   d.ContentHTML,
			SourceURL: d.SourceURL,
		}}, thumbID)
		if err != nil {
			return fmt.Errorf("upload draft %s: %w", d.ID, err)
		}
		if err := q.MarkSent(ctx, d.ID, mediaID, time.Now()); err != nil {
			return err
		}
		slog.Info("draft uploaded", "id", d.ID, "media_id", mediaID)
	}
	return nil
}

func ogImageCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("og-image", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: votewatch og-image <url>")
	}
	img, err := scrape.OGImage(ctx, fs.Arg(0), scrape.OGImageConfig{})
	if err != nil {
		return err
	}
	fmt.Println(img)
	return nil
}
