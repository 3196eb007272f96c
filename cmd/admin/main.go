package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-blog/pkg/simpleblog"
	"github.com/tendant/simple-blog/pkg/simpleblog/config"
)

const usage = `Simple Blog Admin CLI

A lightweight admin tool for inspecting posts and managing the content cache.
It talks to the same database, storage and cache the server is configured with.

USAGE:
  admin <command> [arguments] [options]

COMMANDS:
  list                      List posts, newest first
  stats                     Aggregated post statistics
  resolve <identifier>      Show what a post id, version id or slug resolves to
  variants <identifier>     List the language variants of a post
  cache-invalidate <slug>   Drop cached content for a slug
  cache-purge               Drop every cached content entry

ENVIRONMENT VARIABLES:
  DATABASE_URL      PostgreSQL connection string, or "memory" (default: memory)
  DB_SCHEMA         PostgreSQL schema name
  STORAGE_URL       Blob storage: memory, file:///path or s3://bucket
  CACHE_URL         Content cache: none, memory, file:///path, sqlite:///path or redis://host
  CACHE_RETENTION   Retention for entries of a shared cache (e.g. 72h)

  Configuration can be loaded from a .env file in the current directory.
  Command line environment variables override .env file values.

EXAMPLES:
  # List the first page of posts
  admin list

  # List English posts in a category
  admin list --lang=en --category=travel --limit=20

  # Count posts carrying a hashtag
  admin stats --hashtag=go

  # Check how a slug resolves
  admin resolve hello-world

  # Clear the cache after editing content out of band
  admin cache-invalidate hello-world
  admin cache-purge

  # Output as JSON
  admin list --json
  admin stats --json

OPTIONS (for list/stats):
  --page=<n>            Page number (list only, default: 1)
  --limit=<n>           Page size (list only, default: 9, max: 50)
  --lang=<vi|en>        Preferred language of the listed variant (list only)
  --category=<name>     Filter by category
  --hashtag=<id>        Filter by hashtag id
  --json                Output as JSON
`

type options struct {
	page     int
	limit    int
	lang     string
	category string
	hashtag  string
	useJSON  bool
}

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage + "\n")
		os.Exit(1)
	}

	command := os.Args[1]

	// Check for help
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage + "\n")
		os.Exit(0)
	}

	positional, opts := parseArgs(os.Args[2:])

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	// The CLI never creates tables behind the operator's back
	cfg.AutoMigrate = false

	ctx := context.Background()
	comps, err := cfg.Build(ctx)
	if err != nil {
		log.Fatalf("Failed to build service: %v", err)
	}
	defer comps.Close()

	switch command {
	case "list":
		handleList(ctx, comps.Service, opts)
	case "stats":
		handleStats(ctx, comps.Repository, opts)
	case "resolve":
		handleResolve(ctx, comps.Service, requireArg(positional, "identifier"), opts)
	case "variants":
		handleVariants(ctx, comps.Service, requireArg(positional, "identifier"), opts)
	case "cache-invalidate":
		slug := requireArg(positional, "slug")
		comps.Service.InvalidateCache(ctx, slug)
		fmt.Printf("Invalidated cached content for %q\n", slug)
	case "cache-purge":
		comps.Service.PurgeCache(ctx)
		fmt.Println("Purged content cache")
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage + "\n")
		os.Exit(1)
	}
}

func parseArgs(args []string) ([]string, options) {
	opts := options{page: 1, limit: simpleblog.DefaultPageSize}
	var positional []string

	for _, arg := range args {
		if arg == "--json" {
			opts.useJSON = true
			continue
		}

		key, value := parseFlag(arg)
		if key == "" {
			positional = append(positional, arg)
			continue
		}

		switch key {
		case "page":
			if n, err := strconv.Atoi(value); err == nil {
				opts.page = n
			}
		case "limit":
			if n, err := strconv.Atoi(value); err == nil {
				opts.limit = n
			}
		case "lang":
			opts.lang = value
		case "category":
			opts.category = value
		case "hashtag":
			opts.hashtag = value
		}
	}

	return positional, opts
}

func parseFlag(arg string) (string, string) {
	if len(arg) > 2 && arg[:2] == "--" {
		arg = arg[2:]
		for i, c := range arg {
			if c == '=' {
				return arg[:i], arg[i+1:]
			}
		}
		return arg, "true"
	}
	return "", ""
}

func requireArg(positional []string, name string) string {
	if len(positional) == 0 {
		fmt.Printf("Missing <%s> argument\n\n", name)
		fmt.Print(usage + "\n")
		os.Exit(1)
	}
	return positional[0]
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func handleList(ctx context.Context, svc simpleblog.Service, opts options) {
	page, err := svc.ListPosts(ctx, simpleblog.ListPostsRequest{
		Page:     opts.page,
		Limit:    opts.limit,
		Language: opts.lang,
		Category: opts.category,
		Hashtag:  opts.hashtag,
	})
	if err != nil {
		log.Fatalf("Failed to list posts: %v", err)
	}

	if opts.useJSON {
		printJSON(page)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "POST\tLANG\tSLUG\tTITLE\tCATEGORY\tVARIANTS\tCREATED\n")
	fmt.Fprintf(w, "───────────\t────\t────────────────────\t────────────────────\t──────────\t────────\t───────────────────\n")

	for _, item := range page.Items {
		lang, slug, title := "-", "-", "-"
		if item.Version != nil {
			lang = item.Version.EffectiveLanguage().String()
			slug = truncate(item.Version.Slug, 20)
			title = truncate(item.Version.Title, 20)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			item.Post.ID.String()[:8]+"...",
			lang,
			slug,
			title,
			truncate(orDash(item.Post.Category), 10),
			variantLabel(item.Variants),
			item.Post.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	fmt.Printf("\nPage %d of %d (%d posts)", page.Page, page.TotalPages, page.TotalItems)
	if page.HasMore {
		fmt.Printf(", use --page=%d to continue", page.Page+1)
	}
	fmt.Println()
}

type statistics struct {
	TotalCount  int64            `json:"total_count"`
	ByCategory  map[string]int64 `json:"by_category"`
	ByLanguage  map[string]int64 `json:"by_language"`
	Unversioned int64            `json:"posts_without_versions"`
	OldestPost  *time.Time       `json:"oldest_post,omitempty"`
	NewestPost  *time.Time       `json:"newest_post,omitempty"`
	ComputedAt  time.Time        `json:"computed_at"`
}

func handleStats(ctx context.Context, repo simpleblog.Repository, opts options) {
	filter := simpleblog.PostFilter{Category: opts.category, Hashtag: opts.hashtag}

	total, err := repo.CountPosts(ctx, filter)
	if err != nil {
		log.Fatalf("Failed to count posts: %v", err)
	}
	posts, err := repo.ListPosts(ctx, filter)
	if err != nil {
		log.Fatalf("Failed to list posts: %v", err)
	}

	stats := statistics{
		TotalCount: total,
		ByCategory: make(map[string]int64),
		ByLanguage: make(map[string]int64),
		ComputedAt: time.Now().UTC(),
	}
	for _, post := range posts {
		stats.ByCategory[orDash(post.Category)]++

		versions, err := repo.ListVersionsByPost(ctx, post.ID)
		if err != nil {
			log.Fatalf("Failed to list versions of %s: %v", post.ID, err)
		}
		if len(versions) == 0 {
			stats.Unversioned++
		}
		for _, v := range versions {
			stats.ByLanguage[v.EffectiveLanguage().String()]++
		}

		created := post.CreatedAt
		if stats.OldestPost == nil || created.Before(*stats.OldestPost) {
			stats.OldestPost = &created
		}
		if stats.NewestPost == nil || created.After(*stats.NewestPost) {
			stats.NewestPost = &created
		}
	}

	if opts.useJSON {
		printJSON(stats)
		return
	}

	fmt.Println("=== Post Statistics ===")
	fmt.Printf("\nTotal Count: %d\n", stats.TotalCount)

	if len(stats.ByCategory) > 0 {
		fmt.Println("\nBy Category:")
		for _, category := range sortedKeys(stats.ByCategory) {
			fmt.Printf("  %-20s: %d\n", truncate(category, 20), stats.ByCategory[category])
		}
	}

	if len(stats.ByLanguage) > 0 {
		fmt.Println("\nVersions By Language:")
		for _, lang := range sortedKeys(stats.ByLanguage) {
			fmt.Printf("  %-20s: %d\n", lang, stats.ByLanguage[lang])
		}
	}

	if stats.Unversioned > 0 {
		fmt.Printf("\nPosts without versions: %d\n", stats.Unversioned)
	}

	if stats.OldestPost != nil && stats.NewestPost != nil {
		fmt.Println("\nTime Range:")
		fmt.Printf("  Oldest: %s\n", stats.OldestPost.Format(time.RFC3339))
		fmt.Printf("  Newest: %s\n", stats.NewestPost.Format(time.RFC3339))
	}

	fmt.Printf("\nComputed at: %s\n", stats.ComputedAt.Format(time.RFC3339))
}

func handleResolve(ctx context.Context, svc simpleblog.Service, identifier string, opts options) {
	resolution, err := svc.Resolve(ctx, identifier)
	if err != nil {
		log.Fatalf("Failed to resolve %q: %v", identifier, err)
	}

	if opts.useJSON {
		printJSON(map[string]interface{}{
			"resolved_by": resolution.Kind.String(),
			"version":     resolution.Version,
		})
		return
	}

	v := resolution.Version
	fmt.Printf("Resolved by: %s\n", resolution.Kind)
	fmt.Printf("Post ID:     %s\n", v.PostID)
	fmt.Printf("Version ID:  %s\n", v.ID)
	fmt.Printf("Language:    %s\n", v.EffectiveLanguage())
	fmt.Printf("Slug:        %s\n", v.Slug)
	fmt.Printf("Title:       %s\n", v.Title)
	fmt.Printf("Content key: %s\n", simpleblog.ContentKey(v.ID))
}

func handleVariants(ctx context.Context, svc simpleblog.Service, identifier string, opts options) {
	variants, err := svc.ListVariants(ctx, identifier)
	if err != nil {
		log.Fatalf("Failed to list variants of %q: %v", identifier, err)
	}

	if opts.useJSON {
		printJSON(variants)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "VERSION\tLANG\tSLUG\tTITLE\tUPDATED\n")
	for _, v := range variants {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			v.ID.String(),
			v.EffectiveLanguage(),
			v.Slug,
			truncate(v.Title, 30),
			v.UpdatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()
}

func variantLabel(flags simpleblog.VariantFlags) string {
	switch {
	case flags.HasVi && flags.HasEn:
		return "vi,en"
	case flags.HasVi:
		return "vi"
	case flags.HasEn:
		return "en"
	}
	return "-"
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
