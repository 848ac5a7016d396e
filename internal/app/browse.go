package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AnhPhix3405/bpsclub-web/internal/clubclient"
	"github.com/AnhPhix3405/bpsclub-web/internal/config"
	"github.com/AnhPhix3405/bpsclub-web/internal/listing"
	"github.com/AnhPhix3405/bpsclub-web/internal/logger"
	"github.com/AnhPhix3405/bpsclub-web/internal/metrics"
)

// browseOptions は browse サブコマンドのオプション。
type browseOptions struct {
	BaseURL  string
	Resource string
	Category string
	Search   string
	Sort     listing.SortKey
	Page     int
	PageSize int
	Mode     clubclient.BrowserMode
	Get      string
	Viewed   string
	Timeout  time.Duration
}

// parseBrowseFlags は browse の引数を解析する。既定値は環境変数から取る。
func parseBrowseFlags(args []string, output io.Writer) (browseOptions, error) {
	fs := flag.NewFlagSet("browse", flag.ContinueOnError)
	fs.SetOutput(output)

	defaultBase := os.Getenv("CLIENT_BASE_URL")
	if defaultBase == "" {
		defaultBase = "http://localhost:8080/api"
	}
	defaultPageSize := listing.DefaultPageSize
	if v, err := strconv.Atoi(os.Getenv("PAGE_SIZE")); err == nil && v > 0 {
		defaultPageSize = v
	}

	var (
		opts    browseOptions
		sortKey string
		mode    string
	)
	fs.StringVar(&opts.BaseURL, "base-url", defaultBase, "API base URL")
	fs.StringVar(&opts.Resource, "resource", "events", "events or blogs")
	fs.StringVar(&opts.Category, "category", listing.AllCategories, "category name")
	fs.StringVar(&opts.Search, "search", "", "search query")
	fs.StringVar(&sortKey, "sort", string(listing.SortLatest), "latest, popular or alphabetical")
	fs.IntVar(&opts.Page, "page", 1, "page number")
	fs.IntVar(&opts.PageSize, "page-size", defaultPageSize, "items per page")
	fs.StringVar(&mode, "mode", "client", "client or server side filtering")
	fs.StringVar(&opts.Get, "get", "", "show a single item by id or slug and count a view")
	fs.StringVar(&opts.Viewed, "viewed", os.Getenv("VIEWED_SET_PATH"), "directory of the persistent viewed set (in-memory if empty)")
	fs.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "HTTP timeout")

	if err := fs.Parse(args); err != nil {
		return browseOptions{}, err
	}

	switch opts.Resource {
	case "events", "blogs":
	default:
		return browseOptions{}, fmt.Errorf("unknown resource %q (want events or blogs)", opts.Resource)
	}

	switch key := listing.SortKey(sortKey); key {
	case listing.SortLatest, listing.SortPopular, listing.SortAlphabetical:
		opts.Sort = key
	default:
		return browseOptions{}, fmt.Errorf("unknown sort %q", sortKey)
	}

	switch mode {
	case "client":
		opts.Mode = clubclient.ClientSide
	case "server":
		opts.Mode = clubclient.ServerSide
	default:
		return browseOptions{}, fmt.Errorf("unknown mode %q (want client or server)", mode)
	}

	return opts, nil
}

// runBrowse はAPIから一覧または単一アイテムを取得して表示する。
// 一覧は w に、ログは標準エラーに出力する。
func runBrowse(w io.Writer, args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	opts, err := parseBrowseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	log := logger.Setup(os.Stderr)
	if err := logger.SetLevel(os.Getenv("LOG_LEVEL")); err != nil {
		log.Warn("invalid LOG_LEVEL, falling back to info", slog.String("error", err.Error()))
	}

	var viewed clubclient.ViewedSet = clubclient.NewMemoryViewedSet()
	if opts.Viewed != "" {
		bv, err := clubclient.OpenBadgerViewedSet(opts.Viewed)
		if err != nil {
			return err
		}
		defer bv.Close()
		viewed = bv
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return browse(ctx, w, &http.Client{Timeout: opts.Timeout}, viewed, log, opts)
}

// browse はリソース種別に応じたクライアントで表示を行う。
func browse(ctx context.Context, w io.Writer, httpClient *http.Client, viewed clubclient.ViewedSet, log *slog.Logger, opts browseOptions) error {
	collector := metrics.NewCollector(prometheus.NewRegistry())
	switch opts.Resource {
	case "blogs":
		res := clubclient.NewBlogsClient(httpClient, log, opts.BaseURL).Resource
		return browseResource(ctx, w, res, viewed, collector, log, opts, blogFormat)
	default:
		res := clubclient.NewEventsClient(httpClient, log, opts.BaseURL).Resource
		return browseResource(ctx, w, res, viewed, collector, log, opts, eventFormat)
	}
}

// itemFormat はアイテムの表示形式。
type itemFormat[T any] struct {
	header string
	row    func(T) string
	detail func(io.Writer, T)
}

var eventFormat = itemFormat[clubclient.Event]{
	header: "DATE\tTITLE\tCATEGORY\tVIEWS\tSLUG",
	row: func(e clubclient.Event) string {
		return strings.Join([]string{e.Date, e.Title, e.ListCategoryName(), strconv.Itoa(e.Views), e.Slug}, "\t")
	},
	detail: func(w io.Writer, e clubclient.Event) {
		fmt.Fprintf(w, "%s\n", e.Title)
		fmt.Fprintf(w, "date:     %s %s\n", e.Date, e.Time)
		fmt.Fprintf(w, "location: %s\n", e.Location)
		fmt.Fprintf(w, "category: %s\n", e.ListCategoryName())
		fmt.Fprintf(w, "status:   %s\n", e.Status)
		fmt.Fprintf(w, "views: %d  likes: %d  comments: %d\n", e.Views, e.Likes, e.Comments)
		if e.RegistrationLink != "" {
			fmt.Fprintf(w, "register: %s\n", e.RegistrationLink)
		}
		for _, s := range e.Schedules {
			fmt.Fprintf(w, "  %s  %s\n", s.Time, s.Title)
		}
		for _, sp := range e.Speakers {
			fmt.Fprintf(w, "  speaker: %s (%s)\n", sp.Name, sp.Role)
		}
		if e.Excerpt != "" {
			fmt.Fprintf(w, "\n%s\n", e.Excerpt)
		}
	},
}

var blogFormat = itemFormat[clubclient.Blog]{
	header: "PUBLISHED\tTITLE\tAUTHOR\tVIEWS\tSLUG",
	row: func(b clubclient.Blog) string {
		published := ""
		if b.PublishedAt != nil {
			published = b.PublishedAt.Format("2006-01-02")
		}
		return strings.Join([]string{published, b.Title, b.Author, strconv.Itoa(b.Views), b.Slug}, "\t")
	},
	detail: func(w io.Writer, b clubclient.Blog) {
		fmt.Fprintf(w, "%s\n", b.Title)
		fmt.Fprintf(w, "author:   %s\n", b.Author)
		fmt.Fprintf(w, "category: %s\n", b.ListCategoryName())
		fmt.Fprintf(w, "views:    %d\n", b.Views)
		if len(b.Tags) > 0 {
			names := make([]string, 0, len(b.Tags))
			for _, t := range b.Tags {
				names = append(names, t.Name)
			}
			fmt.Fprintf(w, "tags:     %s\n", strings.Join(names, ", "))
		}
		if b.ShortDescription != "" {
			fmt.Fprintf(w, "\n%s\n", b.ShortDescription)
		}
	},
}

// resource はbrowseResourceが必要とするクライアント操作。
type resource[T listing.Item] interface {
	clubclient.Lister[T]
	clubclient.ItemSource[T]
	Name() string
}

func browseResource[T listing.Item](
	ctx context.Context,
	w io.Writer,
	res resource[T],
	viewed clubclient.ViewedSet,
	collector *metrics.Collector,
	log *slog.Logger,
	opts browseOptions,
	format itemFormat[T],
) error {
	if opts.Get != "" {
		tracker := clubclient.NewTracker[T](res, viewed, log, clubclient.TrackerConfig{
			Resource: res.Name(),
			Metrics:  collector,
		})
		item, err := tracker.GetWithViewIncrement(ctx, opts.Get)
		if err != nil {
			return describeFetchError(res.Name(), opts.Get, err)
		}
		format.detail(w, item)
		tracker.Wait()
		// 加算失敗は表示を妨げない。注記のみ出す
		if collector.ClientIncrementFailures(res.Name()) > 0 {
			fmt.Fprintln(w, "\n(view was not counted)")
		}
		return nil
	}

	b := clubclient.NewBrowser[T](res, log, clubclient.BrowserConfig{
		Resource: res.Name(),
		Mode:     opts.Mode,
		PageSize: opts.PageSize,
	})

	if err := applyFilters(ctx, b, opts); err != nil {
		return describeFetchError(res.Name(), "", err)
	}
	b.SetPage(opts.Page)

	printPage(w, b.Page(), format, viewed, log)
	return nil
}

// applyFilters はフィルタを設定して一覧を取得する。
// ServerSideでは変更のたびに再取得されるため、既定値と異なる項目だけを設定する。
func applyFilters[T listing.Item](ctx context.Context, b *clubclient.Browser[T], opts browseOptions) error {
	if opts.Mode == clubclient.ClientSide {
		if err := b.Refresh(ctx); err != nil {
			return err
		}
		_ = b.SetCategory(ctx, opts.Category)
		_ = b.SetSearch(ctx, opts.Search)
		_ = b.SetSort(ctx, opts.Sort)
		return nil
	}

	initial := b.State()
	fetched := false
	if opts.Category != initial.Category {
		if err := b.SetCategory(ctx, opts.Category); err != nil {
			return err
		}
		fetched = true
	}
	if opts.Search != initial.Search {
		if err := b.SetSearch(ctx, opts.Search); err != nil {
			return err
		}
		fetched = true
	}
	if opts.Sort != initial.Sort {
		if err := b.SetSort(ctx, opts.Sort); err != nil {
			return err
		}
		fetched = true
	}
	if !fetched {
		return b.Refresh(ctx)
	}
	return nil
}

// printPage は一覧を表形式で出力する。閲覧済みのアイテムにはSEEN列に印を付ける。
func printPage[T listing.Item](w io.Writer, page listing.Page[T], format itemFormat[T], viewed clubclient.ViewedSet, log *slog.Logger) {
	if page.Total == 0 {
		fmt.Fprintln(w, "no items found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, format.header+"\tSEEN")
	for _, item := range page.Items {
		mark := ""
		seen, err := viewed.Seen(item.ListKey())
		if err != nil {
			log.Warn("閲覧履歴の参照に失敗しました",
				slog.String("key", item.ListKey()),
				slog.String("error", err.Error()),
			)
		}
		if seen {
			mark = "yes"
		}
		fmt.Fprintln(tw, format.row(item)+"\t"+mark)
	}
	tw.Flush()

	fmt.Fprintf(w, "\npage %d/%d (%d items)\n", page.CurrentPage, page.TotalPages, page.Total)
}

// describeFetchError は取得エラーを利用者向けのメッセージに変換する。
func describeFetchError(resource, ref string, err error) error {
	var fe *clubclient.FetchError
	if errors.As(err, &fe) && fe.NotFound() && ref != "" {
		return fmt.Errorf("%s %q not found", resource, ref)
	}
	return fmt.Errorf("failed to load %s: %w", resource, err)
}
