package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AnhPhix3405/bpsclub-web/internal/clubclient"
	"github.com/AnhPhix3405/bpsclub-web/internal/listing"
)

type fakeAPI struct {
	*httptest.Server
	eventViews atomic.Int32
	blogViews  atomic.Int32
	lastQuery  atomic.Value
	failViews  atomic.Bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	published := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)

	events := []map[string]any{
		{"id": "e-1", "slug": "web3-day", "title": "Web3 Day", "date": "2025-06-01", "views": 10,
			"category": map[string]any{"id": 1, "name": "Workshop"}, "created_at": created},
		{"id": "e-2", "slug": "defi-talk", "title": "DeFi Talk", "date": "2025-07-01", "views": 50,
			"category": map[string]any{"id": 2, "name": "Seminar"}, "created_at": created.Add(time.Hour)},
		{"id": "e-3", "slug": "nft-night", "title": "NFT Night", "date": "2025-08-01", "views": 5,
			"category": map[string]any{"id": 1, "name": "Workshop"}, "created_at": created.Add(2 * time.Hour)},
	}
	blogs := []map[string]any{
		{"id": "b-1", "slug": "hello-blockchain", "title": "Hello Blockchain", "author": "Minh", "views": 3,
			"tags": []map[string]any{{"id": 1, "name": "intro", "slug": "intro"}},
			"published_at": published, "created_at": created},
	}

	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
	find := func(items []map[string]any, ref string) map[string]any {
		for _, it := range items {
			if it["id"] == ref || it["slug"] == ref {
				return it
			}
		}
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /events/get-all", func(w http.ResponseWriter, r *http.Request) {
		api.lastQuery.Store(r.URL.RawQuery)
		writeJSON(w, events)
	})
	mux.HandleFunc("GET /events/{ref}", func(w http.ResponseWriter, r *http.Request) {
		if e := find(events, r.PathValue("ref")); e != nil {
			writeJSON(w, e)
			return
		}
		http.Error(w, `{"code":"EVENT_NOT_FOUND"}`, http.StatusNotFound)
	})
	mux.HandleFunc("POST /events/{ref}/views", func(w http.ResponseWriter, r *http.Request) {
		api.eventViews.Add(1)
		if api.failViews.Load() {
			http.Error(w, `{"code":"INTERNAL_ERROR"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"message": "views incremented successfully"})
	})
	mux.HandleFunc("GET /blogs/get-all-published", func(w http.ResponseWriter, r *http.Request) {
		api.lastQuery.Store(r.URL.RawQuery)
		writeJSON(w, blogs)
	})
	mux.HandleFunc("GET /blogs/slug/{ref}", func(w http.ResponseWriter, r *http.Request) {
		if b := find(blogs, r.PathValue("ref")); b != nil {
			writeJSON(w, b)
			return
		}
		http.Error(w, `{"code":"BLOG_NOT_FOUND"}`, http.StatusNotFound)
	})
	mux.HandleFunc("POST /blogs/slug/{ref}/views", func(w http.ResponseWriter, r *http.Request) {
		api.blogViews.Add(1)
		writeJSON(w, map[string]string{"message": "views incremented successfully"})
	})

	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return api
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testBrowseOptions(baseURL string) browseOptions {
	return browseOptions{
		BaseURL:  baseURL,
		Resource: "events",
		Category: listing.AllCategories,
		Sort:     listing.SortLatest,
		Page:     1,
		PageSize: 9,
		Mode:     clubclient.ClientSide,
		Timeout:  5 * time.Second,
	}
}

func runTestBrowse(t *testing.T, api *fakeAPI, viewed clubclient.ViewedSet, opts browseOptions) string {
	t.Helper()
	if viewed == nil {
		viewed = clubclient.NewMemoryViewedSet()
	}
	var buf bytes.Buffer
	if err := browse(context.Background(), &buf, api.Client(), viewed, discardLogger(), opts); err != nil {
		t.Fatalf("browse() error = %v", err)
	}
	return buf.String()
}

func TestBrowse_ClientSideListFiltersLocally(t *testing.T) {
	api := newFakeAPI(t)
	opts := testBrowseOptions(api.URL)
	opts.Category = "Workshop"
	opts.Sort = listing.SortPopular

	out := runTestBrowse(t, api, nil, opts)

	if strings.Contains(out, "DeFi Talk") {
		t.Errorf("Seminar event should be filtered out:\n%s", out)
	}
	web3 := strings.Index(out, "Web3 Day")
	nft := strings.Index(out, "NFT Night")
	if web3 < 0 || nft < 0 || web3 > nft {
		t.Errorf("popular sort should list Web3 Day (10 views) before NFT Night (5):\n%s", out)
	}
	if !strings.Contains(out, "page 1/1 (2 items)") {
		t.Errorf("footer missing:\n%s", out)
	}
	if q, _ := api.lastQuery.Load().(string); strings.Contains(q, "category") {
		t.Errorf("client side mode must not send category: %q", q)
	}
}

func TestBrowse_ServerSideSendsFilters(t *testing.T) {
	api := newFakeAPI(t)
	opts := testBrowseOptions(api.URL)
	opts.Mode = clubclient.ServerSide
	opts.Search = "web3"
	opts.Sort = listing.SortAlphabetical

	runTestBrowse(t, api, nil, opts)

	q, _ := api.lastQuery.Load().(string)
	if !strings.Contains(q, "search=web3") || !strings.Contains(q, "sort=title_ASC") {
		t.Errorf("query = %q", q)
	}
}

func TestBrowse_EmptyResult(t *testing.T) {
	api := newFakeAPI(t)
	opts := testBrowseOptions(api.URL)
	opts.Search = "no such thing"

	out := runTestBrowse(t, api, nil, opts)

	if !strings.Contains(out, "no items found") {
		t.Errorf("output = %q", out)
	}
}

func TestBrowse_GetCountsViewOncePerViewedSet(t *testing.T) {
	api := newFakeAPI(t)
	viewed := clubclient.NewMemoryViewedSet()
	opts := testBrowseOptions(api.URL)

	// スラッグとIDのどちらで開いても正規の識別子で1回だけ加算する
	opts.Get = "web3-day"
	out := runTestBrowse(t, api, viewed, opts)
	opts.Get = "e-1"
	runTestBrowse(t, api, viewed, opts)

	if !strings.Contains(out, "Web3 Day") || !strings.Contains(out, "category: Workshop") {
		t.Errorf("detail output = %s", out)
	}
	if got := api.eventViews.Load(); got != 1 {
		t.Errorf("view increments = %d, want 1", got)
	}
}

func TestBrowse_ListMarksViewedItems(t *testing.T) {
	api := newFakeAPI(t)
	viewed := clubclient.NewMemoryViewedSet()
	opts := testBrowseOptions(api.URL)

	opts.Get = "web3-day"
	runTestBrowse(t, api, viewed, opts)
	opts.Get = ""
	out := runTestBrowse(t, api, viewed, opts)

	if !strings.Contains(out, "SEEN") {
		t.Errorf("header missing SEEN column:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.Contains(line, "Web3 Day") && !strings.HasSuffix(line, "yes"):
			t.Errorf("viewed event should be marked: %q", line)
		case strings.Contains(line, "DeFi Talk") && strings.HasSuffix(line, "yes"):
			t.Errorf("unviewed event must not be marked: %q", line)
		}
	}
}

func TestBrowse_GetBlogWithBadgerViewedSet(t *testing.T) {
	api := newFakeAPI(t)
	dir := t.TempDir()
	opts := testBrowseOptions(api.URL)
	opts.Resource = "blogs"
	opts.Get = "hello-blockchain"

	for i := 0; i < 2; i++ {
		viewed, err := clubclient.OpenBadgerViewedSet(dir)
		if err != nil {
			t.Fatalf("OpenBadgerViewedSet() error = %v", err)
		}
		out := runTestBrowse(t, api, viewed, opts)
		if err := viewed.Close(); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "tags:     intro") {
			t.Errorf("detail output = %s", out)
		}
	}

	if got := api.blogViews.Load(); got != 1 {
		t.Errorf("view increments across restarts = %d, want 1", got)
	}
}

func TestBrowse_GetIncrementFailureIsOnlyNoted(t *testing.T) {
	api := newFakeAPI(t)
	api.failViews.Store(true)
	opts := testBrowseOptions(api.URL)
	opts.Get = "defi-talk"

	out := runTestBrowse(t, api, nil, opts)

	if !strings.Contains(out, "DeFi Talk") {
		t.Errorf("detail should still be shown:\n%s", out)
	}
	if !strings.Contains(out, "(view was not counted)") {
		t.Errorf("failure note missing:\n%s", out)
	}
}

func TestBrowse_GetNotFound(t *testing.T) {
	api := newFakeAPI(t)
	opts := testBrowseOptions(api.URL)
	opts.Get = "missing"

	err := browse(context.Background(), &bytes.Buffer{}, api.Client(), clubclient.NewMemoryViewedSet(), discardLogger(), opts)
	if err == nil || !strings.Contains(err.Error(), `events "missing" not found`) {
		t.Errorf("error = %v", err)
	}
	if api.eventViews.Load() != 0 {
		t.Error("failed lookup must not count a view")
	}
}

func TestParseBrowseFlags(t *testing.T) {
	t.Setenv("CLIENT_BASE_URL", "https://api.bpsclub.dev/api")
	t.Setenv("PAGE_SIZE", "")

	opts, err := parseBrowseFlags([]string{"-resource", "blogs", "-sort", "popular", "-mode", "server", "-page", "2"}, io.Discard)
	if err != nil {
		t.Fatalf("parseBrowseFlags() error = %v", err)
	}
	if opts.BaseURL != "https://api.bpsclub.dev/api" || opts.Resource != "blogs" {
		t.Errorf("opts = %+v", opts)
	}
	if opts.Sort != listing.SortPopular || opts.Mode != clubclient.ServerSide || opts.Page != 2 {
		t.Errorf("opts = %+v", opts)
	}
	if opts.PageSize != listing.DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", opts.PageSize, listing.DefaultPageSize)
	}

	bad := [][]string{
		{"-resource", "members"},
		{"-sort", "random"},
		{"-mode", "hybrid"},
		{"-unknown"},
	}
	for _, args := range bad {
		if _, err := parseBrowseFlags(args, io.Discard); err == nil {
			t.Errorf("parseBrowseFlags(%v) expected error", args)
		}
	}
}
