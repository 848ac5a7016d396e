package blog

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

// FeedSize はRSSに含める記事数。
const FeedSize = 20

// FeedInfo はRSSチャンネルの情報。
type FeedInfo struct {
	Title       string
	Link        string // サイトのベースURL
	Description string
	Language    string
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	GUID        rssGUID  `xml:"guid"`
	PubDate     string   `xml:"pubDate,omitempty"`
	Categories  []string `xml:"category"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// RSS は公開済みの最新記事をRSS 2.0形式で返す。
func (s *Service) RSS(ctx context.Context) ([]byte, error) {
	blogs, err := s.ListPublished(ctx, ListParams{Sort: "date_DESC", Limit: FeedSize})
	if err != nil {
		return nil, err
	}
	return BuildRSS(s.feed, blogs, s.now())
}

// BuildRSS は記事一覧からRSS 2.0ドキュメントを生成する。
func BuildRSS(info FeedInfo, blogs []*model.Blog, buildTime time.Time) ([]byte, error) {
	base := strings.TrimRight(info.Link, "/")
	doc := rssDocument{
		Version: "2.0",
		Channel: rssChannel{
			Title:         info.Title,
			Link:          base,
			Description:   info.Description,
			Language:      info.Language,
			LastBuildDate: buildTime.UTC().Format(time.RFC1123Z),
			Items:         make([]rssItem, 0, len(blogs)),
		},
	}

	for _, b := range blogs {
		link := base + "/blogs/" + url.PathEscape(b.Slug)
		item := rssItem{
			Title:       b.Title,
			Link:        link,
			Description: b.ShortDescription,
			GUID:        rssGUID{Value: "urn:uuid:" + b.ID},
		}
		if b.PublishedAt != nil {
			item.PubDate = b.PublishedAt.UTC().Format(time.RFC1123Z)
		} else {
			item.PubDate = b.CreatedAt.UTC().Format(time.RFC1123Z)
		}
		if b.Category != nil {
			item.Categories = append(item.Categories, b.Category.Name)
		}
		for _, t := range b.Tags {
			item.Categories = append(item.Categories, t.Name)
		}
		doc.Channel.Items = append(doc.Channel.Items, item)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("RSSの生成に失敗しました: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
