package v1

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"

	"github.com/hrygo/feedlens/server/service/feedback"
)

const maxRSSTitleRunes = 80

// GetFeedbackRSS serves the newest feedback as an RSS 2.0 feed.
// The source and sentiment query parameters narrow the feed.
func (s *APIV1Service) GetFeedbackRSS(c echo.Context) error {
	ctx := c.Request().Context()
	list, err := s.FeedbackService.ListFeedback(ctx, &feedback.ListRequest{
		Page:      1,
		PageSize:  s.Profile.DefaultPageSize,
		Source:    c.QueryParam("source"),
		Sentiment: c.QueryParam("sentiment"),
	})
	if err != nil {
		return err
	}

	baseURL := c.Scheme() + "://" + c.Request().Host
	feed := &feeds.Feed{
		Title:       "feedlens: recent customer feedback",
		Link:        &feeds.Link{Href: baseURL + "/api/feedback"},
		Description: "The most recent customer feedback with its sentiment",
		Created:     time.Now(),
	}
	for _, item := range list.Items {
		sentiment := "unclassified"
		if item.Sentiment != nil {
			sentiment = *item.Sentiment
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          fmt.Sprintf("%d", item.ID),
			Title:       fmt.Sprintf("[%s/%s] %s", item.Source, sentiment, rssTitle(item.Text)),
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/api/feedback/%d", baseURL, item.ID)},
			Description: item.Text,
			Created:     item.CreatedAt,
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}

func rssTitle(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= maxRSSTitleRunes {
		return text
	}
	return string(runes[:maxRSSTitleRunes]) + "..."
}
