package newsapi

import (
	"fmt"
	"time"

	"github.com/ternarybob/thesis/internal/models"
)

type newsResponse struct {
	Status       *string   `json:"status" validate:"required"`
	TotalResults *int      `json:"totalResults" validate:"required"`
	Articles     []article `json:"articles" validate:"required,dive"`
}

type article struct {
	Source      *articleSource `json:"source" validate:"required"`
	Author      *string        `json:"author"`
	Title       *string        `json:"title" validate:"required"`
	Description *string        `json:"description"`
	URL         *string        `json:"url" validate:"required"`
	URLToImage  *string        `json:"urlToImage"`
	PublishedAt *string        `json:"publishedAt" validate:"required"`
	Content     *string        `json:"content"`
}

type articleSource struct {
	ID   *string `json:"id"`
	Name *string `json:"name" validate:"required"`
}

func (a *article) normalize() (models.NewsArticle, error) {
	published, err := time.Parse(time.RFC3339, *a.PublishedAt)
	if err != nil {
		return models.NewsArticle{}, fmt.Errorf("article %q: invalid publishedAt: %w", *a.URL, err)
	}

	return models.NewsArticle{
		Title:       *a.Title,
		Description: deref(a.Description),
		URL:         *a.URL,
		ImageURL:    deref(a.URLToImage),
		Source:      *a.Source.Name,
		Author:      deref(a.Author),
		PublishedAt: published,
		Content:     deref(a.Content),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
