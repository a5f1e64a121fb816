package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/valyala/fasthttp"
)

type devtoArticle struct {
	Title        string   `json:"title"`
	BodyMarkdown string   `json:"body_markdown"`
	Tags         []string `json:"tags"`
	Published    bool     `json:"published"`
}

func (p *Publisher) publishDevTo(apiKey string, r Request) ([]byte, error) {
	return p.do(PlatformDevTo, call{
		method:  fasthttp.MethodPost,
		url:     p.endpoints.DevTo + "/api/articles",
		headers: map[string]string{"api-key": apiKey},
		body: map[string]devtoArticle{
			"article": {
				Title:        r.Title,
				BodyMarkdown: r.Content,
				Tags:         nonNilTags(r.Tags),
				Published:    !r.IsDraft,
			},
		},
	})
}

type mediumPost struct {
	Title         string   `json:"title"`
	ContentFormat string   `json:"contentFormat"`
	Content       string   `json:"content"`
	Tags          []string `json:"tags"`
	PublishStatus string   `json:"publishStatus"`
}

type mediumMe struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// publishMedium looks up the user behind the token first; posts are
// created under /users/{id}.
func (p *Publisher) publishMedium(apiKey string, r Request) ([]byte, error) {
	auth := map[string]string{fasthttp.HeaderAuthorization: "Bearer " + apiKey}

	meBody, err := p.do(PlatformMedium, call{
		method:  fasthttp.MethodGet,
		url:     p.endpoints.Medium + "/v1/me",
		headers: auth,
	})
	if err != nil {
		return nil, err
	}
	var me mediumMe
	if err := json.Unmarshal(meBody, &me); err != nil {
		return nil, fmt.Errorf("decode medium user: %w", err)
	}
	if me.Data.ID == "" {
		return nil, errors.New("medium user id missing from /v1/me response")
	}

	status := "public"
	if r.IsDraft {
		status = "draft"
	}
	return p.do(PlatformMedium, call{
		method:  fasthttp.MethodPost,
		url:     p.endpoints.Medium + "/v1/users/" + url.PathEscape(me.Data.ID) + "/posts",
		headers: auth,
		body: mediumPost{
			Title:         r.Title,
			ContentFormat: "markdown",
			Content:       r.Content,
			Tags:          nonNilTags(r.Tags),
			PublishStatus: status,
		},
	})
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
