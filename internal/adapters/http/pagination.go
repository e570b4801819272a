package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// SetLinkHeaders adds RFC 8288 Link headers for paginated responses. Query
// parameters other than offset and limit are carried over.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	base := c.Path()
	var extra []string
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		key := string(k)
		if key == "offset" || key == "limit" {
			return
		}
		extra = append(extra, key+"="+string(v))
	})

	link := func(offset int, rel string) string {
		q := append([]string{"offset=" + strconv.Itoa(offset), "limit=" + strconv.Itoa(p.Limit)}, extra...)
		return fmt.Sprintf(`<%s?%s>; rel="%s"`, base, strings.Join(q, "&"), rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	if p.Limit > 0 {
		links = append(links, link(max(((p.Total-1)/p.Limit)*p.Limit, 0), "last"))
	}

	c.Set(fiber.HeaderLink, strings.Join(links, ", "))
}
