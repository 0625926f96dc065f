package catalog

import (
	"context"
	"fmt"
	"strings"

	"product-service/internal/domain"
	"product-service/internal/query"
	"product-service/internal/store"
)

// ChatTopN is how many products a chat recommendation lists.
const ChatTopN = 5

// ChatShortcuts maps the storefront chat buttons to product categories.
var ChatShortcuts = map[string]string{
	"smartphones": "Smartphones",
	"pads":        "Pad",
	"laptops":     "Laptops",
}

// ChatPart is one segment of a chat reply.
type ChatPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ChatReply is the payload the chat widget renders.
type ChatReply struct {
	Parts []ChatPart `json:"parts"`
}

func textReply(text string) ChatReply {
	return ChatReply{Parts: []ChatPart{{Type: "text", Text: text}}}
}

// ChatResponder answers the canned questions of the storefront chat widget.
type ChatResponder struct {
	products   store.ProductStorer
	about      string
	promotions string
}

func NewChatResponder(products store.ProductStorer, about, promotions string) *ChatResponder {
	return &ChatResponder{products: products, about: about, promotions: promotions}
}

// TopRated lists the best-rated products of category as chat text.
func (c *ChatResponder) TopRated(ctx context.Context, category string) (ChatReply, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return ChatReply{}, invalidf("category is required")
	}
	rows, err := c.products.List(ctx, query.Spec{
		Where:   query.Eq("category", category),
		OrderBy: byRating,
		Limit:   ChatTopN,
	})
	if err != nil {
		return ChatReply{}, translate(err, "chat top rated")
	}
	return textReply(renderTopRated(category, rows)), nil
}

// Shortcut resolves a storefront button name and answers it like TopRated.
func (c *ChatResponder) Shortcut(ctx context.Context, name string) (ChatReply, error) {
	category, ok := ChatShortcuts[strings.ToLower(name)]
	if !ok {
		return ChatReply{}, notFoundf("chat shortcut %q", name)
	}
	return c.TopRated(ctx, category)
}

func (c *ChatResponder) About() ChatReply { return textReply(c.about) }

func (c *ChatResponder) Promotions() ChatReply { return textReply(c.promotions) }

func renderTopRated(category string, products []domain.Product) string {
	if len(products) == 0 {
		return fmt.Sprintf("No products available in this category yet (category: %s)", category)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Here are our top rated picks in %s:\n", category)
	for _, p := range products {
		rating := "unrated"
		if p.Rating != nil {
			rating = fmt.Sprintf("%.1f", *p.Rating)
		}
		fmt.Fprintf(&b, "- %s (%s, rating %s)\n", p.Name, p.Price.StringFixed(2), rating)
	}
	return b.String()
}
