package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatResponder_TopRated(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "Pixel 9", withCategory("Smartphones"), withRating(4.7), withPrice("799"))
	f.addProduct(t, "Galaxy S24", withCategory("Smartphones"), withRating(4.9), withPrice("899.5"))
	f.addProduct(t, "Nokia 3310", withCategory("Smartphones"), withPrice("49"))
	c := NewChatResponder(f.products, "about us", "sale")

	reply, err := c.Shortcut(context.Background(), "smartphones")
	require.NoError(t, err)
	require.Len(t, reply.Parts, 1)
	assert.Equal(t, "text", reply.Parts[0].Type)
	assert.Equal(t, "Here are our top rated picks in Smartphones:\n"+
		"- Galaxy S24 (899.50, rating 4.9)\n"+
		"- Pixel 9 (799.00, rating 4.7)\n"+
		"- Nokia 3310 (49.00, rating unrated)\n", reply.Parts[0].Text)
}

func TestChatResponder_EmptyCategoryAndShortcuts(t *testing.T) {
	f := newFixture(t)
	c := NewChatResponder(f.products, "about us", "sale")

	reply, err := c.Shortcut(context.Background(), "Pads")
	require.NoError(t, err)
	assert.Contains(t, reply.Parts[0].Text, "category: Pad")

	_, err = c.Shortcut(context.Background(), "toasters")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = c.TopRated(context.Background(), " ")
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	assert.Equal(t, "about us", c.About().Parts[0].Text)
	assert.Equal(t, "sale", c.Promotions().Parts[0].Text)
}
