package htmlutil

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frontPage = `<html><body>
<div class="feed">
  <a href="/r/golang/comments/1/go_1_23/"><h2 class="xfe0h7-0">Go 1.23
     is released</h2></a>
  <a href="https://blog.example.com/post"><h2 class="xfe0h7-0">External post</h2></a>
  <div><h2 class="xfe0h7-0">Parent without link</h2></div>
  <h2 class="other">Not a headline</h2>
</div>
</body></html>`

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestExtractHeadlines(t *testing.T) {
	doc, err := Parse(frontPage)
	require.NoError(t, err)

	got := ExtractHeadlines(doc, "h2.xfe0h7-0", mustURL(t, "https://www.reddit.com/"))
	require.Len(t, got, 3)

	assert.Equal(t, Headline{Title: "Go 1.23 is released", Link: "https://www.reddit.com/r/golang/comments/1/go_1_23/"}, got[0])
	assert.Equal(t, Headline{Title: "External post", Link: "https://blog.example.com/post"}, got[1])
	assert.Equal(t, Headline{Title: "Parent without link", Link: ""}, got[2])
}

func TestExtractHeadlinesNoMatch(t *testing.T) {
	doc, err := Parse("<p>nothing here")
	require.NoError(t, err)

	got := ExtractHeadlines(doc, "h2.xfe0h7-0", nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a\n\t b \u0000 c  "))
	assert.Equal(t, "", CleanText(" \n "))
}

func TestResolveLink(t *testing.T) {
	base := mustURL(t, "https://news.example.com/front/")
	assert.Equal(t, "https://news.example.com/front/item", ResolveLink(base, "item"))
	assert.Equal(t, "https://news.example.com/abs", ResolveLink(base, " /abs "))
	assert.Equal(t, "https://other.example.com/", ResolveLink(base, "https://other.example.com/"))
	assert.Equal(t, "", ResolveLink(base, ""))
	assert.Equal(t, "relative", ResolveLink(nil, "relative"))
}

func TestCompileSelector(t *testing.T) {
	assert.NoError(t, CompileSelector("h2.xfe0h7-0"))
	assert.Error(t, CompileSelector("h2[[["))
}
