package links

import (
	"testing"

	"github.com/RecoveryAshes/NewsCrawl/internal/models"
	"github.com/RecoveryAshes/NewsCrawl/internal/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRule = models.SiteRule{
	Key:            "example",
	URL:            "http://www.example.com/",
	AllowedDomains: []string{"example.com"},
	NavigationCSS:  []string{"nav#menu"},
	ArticleRegex:   []string{`example.com/\d{4}/\d{2}/\d{2}/[\w-]+\.html`},
}

const pageURL = "http://www.example.com/2017/03/04/self.html?utm=1"

const fixture = `<html><body>
<nav id="menu">
  <a href="/politics">Politics</a>
  <a href="/world?ref=nav">World</a>
  <a href="/world#top">World again</a>
  <a href="http://other.org/x">Other</a>
  <a href="/2017/03/04/self.html">Self</a>
</nav>
<div class="article-text">
  <a href="/2017/03/04/story-one.html?source=home">Story one</a>
  <a href="http://sub.example.com/2017/03/05/story-two.html">Story two</a>
  <a href="http://twitter.com/share?u=1">Share</a>
  <a href="https://www.reuters.com/article/abc">Reuters</a>
  <a href="mailto:tips@example.com">Mail</a>
  <a href="/media/photo.JPG">Photo</a>
  <a href="javascript:void(0)">JS</a>
  <a href="/2017/03/04/self.html?again=1">Self with query</a>
</div>
<map><area href="/2017/03/06/map-story.html" /></map>
<a href="/about">About</a>
</body></html>`

func newTestPage(t *testing.T) *page.Page {
	t.Helper()
	p, err := page.FromString(pageURL, fixture)
	require.NoError(t, err)
	return p
}

func TestExtract_Navigation(t *testing.T) {
	e, err := NewExtractor(testRule)
	require.NoError(t, err)

	got, err := e.Extract(newTestPage(t), Navigation, page.Selector{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"http://www.example.com/politics",
		"http://www.example.com/world",
	}, got.Sorted())
}

func TestExtract_Article(t *testing.T) {
	e, err := NewExtractor(testRule)
	require.NoError(t, err)

	got, err := e.Extract(newTestPage(t), Article, page.Selector{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"http://sub.example.com/2017/03/05/story-two.html",
		"http://www.example.com/2017/03/04/story-one.html",
		"http://www.example.com/2017/03/06/map-story.html",
	}, got.Sorted())
}

func TestExtract_ExternalInRegion(t *testing.T) {
	e, err := NewExtractor(testRule)
	require.NoError(t, err)

	got, err := e.Extract(newTestPage(t), External, page.CSS("div.article-text"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"http://twitter.com/share",
		"https://www.reuters.com/article/abc",
	}, got.Sorted())

	// XPath 区域得到同样的结果
	got, err = e.Extract(newTestPage(t), External, page.XPath(`//div[@class="article-text"]`))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestExtract_NeverContainsOwnURL(t *testing.T) {
	e, err := NewExtractor(testRule)
	require.NoError(t, err)
	p := newTestPage(t)

	for _, kind := range []Kind{Navigation, Article, External} {
		t.Run(kind.String(), func(t *testing.T) {
			got, err := e.Extract(p, kind, page.Selector{})
			require.NoError(t, err)
			assert.False(t, got.Has(pageURL))
			assert.False(t, got.Has(models.StripQuery(pageURL)))
			for u := range got {
				assert.NotContains(t, u, "?")
				assert.NotContains(t, u, "#")
			}
		})
	}
}

func TestExtract_NoNavigationSelectors(t *testing.T) {
	rule := testRule
	rule.NavigationCSS = nil
	e, err := NewExtractor(rule)
	require.NoError(t, err)

	got, err := e.Extract(newTestPage(t), Navigation, page.Selector{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewExtractor_InvalidRegex(t *testing.T) {
	rule := testRule
	rule.ArticleRegex = []string{`(`}
	_, err := NewExtractor(rule)
	assert.Error(t, err)
}

func TestIsArticleURL(t *testing.T) {
	e, err := NewExtractor(testRule)
	require.NoError(t, err)

	assert.True(t, e.IsArticleURL("http://www.example.com/2017/03/04/a-b.html"))
	assert.False(t, e.IsArticleURL("http://www.example.com/politics"))
	assert.False(t, e.IsArticleURL("http://notexample.com/2017/03/04/a-b.html"))
}

func TestUnion(t *testing.T) {
	a := Set{"A": {}, "B": {}}
	b := Set{"B": {}, "C": {}}
	assert.Len(t, Union(a, b), 3)
}
