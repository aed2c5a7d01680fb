package sites

import (
	"errors"
	"net/http"
	"testing"

	"github.com/RecoveryAshes/NewsCrawl/internal/models"
	"github.com/RecoveryAshes/NewsCrawl/internal/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const foxArticle = `<html><body>
<nav id="menu"><a href="/politics.html">Politics</a></nav>
<div class="main"><h1>Fallback title</h1></div>
<h1 itemprop="headline">Fox Headline</h1>
<time itemprop="datePublished" datetime="2017-03-04T08:00:00-05:00">March 4</time>
<div class="article-text">
<p class="lead">First <a href="http://www.foxnews.com/world/2017/03/03/other-story.html?x=1">other</a></p>
<script>track()</script>
<p data-id="7">Second <a href="https://twitter.com/foxnews">tw</a> <a href="http://www.foxnews.com/world/2017/03/03/other-story.html">dup</a></p>
</div>
<a href="http://www.foxnews.com/us/2017/03/02/third-story.html">Third</a>
<a href="http://www.foxnews.com/politics/2017/03/04/big-story.html">Self</a>
</body></html>`

const washingtonPostArticle = `<html><body>
<h1 itemprop="headline">WaPo Headline</h1>
<span itemprop="datePublished" content="2017-03-04T12:00-500"></span>
<article itemprop="articleBody"><p>Body <a href="https://www.nytimes.com/x">nyt</a></p><div class="ad"></div></article>
<a href="https://www.washingtonpost.com/news/politics/wp/2017/03/03/older/">older</a>
</body></html>`

const wsjArticle = `<html><body>
<h1 itemprop="headline">WSJ Headline</h1>
<time class="timestamp">Updated March 3, 2021</time>
<div itemprop="articleBody">
<div class="byline-wrap">By Reporter</div>
<p>Para one <a href="https://www.wsj.com/articles/another-story">another</a></p>
<p>Para two <a href="https://www.ft.com/x">ft</a></p>
</div>
</body></html>`

const wsjArticleAlt = `<html><body>
<article><div><h1>Alt Title</h1><div class="meta"><time class="timestamp">March 3, 2021</time><div><p>Alt body</p></div></div></div></article>
</body></html>`

const cnnArticle = `<html><body>
<h1 class="pg-headline">CNN Headline</h1>
<p class="update-time">Updated 1400 GMT (2200 HKT) May 3, 2021</p>
<section id="body-text"><div class="l-container"><div class="zn-body__paragraph">Para <a href="http://www.bbc.com/news">bbc</a></div><div class="el__embedded"></div></div></section>
<a href="http://edition.cnn.com/2021/05/02/us/other-story/index.html">other</a>
</body></html>`

const cnnRoot = `<html><head>
<script>window.CNN = window.CNN || {}; CNN.Zones = {zones: ["world/zones/a", "world/zones/b"]};</script>
</head><body>
<div class="nav-menu-links"><a href="/world">World</a><a href="http://edition.cnn.com/us">US</a></div>
<a href="/2021/05/03/world/story-a/index.html">A</a>
<a href="/about">About</a>
</body></html>`

func newPage(t *testing.T, rawURL, body string, referer string, meta map[string]string) *page.Page {
	t.Helper()
	hdr := http.Header{}
	if referer != "" {
		hdr.Set("Referer", referer)
	}
	p, err := page.New(rawURL, []byte(body), hdr, nil, meta)
	require.NoError(t, err)
	return p
}

func newTestSpider(t *testing.T, key string) *Spider {
	t.Helper()
	s, err := NewSpider(key, false)
	require.NoError(t, err)
	require.False(t, s.Degraded())
	return s
}

func urlsOf(reqs []models.Request) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.URL)
	}
	return out
}

func TestSpider_FoxNewsArticle(t *testing.T) {
	s := newTestSpider(t, "foxnews")
	p := newPage(t, "http://www.foxnews.com/politics/2017/03/04/big-story.html?intcmp=hp", foxArticle, "http://www.foxnews.com/", nil)

	res, err := s.Handle(models.HandlerArticle, p)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	rec := res.Items[0]
	assert.Equal(t, "foxnews", rec.SourceSite)
	assert.Equal(t, "http://www.foxnews.com/politics/2017/03/04/big-story.html", rec.CanonicalURL)
	assert.Equal(t, "http://www.foxnews.com/", rec.ReferrerURL)
	assert.Equal(t, "Fox Headline", rec.NewsTitle)
	assert.Equal(t, "2017-03-04", rec.NewsDate)
	assert.Contains(t, rec.NewsContent, "<p>First ")
	assert.Contains(t, rec.NewsContent, "<p>Second ")
	assert.NotContains(t, rec.NewsContent, "track()")
	assert.NotContains(t, rec.NewsContent, "class=")
	assert.NotContains(t, rec.NewsContent, "data-id")

	assert.Equal(t, []string{
		"http://www.foxnews.com/us/2017/03/02/third-story.html",
		"http://www.foxnews.com/world/2017/03/03/other-story.html",
	}, rec.OutgoingInternalLinks)
	assert.Equal(t, 3, rec.TotalLinksNumber)

	assert.Equal(t, rec.OutgoingInternalLinks, urlsOf(res.Requests))
	for _, r := range res.Requests {
		assert.Equal(t, models.HandlerArticle, r.Handler)
		assert.Equal(t, models.PriorityArticle, r.Priority)
		assert.Empty(t, r.Meta)
	}
}

func TestSpider_FoxNewsTitleFallback(t *testing.T) {
	s := newTestSpider(t, "foxnews")
	body := `<html><body><div class="main"><h1>Fallback title</h1></div><time pubdate datetime="2016-01-02T00:00:00Z"></time></body></html>`
	p := newPage(t, "http://www.foxnews.com/us/2016/01/02/x.html", body, "", nil)

	res, err := s.Handle(models.HandlerArticle, p)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Fallback title", res.Items[0].NewsTitle)
	assert.Equal(t, "2016-01-02", res.Items[0].NewsDate)
	assert.Equal(t, "", res.Items[0].NewsContent)
	assert.Equal(t, "", res.Items[0].ReferrerURL)
}

func TestSpider_WashingtonPostArticle(t *testing.T) {
	s := newTestSpider(t, "washingtonpost")
	p := newPage(t, "https://www.washingtonpost.com/world/europe/2017/03/04/slug_story.html", washingtonPostArticle, "", nil)

	res, err := s.Handle(models.HandlerArticle, p)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	rec := res.Items[0]
	assert.Equal(t, "WaPo Headline", rec.NewsTitle)
	assert.Equal(t, "2017-03-04", rec.NewsDate)
	assert.Contains(t, rec.NewsContent, `<p>Body <a href="https://www.nytimes.com/x">nyt</a></p>`)
	assert.NotContains(t, rec.NewsContent, "<div")
	assert.Equal(t, []string{"https://www.washingtonpost.com/news/politics/wp/2017/03/03/older/"}, rec.OutgoingInternalLinks)
	assert.Equal(t, 2, rec.TotalLinksNumber)
}

func TestSpider_WSJArticle(t *testing.T) {
	s := newTestSpider(t, "wsj")

	t.Run("articleBody版式", func(t *testing.T) {
		p := newPage(t, "https://www.wsj.com/articles/some-story-123", wsjArticle, "", nil)
		res, err := s.Handle(models.HandlerArticle, p)
		require.NoError(t, err)
		require.Len(t, res.Items, 1)

		rec := res.Items[0]
		assert.Equal(t, "WSJ Headline", rec.NewsTitle)
		assert.Equal(t, "2021-03-03", rec.NewsDate)
		assert.Contains(t, rec.NewsContent, "Para one")
		assert.Contains(t, rec.NewsContent, "Para two")
		assert.NotContains(t, rec.NewsContent, "By Reporter")
		assert.Equal(t, []string{"https://www.wsj.com/articles/another-story"}, rec.OutgoingInternalLinks)
		assert.Equal(t, 2, rec.TotalLinksNumber)
	})

	t.Run("无articleBody版式", func(t *testing.T) {
		p := newPage(t, "https://www.wsj.com/articles/alt-story", wsjArticleAlt, "", nil)
		res, err := s.Handle(models.HandlerArticle, p)
		require.NoError(t, err)
		require.Len(t, res.Items, 1)

		rec := res.Items[0]
		assert.Equal(t, "<p>Alt body</p>", rec.NewsContent)
		assert.Equal(t, "2021-03-03", rec.NewsDate)
		assert.Equal(t, 0, rec.TotalLinksNumber)
		assert.Empty(t, res.Requests)
	})
}

func TestSpider_CNNArticle(t *testing.T) {
	s := newTestSpider(t, "cnn")
	meta := map[string]string{models.MetaReferrerURL: "http://edition.cnn.com/"}
	p := newPage(t, "http://edition.cnn.com/2021/05/03/world/some-story/index.html", cnnArticle,
		"http://edition.cnn.com/data/ocs/section/world/views/zones/common/zone-manager.html", meta)

	res, err := s.Handle(models.HandlerArticle, p)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	rec := res.Items[0]
	assert.Equal(t, "http://edition.cnn.com/", rec.ReferrerURL)
	assert.Equal(t, "CNN Headline", rec.NewsTitle)
	assert.Equal(t, "2021-05-03", rec.NewsDate)
	assert.Contains(t, rec.NewsContent, "Para ")
	assert.Equal(t, []string{"http://edition.cnn.com/2021/05/02/us/other-story/index.html"}, rec.OutgoingInternalLinks)
	assert.Equal(t, 2, rec.TotalLinksNumber)
}

func TestSpider_CNNParseDiscoversZones(t *testing.T) {
	s := newTestSpider(t, "cnn")
	p := newPage(t, "http://edition.cnn.com/", cnnRoot, "", nil)

	res, err := s.Handle(models.HandlerParse, p)
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	var zones, nav, articles []models.Request
	for _, r := range res.Requests {
		assert.Equal(t, "http://edition.cnn.com/", r.Meta[models.MetaReferrerURL], r.URL)
		switch r.Handler {
		case models.HandlerZoneManager:
			zones = append(zones, r)
		case models.HandlerParse:
			nav = append(nav, r)
		case models.HandlerArticle:
			articles = append(articles, r)
		}
	}

	require.Len(t, zones, 2)
	assert.Equal(t, "http://edition.cnn.com/data/ocs/section/world/zones/a/views/zones/common/zone-manager.html", zones[0].URL)
	assert.Equal(t, "XMLHttpRequest", zones[0].Headers.Get("X-Requested-With"))

	assert.Equal(t, []string{"http://edition.cnn.com/us", "http://edition.cnn.com/world"}, urlsOf(nav))
	assert.Equal(t, []string{"http://edition.cnn.com/2021/05/03/world/story-a/index.html"}, urlsOf(articles))
	assert.Equal(t, models.PriorityArticle, articles[0].Priority)
	assert.Equal(t, models.PriorityNavigation, nav[0].Priority)
}

func TestSpider_CNNMalformedZonesOnlySkipsDiscovery(t *testing.T) {
	s := newTestSpider(t, "cnn")
	body := `<html><head><script>CNN.Zones = {zones: [</script></head><body>
<div class="nav-menu-links"><a href="/world">World</a></div></body></html>`
	p := newPage(t, "http://edition.cnn.com/", body, "", nil)

	res, err := s.Handle(models.HandlerParse, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://edition.cnn.com/world"}, urlsOf(res.Requests))

	_, err = cnnExtractor{}.DiscoverSections(p)
	assert.Error(t, err)
}

func TestSpider_ZoneManagerPropagatesReferrer(t *testing.T) {
	s := newTestSpider(t, "cnn")
	meta := map[string]string{models.MetaReferrerURL: "http://edition.cnn.com/"}
	body := `<html><body><a href="http://edition.cnn.com/2021/05/03/world/story-b/index.html">B</a></body></html>`
	p := newPage(t, "http://edition.cnn.com/data/ocs/section/world/views/zones/common/zone-manager.html", body, "http://edition.cnn.com/", meta)

	res, err := s.Handle(models.HandlerZoneManager, p)
	require.NoError(t, err)
	require.Len(t, res.Requests, 1)
	assert.Equal(t, models.HandlerArticle, res.Requests[0].Handler)
	assert.Equal(t, "http://edition.cnn.com/", res.Requests[0].Meta[models.MetaReferrerURL])
}

func TestSpider_NonCNNParseCarriesNoMeta(t *testing.T) {
	s := newTestSpider(t, "foxnews")
	p := newPage(t, "http://www.foxnews.com/", foxArticle, "", nil)

	res, err := s.Handle(models.HandlerParse, p)
	require.NoError(t, err)
	require.NotEmpty(t, res.Requests)
	for _, r := range res.Requests {
		assert.Nil(t, r.Meta)
		assert.NotEqual(t, models.HandlerZoneManager, r.Handler)
	}
	assert.Contains(t, urlsOf(res.Requests), "http://www.foxnews.com/politics.html")
}

func TestNewSpider_UnknownSite(t *testing.T) {
	t.Run("默认降级", func(t *testing.T) {
		s, err := NewSpider("bbc", false)
		require.NoError(t, err)
		assert.True(t, s.Degraded())
		assert.Empty(t, s.Seeds())

		p := newPage(t, "http://www.bbc.com/", cnnRoot, "", nil)
		res, err := s.Handle(models.HandlerParse, p)
		require.NoError(t, err)
		assert.Empty(t, res.Items)
		assert.Empty(t, res.Requests)
	})

	t.Run("严格模式", func(t *testing.T) {
		_, err := NewSpider("bbc", true)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrUnknownSite))
	})
}

func TestSpider_SeedsAndUnknownHandler(t *testing.T) {
	s := newTestSpider(t, " WSJ ")
	assert.Equal(t, "wsj", s.Site())
	seeds := s.Seeds()
	require.Len(t, seeds, 1)
	assert.Equal(t, "http://www.wsj.com/", seeds[0].URL)
	assert.Equal(t, models.HandlerParse, seeds[0].Handler)

	p := newPage(t, "http://www.wsj.com/", wsjArticle, "", nil)
	_, err := s.Handle(models.Handler("parse_unknown"), p)
	assert.Error(t, err)
}
