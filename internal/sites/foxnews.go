package sites

import "github.com/RecoveryAshes/NewsCrawl/internal/page"

type foxNewsExtractor struct{}

func (foxNewsExtractor) Name() string { return FoxNews }

func (foxNewsExtractor) ExtractArticle(p *page.Page) ArticleFields {
	body := page.CSS("div.article-text > *")
	return ArticleFields{
		Title: firstText(p,
			xpathText(`//h1[@itemprop="headline"]/text()`),
			cssText("div.main h1"),
		),
		Content: outerHTML(p, body),
		Date: firstMachineDate(p,
			xpathText(`//time[@itemprop="datePublished"]/@datetime`),
			xpathText(`//time[@pubdate]/@datetime`),
		),
		BodyRegion: page.CSS("div.article-text"),
	}
}
