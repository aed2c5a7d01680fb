package sites

import "github.com/RecoveryAshes/NewsCrawl/internal/page"

type washingtonPostExtractor struct{}

func (washingtonPostExtractor) Name() string { return WashingtonPost }

func (washingtonPostExtractor) ExtractArticle(p *page.Page) ArticleFields {
	return ArticleFields{
		Title:      firstText(p, xpathText(`//h1[@itemprop="headline"]/text()`)),
		Content:    outerHTML(p, page.XPath(`//article[@itemprop="articleBody"]/*`)),
		Date:       firstMachineDate(p, xpathText(`//span[@itemprop="datePublished"]/@content`)),
		BodyRegion: page.XPath(`//article[@itemprop="articleBody"]`),
	}
}
