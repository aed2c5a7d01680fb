package sites

import (
	"regexp"

	"github.com/RecoveryAshes/NewsCrawl/internal/page"
)

// WSJ 正文有两种版式
const (
	wsjArticleBody     = `//div[@itemprop="articleBody"]`
	wsjAfterByline     = wsjArticleBody + `/descendant-or-self::*[@class and contains(concat(' ', normalize-space(@class), ' '), ' byline-wrap ')]/following-sibling::*`
	wsjAfterHeaderTime = `//article[.//h1]/div[1]//time/following-sibling::div[1]/*`
)

var wsjUpdatedRe = regexp.MustCompile(`(?i)updated`)

type wsjExtractor struct{}

func (wsjExtractor) Name() string { return WSJ }

func (wsjExtractor) ExtractArticle(p *page.Page) ArticleFields {
	body := wsjAfterHeaderTime
	if p.Exists(wsjArticleBody) {
		body = wsjAfterByline
	}

	return ArticleFields{
		Title:      firstText(p, xpathText(`//h1[@itemprop="headline"]/text()`)),
		Content:    outerHTML(p, page.XPath(body)),
		Date:       wsjDate(p),
		BodyRegion: page.XPath(body),
	}
}

// wsjDate 时间戳文本去掉 "Updated" 后按自然语言解析
func wsjDate(p *page.Page) string {
	for _, text := range p.CSSOwnTexts("time.timestamp") {
		text = wsjUpdatedRe.ReplaceAllString(text, "")
		if date, err := ParseFreeText(text); err == nil {
			return date
		}
	}
	return ""
}
