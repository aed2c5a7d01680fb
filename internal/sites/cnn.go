package sites

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/RecoveryAshes/NewsCrawl/internal/jsliteral"
	"github.com/RecoveryAshes/NewsCrawl/internal/models"
	"github.com/RecoveryAshes/NewsCrawl/internal/page"
)

const (
	cnnZonesScript = `//script[contains(., "CNN.Zones")]/text()`
	// CNNZoneManagerURL 分区管理器地址,%s 为分区路径
	CNNZoneManagerURL = "http://edition.cnn.com/data/ocs/section/%s/views/zones/common/zone-manager.html"
)

// cnnUpdatedRe 更新时间文本中的日期部分
var cnnUpdatedRe = regexp.MustCompile(`Updated \d{4} GMT \(\d{4} HKT\) (.*)`)

type cnnExtractor struct{}

func (cnnExtractor) Name() string { return CNN }

func (cnnExtractor) ExtractArticle(p *page.Page) ArticleFields {
	return ArticleFields{
		Title:      firstText(p, cssText("h1.pg-headline")),
		Content:    outerHTML(p, page.CSS("section#body-text .l-container > *")),
		Date:       cnnDate(p),
		BodyRegion: page.CSS("section#body-text .l-container"),
	}
}

func cnnDate(p *page.Page) string {
	for _, text := range p.CSSOwnTexts("p.update-time") {
		m := cnnUpdatedRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if date, err := ParseFreeText(m[1]); err == nil {
			return date
		}
	}
	return ""
}

// DiscoverSections 解析 CNN.Zones 脚本,为每个分区路径生成分区管理器请求
// 页面没有该脚本时返回空
func (cnnExtractor) DiscoverSections(p *page.Page) ([]models.Request, error) {
	scripts, err := p.XPathStrings(cnnZonesScript)
	if err != nil {
		return nil, err
	}
	script := page.FirstNonEmpty(scripts)
	if script == "" {
		return nil, nil
	}

	assignments, err := jsliteral.Assignments(script)
	if err != nil {
		return nil, fmt.Errorf("解析CNN.Zones脚本失败: %w", err)
	}
	values := make([]jsliteral.Value, 0, len(assignments))
	for _, a := range assignments {
		values = append(values, a.Value)
	}

	referrer := p.URL.String()
	paths := jsliteral.CollectStrings("zones", values...)
	requests := make([]models.Request, 0, len(paths))
	for _, path := range paths {
		hdr := http.Header{}
		hdr.Set("X-Requested-With", "XMLHttpRequest")
		requests = append(requests, models.Request{
			URL:      fmt.Sprintf(CNNZoneManagerURL, path),
			Handler:  models.HandlerZoneManager,
			Priority: models.PriorityNavigation,
			Headers:  hdr,
			Meta:     map[string]string{models.MetaReferrerURL: referrer},
		})
	}
	return requests, nil
}
