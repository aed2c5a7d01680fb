package sites

import (
	"fmt"

	"github.com/RecoveryAshes/NewsCrawl/internal/models"
	"github.com/RecoveryAshes/NewsCrawl/internal/page"
	"github.com/RecoveryAshes/NewsCrawl/internal/utils"
)

// ArticleFields 站点提取器从文章页读取的字段
type ArticleFields struct {
	Title   string
	Content []string // 正文节点的外层HTML,尚未清理
	Date    string   // YYYY-MM-DD,未找到或无法解析时为空
	// BodyRegion 正文区域,站外链接只在此区域内统计
	BodyRegion page.Selector
}

// ArticleExtractor 站点文章提取器
// 实现必须无状态,可被多个worker并发调用
type ArticleExtractor interface {
	Name() string
	ExtractArticle(p *page.Page) ArticleFields
}

// SectionDiscoverer 需要在入口页额外发现分区请求的站点实现此接口
type SectionDiscoverer interface {
	// DiscoverSections 返回分区请求,脚本格式错误时返回错误
	DiscoverSections(p *page.Page) ([]models.Request, error)
}

// extractors 提取器查找表,键为 SiteRule.Extractor
var extractors = map[string]ArticleExtractor{
	FoxNews:        foxNewsExtractor{},
	WashingtonPost: washingtonPostExtractor{},
	WSJ:            wsjExtractor{},
	CNN:            cnnExtractor{},
}

// LookupExtractor 按名称查找提取器
func LookupExtractor(name string) (ArticleExtractor, error) {
	e, ok := extractors[name]
	if !ok {
		return nil, fmt.Errorf("未注册的文章提取器: %s", name)
	}
	return e, nil
}

// textSource 一种取文本候选值的方式
type textSource func(p *page.Page) []string

// xpathText XPath取值,表达式错误视为未命中
func xpathText(expr string) textSource {
	return func(p *page.Page) []string {
		values, err := p.XPathStrings(expr)
		if err != nil {
			utils.Debugf("XPath取值失败 [%s]: %v", p.URL, err)
			return nil
		}
		return values
	}
}

// cssText CSS取元素的直接文本,等价于 "sel::text"
func cssText(css string) textSource {
	return func(p *page.Page) []string {
		return p.CSSOwnTexts(css)
	}
}

// firstText 按顺序返回第一个非空候选值
func firstText(p *page.Page, sources ...textSource) string {
	for _, src := range sources {
		if v := page.FirstNonEmpty(src(p)); v != "" {
			return v
		}
	}
	return ""
}

// firstMachineDate 第一个非空的机器可读日期
func firstMachineDate(p *page.Page, sources ...textSource) string {
	return MachineDate(firstText(p, sources...))
}

// outerHTML 区域内节点的外层HTML,表达式错误视为未命中
func outerHTML(p *page.Page, sel page.Selector) []string {
	fragments, err := p.OuterHTML(sel)
	if err != nil {
		utils.Debugf("正文提取失败 [%s]: %v", p.URL, err)
		return nil
	}
	return fragments
}
