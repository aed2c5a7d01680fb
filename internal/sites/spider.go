package sites

import (
	"fmt"
	"strings"

	"github.com/RecoveryAshes/NewsCrawl/internal/links"
	"github.com/RecoveryAshes/NewsCrawl/internal/models"
	"github.com/RecoveryAshes/NewsCrawl/internal/page"
	"github.com/RecoveryAshes/NewsCrawl/internal/sanitizer"
	"github.com/RecoveryAshes/NewsCrawl/internal/utils"
)

// Result 处理一个页面的产出
type Result struct {
	Items    []*models.ArticleRecord
	Requests []models.Request
}

// Spider 单个站点的页面处理器集合
//
// 创建后只读,Handle 可被多个worker并发调用。
type Spider struct {
	site      string
	rule      models.SiteRule
	links     *links.Extractor
	extractor ArticleExtractor
	sections  SectionDiscoverer
}

// NewSpider 创建站点爬虫
//
// 未知站点默认降级: 记录错误并返回不产生任何请求的爬虫。
// strict 为 true 时返回 *models.ConfigurationError。
func NewSpider(key string, strict bool) (*Spider, error) {
	site := NormalizeKey(key)
	rule, err := Resolve(site)
	if err != nil {
		if strict {
			return nil, err
		}
		utils.Logger.Error().Err(err).Str("site", site).Msg("站点配置错误,本次爬取不会产生任何请求")
		return &Spider{site: site}, nil
	}

	le, err := links.NewExtractor(rule)
	if err != nil {
		return nil, fmt.Errorf("创建链接分类器失败: %w", err)
	}
	ext, err := LookupExtractor(rule.Extractor)
	if err != nil {
		return nil, err
	}

	s := &Spider{
		site:      site,
		rule:      rule,
		links:     le,
		extractor: ext,
	}
	if d, ok := ext.(SectionDiscoverer); ok {
		s.sections = d
	}

	utils.Infof("Crawling site: %s (url: %s)", site, rule.URL)
	return s, nil
}

// Site 站点标识(已规范化)
func (s *Spider) Site() string {
	return s.site
}

// Rule 站点规则,降级模式下为零值
func (s *Spider) Rule() models.SiteRule {
	return s.rule
}

// Degraded 是否处于降级模式(未知站点)
func (s *Spider) Degraded() bool {
	return s.extractor == nil
}

// Seeds 入口请求,降级模式下为空
func (s *Spider) Seeds() []models.Request {
	seeds := s.rule.Seeds()
	requests := make([]models.Request, 0, len(seeds))
	for _, u := range seeds {
		requests = append(requests, models.Request{
			URL:      u,
			Handler:  models.HandlerParse,
			Priority: models.PriorityNavigation,
		})
	}
	return requests
}

// Handle 按处理器名称处理页面
// 错误只影响当前页面
func (s *Spider) Handle(handler models.Handler, p *page.Page) (Result, error) {
	if s.Degraded() {
		return Result{}, nil
	}

	switch handler {
	case models.HandlerParse:
		return s.parse(p)
	case models.HandlerZoneManager:
		return s.parseZoneManager(p)
	case models.HandlerArticle:
		return s.parseArticle(p)
	default:
		return Result{}, fmt.Errorf("未知的处理器: %s", handler)
	}
}

// parse 通用页面: 发现分区(如站点支持),跟进导航与文章链接
func (s *Spider) parse(p *page.Page) (Result, error) {
	var res Result
	var meta map[string]string

	if s.sections != nil {
		// 该站点的后续请求统一以当前页面作为来源
		meta = map[string]string{models.MetaReferrerURL: p.URL.String()}

		zones, err := s.sections.DiscoverSections(p)
		if err != nil {
			utils.Warnf("分区发现失败,跳过 [%s]: %v", p.URL, err)
		} else {
			res.Requests = append(res.Requests, zones...)
		}
	}

	follow, err := s.followLinks(p, meta)
	if err != nil {
		return res, err
	}
	res.Requests = append(res.Requests, follow...)
	return res, nil
}

// parseZoneManager 分区管理器响应,沿用入口页传入的来源URL
func (s *Spider) parseZoneManager(p *page.Page) (Result, error) {
	var meta map[string]string
	if ref := p.Meta[models.MetaReferrerURL]; ref != "" {
		meta = map[string]string{models.MetaReferrerURL: ref}
	}

	follow, err := s.followLinks(p, meta)
	if err != nil {
		return Result{}, err
	}
	return Result{Requests: follow}, nil
}

// followLinks 导航链接交给 parse,文章链接交给 parse_article
func (s *Spider) followLinks(p *page.Page, meta map[string]string) ([]models.Request, error) {
	nav, err := s.links.Extract(p, links.Navigation, page.Selector{})
	if err != nil {
		return nil, fmt.Errorf("提取导航链接失败: %w", err)
	}
	articles, err := s.links.Extract(p, links.Article, page.Selector{})
	if err != nil {
		return nil, fmt.Errorf("提取文章链接失败: %w", err)
	}

	requests := make([]models.Request, 0, len(nav)+len(articles))
	for _, u := range nav.Sorted() {
		requests = append(requests, models.Request{
			URL:      u,
			Handler:  models.HandlerParse,
			Priority: models.PriorityNavigation,
			Meta:     models.CopyMeta(meta),
		})
	}
	for _, u := range articles.Sorted() {
		requests = append(requests, models.Request{
			URL:      u,
			Handler:  models.HandlerArticle,
			Priority: models.PriorityArticle,
			Meta:     models.CopyMeta(meta),
		})
	}
	return requests, nil
}

// parseArticle 提取一条文章记录,并跟进正文中的站内文章链接
func (s *Spider) parseArticle(p *page.Page) (Result, error) {
	rec := &models.ArticleRecord{
		SourceSite:   s.site,
		CanonicalURL: models.StripQuery(p.URL.String()),
		ReferrerURL:  referrer(p),
	}

	fields := s.extractor.ExtractArticle(p)
	rec.NewsTitle = fields.Title
	rec.NewsContent = sanitizer.Sanitize(strings.Join(fields.Content, " "))
	rec.NewsDate = fields.Date
	s.logMisses(p, rec)

	internal, err := s.links.Extract(p, links.Article, page.Selector{})
	if err != nil {
		return Result{}, fmt.Errorf("提取站内链接失败: %w", err)
	}
	external, err := s.links.Extract(p, links.External, fields.BodyRegion)
	if err != nil {
		return Result{}, fmt.Errorf("提取站外链接失败: %w", err)
	}
	rec.SetLinks(internal, external)

	res := Result{Items: []*models.ArticleRecord{rec}}
	for _, u := range rec.OutgoingInternalLinks {
		res.Requests = append(res.Requests, models.Request{
			URL:      u,
			Handler:  models.HandlerArticle,
			Priority: models.PriorityArticle,
		})
	}
	return res, nil
}

// referrer 请求元数据优先,其次是Referer头部
func referrer(p *page.Page) string {
	if ref := p.Meta[models.MetaReferrerURL]; ref != "" {
		return ref
	}
	return p.Referer()
}

func (s *Spider) logMisses(p *page.Page, rec *models.ArticleRecord) {
	var missing []string
	if rec.NewsTitle == "" {
		missing = append(missing, "news_title")
	}
	if rec.NewsContent == "" {
		missing = append(missing, "news_content")
	}
	if rec.NewsDate == "" {
		missing = append(missing, "news_date")
	}
	if len(missing) > 0 {
		utils.Logger.Debug().
			Str("url", p.URL.String()).
			Strs("fields", missing).
			Msg("文章字段未命中")
	}
}
