// Package links 按站点规则对页面链接分类: 导航、文章、站外
package links

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/RecoveryAshes/NewsCrawl/internal/models"
	"github.com/RecoveryAshes/NewsCrawl/internal/page"
	"golang.org/x/net/html"
)

// Kind 链接类别
type Kind int

const (
	// Navigation 站内导航区域中的链接
	Navigation Kind = iota
	// Article 站内且匹配文章URL正则的链接
	Article
	// External 不属于允许域名的链接
	External
)

// String 返回类别名称
func (k Kind) String() string {
	switch k {
	case Navigation:
		return "navigation"
	case Article:
		return "article"
	case External:
		return "external"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IgnoredExtensions 指向二进制资源的链接不参与分类
var IgnoredExtensions = map[string]struct{}{}

func init() {
	for _, ext := range []string{
		// 压缩包
		"7z", "7zip", "bz2", "rar", "tar", "tar.gz", "xz", "zip",
		// 图片
		"mng", "pct", "bmp", "gif", "jpg", "jpeg", "png", "pst", "psp", "tif",
		"tiff", "ai", "drw", "dxf", "eps", "ps", "svg", "cdr", "ico", "webp",
		// 音频
		"mp3", "wma", "ogg", "wav", "ra", "aac", "mid", "au", "aiff",
		// 视频
		"3gp", "asf", "asx", "avi", "mov", "mp4", "mpg", "qt", "rm", "swf", "wmv",
		"m4a", "m4v", "flv", "webm",
		// 办公文档
		"xls", "xlsx", "ppt", "pptx", "pps", "doc", "docx", "odt", "ods", "odg", "odp",
		// 其他
		"css", "pdf", "exe", "bin", "rss", "dmg", "iso", "apk",
	} {
		IgnoredExtensions["."+ext] = struct{}{}
	}
}

// Set 绝对URL集合(已去除查询串与片段)
type Set map[string]struct{}

// Has 是否包含
func (s Set) Has(u string) bool {
	_, ok := s[u]
	return ok
}

// Sorted 按字典序返回全部URL
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Union 返回两个集合的并集
func Union(a, b Set) Set {
	out := make(Set, len(a)+len(b))
	for u := range a {
		out[u] = struct{}{}
	}
	for u := range b {
		out[u] = struct{}{}
	}
	return out
}

// Extractor 站点链接分类器
// 正则在创建时编译一次,之后只读,可并发使用
type Extractor struct {
	domains    []string
	articleRes []*regexp.Regexp
	navigation page.Selector
}

// NewExtractor 根据站点规则创建分类器
func NewExtractor(rule models.SiteRule) (*Extractor, error) {
	e := &Extractor{
		navigation: page.CSS(rule.NavigationCSS...),
	}
	for _, d := range rule.AllowedDomains {
		e.domains = append(e.domains, strings.ToLower(strings.TrimSpace(d)))
	}
	for _, expr := range rule.ArticleRegex {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("文章URL正则无效 [%s]: %w", expr, err)
		}
		e.articleRes = append(e.articleRes, re)
	}
	return e, nil
}

// Extract 提取页面中指定类别的链接
//
// region 为空时: 导航链接取规则中的导航选择器,其他类别取整个页面。
// 结果不含页面自身URL。
func (e *Extractor) Extract(p *page.Page, kind Kind, region page.Selector) (Set, error) {
	if kind == Navigation && region.IsZero() {
		region = e.navigation
		// 没有导航区域的规则不产生导航链接
		if region.IsZero() {
			return Set{}, nil
		}
	}

	anchors, err := collectAnchors(p, region)
	if err != nil {
		return nil, err
	}

	self := selfURLs(p)
	out := Set{}
	for _, href := range anchors {
		u, ok := normalize(p, href)
		if !ok {
			continue
		}
		abs := u.String()
		if _, isSelf := self[abs]; isSelf {
			continue
		}

		allowed := e.allowedHost(u.Hostname())
		switch kind {
		case Navigation:
			if !allowed {
				continue
			}
		case Article:
			if !allowed || !e.isArticle(abs) {
				continue
			}
		case External:
			if allowed {
				continue
			}
		}
		out[abs] = struct{}{}
	}
	return out, nil
}

// IsArticleURL URL是否属于允许域名且匹配文章正则
func (e *Extractor) IsArticleURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return e.allowedHost(u.Hostname()) && e.isArticle(rawURL)
}

func (e *Extractor) isArticle(abs string) bool {
	for _, re := range e.articleRes {
		if re.MatchString(abs) {
			return true
		}
	}
	return false
}

// allowedHost 主机等于允许域名或为其子域名
func (e *Extractor) allowedHost(host string) bool {
	host = strings.ToLower(host)
	for _, d := range e.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// normalize 去查询串、转绝对URL、去片段,过滤非HTTP链接和二进制资源
func normalize(p *page.Page, href string) (*url.URL, bool) {
	href = strings.TrimSpace(models.StripQuery(href))
	if href == "" || strings.HasPrefix(href, "#") {
		return nil, false
	}
	u, err := p.Resolve(href)
	if err != nil {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = ""
	u.ForceQuery = false

	lowerPath := strings.ToLower(u.Path)
	if _, skip := IgnoredExtensions[path.Ext(lowerPath)]; skip {
		return nil, false
	}
	if strings.HasSuffix(lowerPath, ".tar.gz") {
		return nil, false
	}
	return u, true
}

// selfURLs 页面自身URL的各种形式
func selfURLs(p *page.Page) map[string]struct{} {
	own := *p.URL
	own.Fragment = ""
	own.RawFragment = ""
	raw := own.String()
	return map[string]struct{}{
		raw:                    {},
		models.StripQuery(raw): {},
	}
}

// collectAnchors 收集区域内 a/area 元素的href,区域为空时取整个页面
func collectAnchors(p *page.Page, region page.Selector) ([]string, error) {
	roots := []*html.Node{p.Root()}
	if !region.IsZero() {
		nodes, err := p.Nodes(region)
		if err != nil {
			return nil, err
		}
		roots = nodes
	}

	var hrefs []string
	seen := make(map[*html.Node]struct{})
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		if n.Type == html.ElementNode && (n.Data == "a" || n.Data == "area") {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					hrefs = append(hrefs, attr.Val)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return hrefs, nil
}
