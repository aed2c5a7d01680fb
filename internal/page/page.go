// Package page 封装一次抓取得到的HTML页面
//
// 响应体只解析一次,goquery (CSS) 与 htmlquery (XPath) 共享同一棵节点树。
package page

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

// 站点规则中的XPath表达式是固定的,编译结果在进程内共享
var xpathCache sync.Map // string -> *xpath.Expr

// compileXPath 编译并缓存XPath表达式
func compileXPath(expr string) (*xpath.Expr, error) {
	if v, ok := xpathCache.Load(expr); ok {
		return v.(*xpath.Expr), nil
	}
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("XPath表达式无效 [%s]: %w", expr, err)
	}
	xpathCache.Store(expr, compiled)
	return compiled, nil
}

// Selector 页面区域选择器,CSS与XPath可同时设置,结果按顺序合并
type Selector struct {
	CSS   []string
	XPath []string
}

// CSS 构造只含CSS选择器的Selector
func CSS(selectors ...string) Selector {
	return Selector{CSS: selectors}
}

// XPath 构造只含XPath表达式的Selector
func XPath(exprs ...string) Selector {
	return Selector{XPath: exprs}
}

// IsZero 是否未设置任何选择器
func (s Selector) IsZero() bool {
	return len(s.CSS) == 0 && len(s.XPath) == 0
}

// Validate 检查XPath表达式能否编译
func (s Selector) Validate() error {
	for _, expr := range s.XPath {
		if _, err := compileXPath(expr); err != nil {
			return err
		}
	}
	return nil
}

// Page 已抓取的页面
type Page struct {
	// URL 最终URL(重定向之后)
	URL *url.URL
	// RequestHeaders 发出请求时携带的头部
	RequestHeaders http.Header
	// Headers 响应头部
	Headers http.Header
	// Meta 请求附带的元数据
	Meta map[string]string

	root *html.Node
	doc  *goquery.Document
}

// New 解析HTML响应体并创建Page
func New(rawURL string, body []byte, requestHeaders, responseHeaders http.Header, meta map[string]string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("解析页面URL失败: %w", err)
	}

	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}

	doc := goquery.NewDocumentFromNode(root)
	doc.Url = u

	if requestHeaders == nil {
		requestHeaders = http.Header{}
	}
	if responseHeaders == nil {
		responseHeaders = http.Header{}
	}
	if meta == nil {
		meta = map[string]string{}
	}

	return &Page{
		URL:            u,
		RequestHeaders: requestHeaders,
		Headers:        responseHeaders,
		Meta:           meta,
		root:           root,
		doc:            doc,
	}, nil
}

// FromString 测试和离线处理用的便捷构造
func FromString(rawURL, body string) (*Page, error) {
	return New(rawURL, []byte(body), nil, nil, nil)
}

// Root 文档根节点
func (p *Page) Root() *html.Node {
	return p.root
}

// Document goquery文档
func (p *Page) Document() *goquery.Document {
	return p.doc
}

// Referer 请求的Referer头部
func (p *Page) Referer() string {
	return p.RequestHeaders.Get("Referer")
}

// Resolve 将href解析为相对于页面URL的绝对URL
func (p *Page) Resolve(href string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, err
	}
	return p.URL.ResolveReference(ref), nil
}

// Nodes 返回选择器匹配的节点,CSS结果在前,XPath结果在后,去重保序
func (p *Page) Nodes(sel Selector) ([]*html.Node, error) {
	var nodes []*html.Node
	seen := make(map[*html.Node]struct{})
	add := func(n *html.Node) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		nodes = append(nodes, n)
	}

	for _, css := range sel.CSS {
		for _, n := range p.doc.Find(css).Nodes {
			add(n)
		}
	}
	for _, expr := range sel.XPath {
		compiled, err := compileXPath(expr)
		if err != nil {
			return nil, err
		}
		for _, n := range htmlquery.QuerySelectorAll(p.root, compiled) {
			add(n)
		}
	}
	return nodes, nil
}

// Exists XPath表达式是否至少匹配一个节点
func (p *Page) Exists(expr string) bool {
	compiled, err := compileXPath(expr)
	if err != nil {
		return false
	}
	return htmlquery.QuerySelector(p.root, compiled) != nil
}

// XPathStrings 返回XPath结果的字符串值(text()、@attr 或元素的全部文本)
func (p *Page) XPathStrings(expr string) ([]string, error) {
	compiled, err := compileXPath(expr)
	if err != nil {
		return nil, err
	}
	nodes := htmlquery.QuerySelectorAll(p.root, compiled)
	values := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == html.TextNode {
			values = append(values, n.Data)
			continue
		}
		values = append(values, htmlquery.InnerText(n))
	}
	return values, nil
}

// CSSOwnTexts 返回CSS匹配元素的直接文本子节点,等价于 "sel::text"
func (p *Page) CSSOwnTexts(css string) []string {
	var values []string
	p.doc.Find(css).Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					values = append(values, c.Data)
				}
			}
		}
	})
	return values
}

// OuterHTML 返回匹配节点的外层HTML
func (p *Page) OuterHTML(sel Selector) ([]string, error) {
	nodes, err := p.Nodes(sel)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, htmlquery.OutputHTML(n, true))
	}
	return out, nil
}

// FirstNonEmpty 返回第一个去除首尾空白后非空的值
func FirstNonEmpty(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
