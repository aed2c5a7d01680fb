package models

import (
	"encoding/json"
	"sort"
	"strings"
)

// ArticleRecord 新闻文章记录
// 每个文章页面在一次提取过程中逐字段构建,发出一次后不再修改
type ArticleRecord struct {
	SourceSite            string   `json:"source_site"`             // 站点标识
	CanonicalURL          string   `json:"canonical_url"`           // 去除查询串的文章URL
	ReferrerURL           string   `json:"referrer_url,omitempty"`  // 来源页面URL
	NewsTitle             string   `json:"news_title"`              // 标题
	NewsContent           string   `json:"news_content"`            // 清理后的正文HTML片段
	NewsDate              string   `json:"news_date"`               // 发布日期 YYYY-MM-DD
	OutgoingInternalLinks []string `json:"outgoing_internal_links"` // 站内文章链接
	TotalLinksNumber      int      `json:"total_links_number"`      // 站内与站外链接并集的大小
}

// StripQuery 去掉URL中第一个'?'及其之后的内容
func StripQuery(rawURL string) string {
	if idx := strings.IndexByte(rawURL, '?'); idx >= 0 {
		return rawURL[:idx]
	}
	return rawURL
}

// SetLinks 设置站内链接与链接总数
// 总数按集合并集计算,不同区域重复出现的链接只计一次
func (a *ArticleRecord) SetLinks(internal, external map[string]struct{}) {
	union := make(map[string]struct{}, len(internal)+len(external))
	list := make([]string, 0, len(internal))
	for u := range internal {
		union[u] = struct{}{}
		list = append(list, u)
	}
	for u := range external {
		union[u] = struct{}{}
	}
	sort.Strings(list)

	a.OutgoingInternalLinks = list
	a.TotalLinksNumber = len(union)
}

// ToJSON 序列化为单行JSON
func (a *ArticleRecord) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}
