package models

// SiteRule 站点爬取规则
// 进程启动时定义,之后只读
type SiteRule struct {
	Key            string   `json:"key"`             // 站点标识 (如 foxnews)
	URL            string   `json:"url"`             // 入口URL
	AllowedDomains []string `json:"allowed_domains"` // 允许的域名
	Extractor      string   `json:"extractor"`       // 文章提取器名称
	NavigationCSS  []string `json:"navigation_css"`  // 导航区域选择器
	ArticleRegex   []string `json:"article_regex"`   // 文章URL识别正则
}

// Seeds 返回入口URL列表
func (r SiteRule) Seeds() []string {
	if r.URL == "" {
		return nil
	}
	return []string{r.URL}
}
