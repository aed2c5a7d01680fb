// Package sites 站点规则表、各站点文章提取器与爬虫处理器
package sites

import (
	"sort"
	"strings"

	"github.com/RecoveryAshes/NewsCrawl/internal/models"
)

// 站点标识
const (
	FoxNews        = "foxnews"
	WashingtonPost = "washingtonpost"
	WSJ            = "wsj"
	CNN            = "cnn"
)

// rules 站点规则表,启动后只读
var rules = map[string]models.SiteRule{
	FoxNews: {
		Key:            FoxNews,
		URL:            "http://www.foxnews.com/",
		AllowedDomains: []string{"foxnews.com"},
		Extractor:      FoxNews,
		NavigationCSS:  []string{"nav#menu", "nav#main-nav", "nav#sub"},
		ArticleRegex:   []string{`foxnews.com/[\w-]+/\d{4}/\d{2}/\d{2}/[\w-]+.html\??`},
	},
	WashingtonPost: {
		Key:            WashingtonPost,
		URL:            "https://www.washingtonpost.com/",
		AllowedDomains: []string{"washingtonpost.com"},
		Extractor:      WashingtonPost,
		NavigationCSS:  []string{"li.main-nav"},
		ArticleRegex: []string{
			`washingtonpost.com/news/[\w-]+/wp/\d{4}/\d{2}/\d{2}/[\w-]+/\??`,
			`washingtonpost.com/[\w-]+/[\w-]+/\d{4}/\d{2}/\d{2}/[\w-]+_story.html\??`,
		},
	},
	WSJ: {
		Key:            WSJ,
		URL:            "http://www.wsj.com/",
		AllowedDomains: []string{"wsj.com"},
		Extractor:      WSJ,
		NavigationCSS:  []string{"nav.sectionFronts"},
		ArticleRegex:   []string{`wsj.com/articles/[\w-]+`},
	},
	CNN: {
		Key:            CNN,
		URL:            "http://edition.cnn.com/",
		AllowedDomains: []string{"www.cnn.com", "edition.cnn.com"},
		Extractor:      CNN,
		NavigationCSS:  []string{"div.nav-menu-links"},
		ArticleRegex: []string{
			`cnn.com/\d{4}/\d{2}/\d{2}/[\w-]+/[\w-]+/`,
			`cnn.com/\d{4}/\d{2}/\d{2}/[\w-]+/[\w-]+/index.html`,
		},
	},
}

// NormalizeKey 站点标识去空白并转小写
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Keys 返回全部站点标识(排序)
func Keys() []string {
	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve 查找站点规则,未知站点返回 *models.ConfigurationError
func Resolve(key string) (models.SiteRule, error) {
	rule, ok := rules[NormalizeKey(key)]
	if !ok {
		return models.SiteRule{}, &models.ConfigurationError{SiteKey: key, Known: Keys()}
	}
	return rule, nil
}
