// Package sanitizer 清理文章正文HTML片段
//
// 基于正则的尽力而为处理,不做完整解析。步骤顺序固定:
//  1. 删除注释
//  2. 删除非内容标签及其内容 (script, noscript, style, iframe, link)
//  3. 删除 data-* 属性
//  4. 删除固定属性列表 (class, id, alt, ...)
//  5. 删除空 div
//  6. 删除3个及以上的连续空白
package sanitizer

import (
	"fmt"
	"regexp"
)

// RemovedTags 连同内容一起删除的标签
var RemovedTags = []string{"script", "noscript", "style", "iframe", "link"}

// RemovedAttributes 无论出现在哪个标签上都删除的属性
var RemovedAttributes = []string{
	"class", "id", "alt", "data-analytics", "target",
	"itemprop", "name", "dir", "lang", "style",
}

var (
	commentRe   = regexp.MustCompile(`(?s)<!--.*?(?:-->|$)`)
	dataAttrRe  = regexp.MustCompile(`\sdata-[\w-]+=".*?"`)
	emptyDivRe  = regexp.MustCompile(`<div>\s*</div>`)
	whitespace3 = regexp.MustCompile(`\s{3,}`)

	tagPatterns  = compileTagPatterns(RemovedTags)
	attrPatterns = compileAttrPatterns(RemovedAttributes)
)

// compileTagPatterns RE2不支持反向引用,每个标签单独一条正则
// 紧跟在标签边界后的空白随被删除的块一起去掉
func compileTagPatterns(tags []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(tags))
	for _, tag := range tags {
		// link 通常没有闭合标签
		if tag == "link" {
			patterns = append(patterns, regexp.MustCompile(`(?is)(^|>)\s*<link\b[^>]*>(?:.*?</link\s*>)?`))
			continue
		}
		patterns = append(patterns, regexp.MustCompile(fmt.Sprintf(`(?is)(^|>)\s*<%[1]s\b.*?</%[1]s\s*>`, tag)))
		patterns = append(patterns, regexp.MustCompile(fmt.Sprintf(`(?is)<%[1]s\b.*?</%[1]s\s*>`, tag)))
	}
	return patterns
}

func compileAttrPatterns(attrs []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(attrs))
	for _, attr := range attrs {
		patterns = append(patterns, regexp.MustCompile(fmt.Sprintf(`\s%s=".*?"`, regexp.QuoteMeta(attr))))
	}
	return patterns
}

// Sanitize 清理HTML片段,纯函数
func Sanitize(html string) string {
	html = RemoveComments(html)
	html = RemoveTagsWithContent(html)
	html = RemoveAttributes(html)
	html = RemoveEmptyDivs(html)
	return CollapseWhitespace(html)
}

// RemoveComments 删除HTML注释,未闭合的注释删除到末尾
func RemoveComments(html string) string {
	return commentRe.ReplaceAllString(html, "")
}

// RemoveTagsWithContent 删除 RemovedTags 中的标签及其全部内容
func RemoveTagsWithContent(html string) string {
	for _, re := range tagPatterns {
		if re.NumSubexp() > 0 {
			html = re.ReplaceAllString(html, "$1")
		} else {
			html = re.ReplaceAllString(html, "")
		}
	}
	return html
}

// RemoveAttributes 先删除 data-* 属性,再删除固定属性列表
func RemoveAttributes(html string) string {
	html = dataAttrRe.ReplaceAllString(html, "")
	for _, re := range attrPatterns {
		html = re.ReplaceAllString(html, "")
	}
	return html
}

// RemoveEmptyDivs 反复删除空div,直到不再变化(嵌套空div需要多轮)
func RemoveEmptyDivs(html string) string {
	for {
		next := emptyDivRe.ReplaceAllString(html, "")
		if next == html {
			return html
		}
		html = next
	}
}

// CollapseWhitespace 删除3个及以上的连续空白字符
func CollapseWhitespace(html string) string {
	return whitespace3.ReplaceAllString(html, "")
}
