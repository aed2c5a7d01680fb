package models

import "net/http"

// Handler 页面处理器名称
type Handler string

const (
	HandlerParse       Handler = "parse"              // 通用页面处理(导航+文章链接)
	HandlerZoneManager Handler = "parse_zone_manager" // CNN分区管理器响应
	HandlerArticle     Handler = "parse_article"      // 文章提取
)

const (
	// PriorityArticle 文章请求优先级(高于导航)
	PriorityArticle = 10
	// PriorityNavigation 导航请求优先级
	PriorityNavigation = 0
)

// MetaReferrerURL 请求元数据中覆盖来源页面的键
const MetaReferrerURL = "referrer_url"

// Request 后续抓取请求
// 由爬虫处理器返回,由引擎调度执行
type Request struct {
	URL      string            // 绝对URL
	Handler  Handler           // 抓取完成后调用的处理器
	Priority int               // 优先级提示,越大越先调度
	Headers  http.Header       // 额外请求头
	Meta     map[string]string // 沿请求链传递的上下文
}

// CopyMeta 复制元数据,nil返回nil
func CopyMeta(meta map[string]string) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
