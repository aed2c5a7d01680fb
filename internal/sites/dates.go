package sites

import (
	"errors"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrDateParse 自然语言日期无法解析
var ErrDateParse = errors.New("日期解析失败")

const isoDate = "2006-01-02"

// MachineDate 机器可读的日期取前10个字符 (YYYY-MM-DD)
func MachineDate(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 10 {
		return value[:10]
	}
	return value
}

// ParseFreeText 解析自然语言日期,返回 YYYY-MM-DD
//
// 整串无法解析时从末尾逐个去掉词(时区缩写、"p.m." 之类)后重试,
// 至少保留两个词。
func ParseFreeText(text string) (string, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", ErrDateParse
	}

	for n := len(fields); n >= 1; n-- {
		if n < 2 && len(fields) >= 2 {
			break
		}
		candidate := strings.TrimRight(strings.Join(fields[:n], " "), ",;")
		t, err := dateparse.ParseIn(candidate, time.UTC)
		if err == nil {
			return t.Format(isoDate), nil
		}
	}
	return "", ErrDateParse
}
