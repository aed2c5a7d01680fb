// Package jsliteral 解析内嵌脚本中的字面量数据
//
// 只支持对象、数组、字符串、数字、布尔、null/undefined 以及点分标识符,
// 不执行也不解释任何代码。
package jsliteral

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrMalformed 脚本中没有可解析的字面量,或字面量格式错误
var ErrMalformed = errors.New("内嵌脚本格式错误")

// SyntaxError 带位置的解析错误
type SyntaxError struct {
	Offset int
	Msg    string
}

// Error 实现error接口
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("字面量解析失败 (偏移 %d): %s", e.Offset, e.Msg)
}

// Unwrap 支持errors.Is(err, ErrMalformed)
func (e *SyntaxError) Unwrap() error {
	return ErrMalformed
}

// Value 解析结果: Object, Array, string, float64, bool, Ident 或 nil
type Value any

// Member 对象成员
type Member struct {
	Key   string
	Value Value
}

// Object 保持源码顺序的对象
type Object []Member

// Get 按键查找成员
func (o Object) Get(key string) (Value, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Array 数组
type Array []Value

// Ident 对其他变量的引用,如 CNN.contentModel
type Ident string

// Assignment 形如 `a.b = {...}` 的赋值
type Assignment struct {
	Target string
	Value  Value
}

// ParseValue 解析单个字面量,允许末尾的分号和空白
func ParseValue(src string) (Value, error) {
	p := &parser{src: src}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	for p.peek() == ';' {
		p.pos++
		p.skipSpace()
	}
	if !p.eof() {
		return nil, p.errorf("字面量后存在多余内容 %q", p.rest(10))
	}
	return v, nil
}

// Assignments 扫描脚本,解析所有右侧为对象或数组字面量的赋值
//
// 脚本中其他语句被跳过,无法解析的字面量也被跳过。
// 一个都没有解析成功时返回第一个解析错误或 ErrMalformed。
func Assignments(script string) ([]Assignment, error) {
	var out []Assignment
	var firstErr error
	p := &parser{src: script}

	for !p.eof() {
		c := p.peek()
		switch {
		case c == '"' || c == '\'':
			start := p.pos
			if _, err := p.str(); err != nil {
				p.pos = start + 1
			}
			continue
		case c == '/' && p.at(1) == '/', c == '/' && p.at(1) == '*':
			p.skipSpace()
			continue
		case c != '=':
			p.pos++
			continue
		}

		// 排除 ==, =>, !=, <=, >= 等运算符
		prev := byte(0)
		if p.pos > 0 {
			prev = script[p.pos-1]
		}
		next := p.at(1)
		eqPos := p.pos
		p.pos++
		if next == '=' || next == '>' || strings.IndexByte("!<>=+-*/%&|^", prev) >= 0 {
			continue
		}

		p.skipSpace()
		if c := p.peek(); c != '{' && c != '[' {
			continue
		}
		litStart := p.pos
		v, err := p.value()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			p.pos = litStart + 1
			continue
		}
		out = append(out, Assignment{Target: assignTarget(script[:eqPos]), Value: v})
	}

	if len(out) == 0 {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, fmt.Errorf("%w: 未找到对象或数组赋值", ErrMalformed)
	}
	return out, nil
}

// assignTarget 取等号左侧的点分标识符
func assignTarget(before string) string {
	before = strings.TrimRightFunc(before, unicode.IsSpace)
	end := len(before)
	start := end
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(before[:start])
		if !isIdentPart(r) && r != '.' {
			break
		}
		start -= size
	}
	return before[start:end]
}

// CollectStrings 收集名为 property 的属性值中出现的全部字符串,去重保序
func CollectStrings(property string, values ...Value) []string {
	var out []string
	seen := make(map[string]struct{})

	var strs func(v Value)
	strs = func(v Value) {
		switch t := v.(type) {
		case string:
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				out = append(out, t)
			}
		case Array:
			for _, e := range t {
				strs(e)
			}
		case Object:
			for _, m := range t {
				strs(m.Value)
			}
		}
	}

	var walk func(v Value)
	walk = func(v Value) {
		switch t := v.(type) {
		case Array:
			for _, e := range t {
				walk(e)
			}
		case Object:
			for _, m := range t {
				if m.Key == property {
					strs(m.Value)
					continue
				}
				walk(m.Value)
			}
		}
	}

	for _, v := range values {
		walk(v)
	}
	return out
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte { return p.at(0) }

func (p *parser) at(off int) byte {
	if p.pos+off >= len(p.src) {
		return 0
	}
	return p.src[p.pos+off]
}

func (p *parser) rest(n int) string {
	end := p.pos + n
	if end > len(p.src) {
		end = len(p.src)
	}
	return p.src[p.pos:end]
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

// skipSpace 跳过空白和注释
func (p *parser) skipSpace() {
	for !p.eof() {
		c := p.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			p.pos++
		case c == '/' && p.at(1) == '/':
			for !p.eof() && p.peek() != '\n' {
				p.pos++
			}
		case c == '/' && p.at(1) == '*':
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.pos += end + 4
		default:
			return
		}
	}
}

func (p *parser) value() (Value, error) {
	p.skipSpace()
	if p.eof() {
		return nil, p.errorf("意外的结尾")
	}
	c := p.peek()
	switch {
	case c == '{':
		return p.object()
	case c == '[':
		return p.array()
	case c == '"' || c == '\'':
		return p.str()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
		if isIdentStart(r) {
			return p.identValue()
		}
		return nil, p.errorf("无法识别的字符 %q", r)
	}
}

func (p *parser) object() (Value, error) {
	p.pos++ // {
	obj := Object{}
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return obj, nil
		}

		key, err := p.key()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("属性 %q 后缺少 ':'", key)
		}
		p.pos++

		v, err := p.value()
		if err != nil {
			return nil, err
		}
		obj = append(obj, Member{Key: key, Value: v})

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return obj, nil
		default:
			return nil, p.errorf("对象中缺少 ',' 或 '}'")
		}
	}
}

func (p *parser) key() (string, error) {
	if p.eof() {
		return "", p.errorf("意外的结尾")
	}
	c := p.peek()
	switch {
	case c == '"' || c == '\'':
		return p.str()
	case c >= '0' && c <= '9':
		start := p.pos
		if _, err := p.number(); err != nil {
			return "", err
		}
		return p.src[start:p.pos], nil
	default:
		name := p.ident()
		if name == "" {
			return "", p.errorf("缺少属性名")
		}
		return name, nil
	}
}

func (p *parser) array() (Value, error) {
	p.pos++ // [
	arr := Array{}
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			return arr, nil
		}

		v, err := p.value()
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return arr, nil
		default:
			return nil, p.errorf("数组中缺少 ',' 或 ']'")
		}
	}
}

func (p *parser) str() (string, error) {
	quote := p.peek()
	start := p.pos
	p.pos++

	var b strings.Builder
	for {
		if p.eof() {
			p.pos = start
			return "", p.errorf("字符串未闭合")
		}
		c := p.peek()
		switch c {
		case quote:
			p.pos++
			return b.String(), nil
		case '\n':
			return "", p.errorf("字符串中出现换行")
		case '\\':
			if err := p.escape(&b); err != nil {
				return "", err
			}
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
}

func (p *parser) escape(b *strings.Builder) error {
	p.pos++ // 反斜杠
	if p.eof() {
		return p.errorf("转义序列不完整")
	}
	c := p.peek()
	p.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		b.WriteByte(0)
	case '\n':
		// 续行
	case 'x', 'u':
		n := 2
		if c == 'u' {
			n = 4
		}
		if p.pos+n > len(p.src) {
			return p.errorf("转义序列不完整")
		}
		code, err := strconv.ParseUint(p.src[p.pos:p.pos+n], 16, 32)
		if err != nil {
			return p.errorf("无效的转义序列 \\%c%s", c, p.src[p.pos:p.pos+n])
		}
		p.pos += n
		b.WriteRune(rune(code))
	default:
		b.WriteByte(c)
	}
	return nil
}

func (p *parser) number() (Value, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	if p.peek() == '0' && (p.at(1) == 'x' || p.at(1) == 'X') {
		p.pos += 2
		digits := p.pos
		for isHexDigit(p.peek()) {
			p.pos++
		}
		n, err := strconv.ParseInt(p.src[digits:p.pos], 16, 64)
		if err != nil {
			return nil, p.errorf("无效的十六进制数 %q", p.src[start:p.pos])
		}
		if p.src[start] == '-' {
			n = -n
		}
		return float64(n), nil
	}

	for {
		c := p.peek()
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' ||
			((c == '-' || c == '+') && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E')) {
			p.pos++
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return nil, p.errorf("无效的数字 %q", p.src[start:p.pos])
	}
	return f, nil
}

// identValue 解析关键字或点分标识符引用
func (p *parser) identValue() (Value, error) {
	name := p.ident()
	switch name {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null", "undefined":
		return nil, nil
	}
	for p.peek() == '.' {
		p.pos++
		part := p.ident()
		if part == "" {
			return nil, p.errorf("标识符 %q 后缺少属性名", name)
		}
		name += "." + part
	}
	return Ident(name), nil
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if p.pos == start && !isIdentStart(r) {
			break
		}
		if p.pos > start && !isIdentPart(r) {
			break
		}
		p.pos += size
	}
	return p.src[start:p.pos]
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
