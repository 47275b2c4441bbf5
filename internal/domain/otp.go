package domain

import "regexp"

// otpRegex 匹配被非数字分隔的 4-8 位连续数字。
// 超过 8 位的数字串（例如订单号）不会被命中。
var otpRegex = regexp.MustCompile(`\b\d{4,8}\b`)

// ExtractOTP 从邮件正文中提取验证码。
//
// 按阅读顺序返回第一个 4-8 位数字串，后续候选一律忽略；
// 未检测到时返回空字符串。
func ExtractOTP(text string) string {
	if text == "" {
		return ""
	}
	return otpRegex.FindString(text)
}
