// Package auth はGoogle IDトークン検証、セッション発行、ユーザー解決を提供する。
package auth

import "strings"

// DomainPolicy は所属ドメインによるサインイン可否を判定する。
type DomainPolicy struct {
	allowedSuffix string
}

// NewDomainPolicy はDomainPolicyを生成する。
// allowedSuffix は "@morgan.edu" のような許可メールドメイン。
func NewDomainPolicy(allowedSuffix string) *DomainPolicy {
	return &DomainPolicy{allowedSuffix: strings.ToLower(allowedSuffix)}
}

// Allow は指定メールアドレスがサインイン可能かを判定する。
// 比較は大文字小文字を区別しない。空のメールアドレスは常に拒否する。
func (p *DomainPolicy) Allow(email string) bool {
	if email == "" || p.allowedSuffix == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(email), p.allowedSuffix)
}
