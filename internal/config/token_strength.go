package config

import zxcvbn "github.com/ccojocar/zxcvbn-go"

const weakTokenScoreThreshold = 3

// IsWeakToken reports whether a non-empty admin token scores below the
// zxcvbn threshold. An empty token disables auth and is never weak.
func IsWeakToken(token string) bool {
	if token == "" {
		return false
	}
	return zxcvbn.PasswordStrength(token, []string{"subdecode"}).Score < weakTokenScoreThreshold
}
