package domain

const (
	RateLimitScopeUser = "user"
	RateLimitScopeIP   = "ip"
)

// RateLimitKey - имя счётчика для субъекта, например "user:42".
func RateLimitKey(scope, subject string) string {
	return scope + ":" + subject
}
