// internal/app/system/limits/limits.go
package limits

// Request body size limits.
const (
	// MaxAuthFormSize bounds the login and register form bodies.
	MaxAuthFormSize = 16 << 10 // 16 KB
)
