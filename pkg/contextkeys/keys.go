package contextkeys

type contextKey string

const (
	UserIDKey      contextKey = "UserID"
	AuthContextKey contextKey = "AuthContext"
	RequestIDKey   contextKey = "RequestID"
)
