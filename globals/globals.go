package globals

// JwtSecret signs and verifies access tokens. main sets it from config.
var JwtSecret = []byte("change-me")

// Context keys
type ContextKey string

const RoleKey ContextKey = "role"
const UserIDKey ContextKey = "userId"
const UsernameKey ContextKey = "username"
