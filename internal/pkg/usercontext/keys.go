package usercontext

// Session keys written at login and read by the user context middleware.
const (
	SessionUserID   = "user_id"
	SessionUsername = "username"
	SessionEmail    = "email"
)

const localsKey = "twai.user"
