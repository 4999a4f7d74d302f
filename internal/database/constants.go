package database

// DateLayout is the layout of AttendanceSession.Date.
const DateLayout = "2006-01-02"

// DefaultRecentLimit is the number of sessions returned by ListRecent when no limit is given.
const DefaultRecentLimit = 50
