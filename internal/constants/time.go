package constants

const (
	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// TimestampFormat is how instants are persisted. Always written in UTC so that
	// stored values compare lexicographically in range queries.
	TimestampFormat = "2006-01-02T15:04:05Z07:00"

	// DaysPerWeek is the length of a report window
	DaysPerWeek = 7
)
