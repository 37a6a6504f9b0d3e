package models

// Reference data used by the synthetic generator.
var (
	Severities = []Severity{
		{Name: "INFO", Description: "Informational message"},
		{Name: "WARNING", Description: "Warning condition"},
		{Name: "ERROR", Description: "Error condition"},
		{Name: "CRITICAL", Description: "Critical condition"},
	}

	EventTypes = []EventType{
		{Name: "SYSTEM_STATUS", Description: "System status update"},
		{Name: "SECURITY_ALERT", Description: "Security-related event"},
		{Name: "PERFORMANCE", Description: "Performance metric event"},
		{Name: "USER_ACTION", Description: "User-initiated action"},
	}

	Sources = []Source{
		{Name: "web-server-01", IPAddress: "192.168.1.100", Location: Location{Name: "PL-01", Country: "Poland", City: "Katowice"}},
		{Name: "web-server-02", IPAddress: "192.168.1.200", Location: Location{Name: "PL-02", Country: "Poland", City: "Gdansk"}},
		{Name: "cache-01", IPAddress: "192.168.2.100", Location: Location{Name: "US-01", Country: "USA", City: "New York"}},
		{Name: "lb-01", IPAddress: "192.168.3.100", Location: Location{Name: "DE-01", Country: "Germany", City: "Frankfurt"}},
	}

	// MessageTemplates holds per-event-type messages; each %d is filled with a random number.
	MessageTemplates = map[string][]string{
		"SYSTEM_STATUS": {
			"System startup completed",
			"System shutdown initiated",
			"Service restart required",
			"Memory usage at %d%%",
			"CPU utilization peaked at %d%%",
		},
		"SECURITY_ALERT": {
			"Failed login attempt from IP %d",
			"Suspicious activity detected",
			"Firewall rule updated",
			"New security patch applied",
			"User account locked after %d attempts",
		},
		"PERFORMANCE": {
			"Response time exceeded %dms",
			"Database query took %dms",
			"Network latency increased to %dms",
			"Queue size reached %d",
		},
		"USER_ACTION": {
			"User %d logged in successfully",
			"Password change attempted",
			"Configuration updated by admin",
			"New user account created",
		},
	}
)
