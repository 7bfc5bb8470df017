package audit

import (
	"fmt"
	"strings"
	"time"
)

const (
	failedLoginWindow    = 5 * time.Minute
	failedLoginAlertMark = 5
)

type Monitor struct {
	logger *Logger
	now    func() time.Time
}

// NewMonitor creates a new security monitor
func NewMonitor(logger *Logger) *Monitor {
	return &Monitor{
		logger: logger,
		now:    time.Now,
	}
}

// DetectFailedLogins counts failed logins per username over the last five
// minutes and records a critical event for every username at or above the
// alert mark. It returns the offending usernames with their counts.
func (m *Monitor) DetectFailedLogins() (map[string]int, error) {
	now := m.now()
	fiveMinutesAgo := now.Add(-failedLoginWindow)

	filters := QueryFilters{
		StartTime: &fiveMinutesAgo,
		EndTime:   &now,
		Limit:     1000,
	}

	events, err := m.logger.QueryLogs(filters)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}

	// Count failed attempts per user
	failedAttempts := make(map[string]int)
	for _, event := range events {
		if !event.Success && event.Username != "" && strings.HasPrefix(event.Action, LoginActionPrefix) {
			failedAttempts[event.Username]++
		}
	}

	alerts := make(map[string]int)
	for username, count := range failedAttempts {
		if count < failedLoginAlertMark {
			continue
		}
		alerts[username] = count

		err := m.logger.Log(&Event{
			Level:    LevelCritical,
			Username: username,
			Action:   ActionFailedLoginThreshold,
			Resource: "authentication",
			Success:  false,
			ErrorMsg: fmt.Sprintf("%d failed attempts detected", count),
		})
		if err != nil {
			return alerts, err
		}
	}

	return alerts, nil
}
