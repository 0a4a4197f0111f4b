package calendar

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Event is the narrow view of a calendar entry the scheduler needs
type Event struct {
	Summary       string        `json:"summary"`
	Start         time.Time     `json:"start"`
	AttendeeCount int           `json:"attendee_count"`
	TimeUntil     time.Duration `json:"time_until"`
	CalendarName  string        `json:"calendar_name,omitempty"`
}

// Service fetches upcoming events from Google Calendar. A zero-value
// service (no tokens) reports unavailable and every caller must check
// IsAvailable before fetching — calendar access is optional by design.
type Service struct {
	svc *calendarapi.Service
}

// NewService builds a calendar client from oauth2 credentials. Missing
// credentials are not an error: the service is simply unavailable.
func NewService(ctx context.Context, clientID, clientSecret, accessToken, refreshToken string) *Service {
	if clientID == "" || (accessToken == "" && refreshToken == "") {
		log.Println("[Calendar] No credentials configured, calendar integration disabled")
		return &Service{}
	}

	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}
	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
	}

	svc, err := calendarapi.NewService(ctx, option.WithTokenSource(cfg.TokenSource(ctx, token)))
	if err != nil {
		log.Printf("[Calendar] Failed to create calendar service: %v", err)
		return &Service{}
	}

	log.Println("[Calendar] Calendar service initialized")
	return &Service{svc: svc}
}

// IsAvailable reports whether calendar data can be fetched at all
func (s *Service) IsAvailable() bool {
	return s != nil && s.svc != nil
}

// UpcomingEvents fetches events starting within the next 7 days across
// all of the user's calendars, soonest first, capped at limit.
func (s *Service) UpcomingEvents(ctx context.Context, limit int) ([]Event, error) {
	if !s.IsAvailable() {
		return nil, fmt.Errorf("calendar service not available")
	}
	if limit <= 0 {
		limit = 10
	}

	now := time.Now()
	timeMin := now.Format(time.RFC3339)
	timeMax := now.AddDate(0, 0, 7).Format(time.RFC3339)

	calendarIDs := []string{"primary"}
	if list, err := s.svc.CalendarList.List().Context(ctx).Do(); err == nil {
		calendarIDs = calendarIDs[:0]
		for _, item := range list.Items {
			calendarIDs = append(calendarIDs, item.Id)
		}
	} else {
		log.Printf("[Calendar] Failed to list calendars, falling back to primary: %v", err)
	}

	var events []Event
	for _, calID := range calendarIDs {
		result, err := s.svc.Events.List(calID).
			TimeMin(timeMin).
			TimeMax(timeMax).
			MaxResults(int64(limit)).
			SingleEvents(true).
			OrderBy("startTime").
			Context(ctx).
			Do()
		if err != nil {
			log.Printf("[Calendar] Failed to fetch events from calendar %s: %v", calID, err)
			continue
		}

		for _, item := range result.Items {
			start, ok := eventStart(item)
			if !ok || start.Before(now) {
				continue
			}
			events = append(events, Event{
				Summary:       item.Summary,
				Start:         start,
				AttendeeCount: len(item.Attendees),
				TimeUntil:     start.Sub(now),
				CalendarName:  calID,
			})
		}
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// eventStart resolves the start time of timed and all-day events
func eventStart(item *calendarapi.Event) (time.Time, bool) {
	if item.Start == nil {
		return time.Time{}, false
	}
	if item.Start.DateTime != "" {
		t, err := time.Parse(time.RFC3339, item.Start.DateTime)
		return t, err == nil
	}
	if item.Start.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", item.Start.Date, time.Local)
		return t, err == nil
	}
	return time.Time{}, false
}
