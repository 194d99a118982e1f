package provider

import (
	"context"
	"fmt"
	"time"

	"itk_server/core/port/out"
	"itk_server/pkg/logger"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const freeBusyWindow = 7 * 24 * time.Hour

// GoogleCalendarAdapter reads busy windows from the user's primary calendar
// so drafts can nudge picks toward free evenings. Query failures degrade to
// an empty list, same as the music context.
type GoogleCalendarAdapter struct {
	now func() time.Time
}

func NewGoogleCalendarAdapter() *GoogleCalendarAdapter {
	return &GoogleCalendarAdapter{now: time.Now}
}

func (a *GoogleCalendarAdapter) BusyWindows(ctx context.Context, accessToken string) ([]out.BusyWindow, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := calendar.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}

	start := a.now().UTC()
	req := &calendar.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: start.Add(freeBusyWindow).Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: "primary"}},
	}

	resp, err := svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		logger.WithError(err).Debug("Calendar free/busy query failed, skipping calendar context")
		return nil, nil
	}

	primary, ok := resp.Calendars["primary"]
	if !ok {
		return nil, nil
	}

	windows := make([]out.BusyWindow, 0, len(primary.Busy))
	for _, busy := range primary.Busy {
		windows = append(windows, out.BusyWindow{Start: busy.Start, End: busy.End})
	}
	return windows, nil
}
